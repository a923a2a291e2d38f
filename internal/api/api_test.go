package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/testutil"
	"github.com/roach88/spotview/internal/workspace"
)

// newWorkspace opens sample 1 (6 spots, with mobility) and focuses spot 2.
func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	p, err := project.Open(filepath.Join(dir, "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	files := testutil.WriteSample(t, dir, 1, 6, true)
	require.NoError(t, p.RegisterSample(ctx, project.Sample{
		ID: 1, Name: "sample-1", SpectraPath: files.Spectra, DriftPath: files.Drift,
	}))
	require.NoError(t, p.SetDriftLinks(ctx, project.OwnerSample, 1, files.Links))

	w := workspace.New(p)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close(context.Background())
	})

	require.NoError(t, w.Do(ctx, func(ctx context.Context) error {
		if _, err := w.OpenSample(ctx, 1); err != nil {
			return err
		}
		return w.Registry().Set(ctx, focus.SampleScope(1, false), 2)
	}))
	return w
}

func newAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	w := newWorkspace(t)
	_, api := humatest.New(t)
	Register(api, w)
	return api
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestListScopes(t *testing.T) {
	api := newAPI(t)

	resp := api.Get("/scopes")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode[struct {
		Scopes []ScopeInfo `json:"scopes"`
	}](t, resp.Body.Bytes())
	require.Len(t, body.Scopes, 2)

	assert.Equal(t, "sample:1/primary", body.Scopes[0].Scope)
	assert.Equal(t, "sample:1", body.Scopes[0].Owner)
	assert.True(t, body.Scopes[0].Focused)
	assert.Equal(t, int32(2), body.Scopes[0].ID)
	assert.Equal(t, 6, body.Scopes[0].Records)

	assert.Equal(t, "sample:1/secondary", body.Scopes[1].Scope)
	assert.False(t, body.Scopes[1].Focused)
	assert.Equal(t, int32(record.None), body.Scopes[1].ID)
}

func TestGetFocus(t *testing.T) {
	api := newAPI(t)

	resp := api.Get("/scopes/sample/1/primary/focus")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	info := decode[ScopeInfo](t, resp.Body.Bytes())
	assert.Equal(t, int32(2), info.ID)
	assert.Equal(t, uint64(1), info.Generation)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"not open", "/scopes/sample/9/primary/focus", http.StatusNotFound},
		{"alignment not open", "/scopes/alignment/1/primary/focus", http.StatusNotFound},
		{"bad family", "/scopes/plate/1/primary/focus", http.StatusUnprocessableEntity},
		{"bad dimension", "/scopes/sample/1/tertiary/focus", http.StatusUnprocessableEntity},
		{"bad owner", "/scopes/sample/x/primary/focus", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Get(tt.path)
			assert.Equal(t, tt.code, resp.Code, resp.Body.String())
		})
	}
}

func TestGetRecord(t *testing.T) {
	api := newAPI(t)

	resp := api.Get("/stores/sample/1/primary/records/3")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	rec := decode[Record](t, resp.Body.Bytes())

	want := testutil.Spot(1, 3, 3)
	assert.Equal(t, int32(3), rec.ID)
	assert.Equal(t, int32(1), rec.Owner)
	assert.Equal(t, "spectrum", rec.Kind)
	assert.Equal(t, want.Fields, rec.Fields)
	require.Len(t, rec.Arrays, 1)
	assert.Len(t, rec.Arrays[0], 3)
	assert.Equal(t, want.MustHash(), rec.Hash)

	resp = api.Get("/stores/sample/1/secondary/records/1000")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "drift", decode[Record](t, resp.Body.Bytes()).Kind)

	resp = api.Get("/stores/sample/1/primary/records/60")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Get("/stores/sample/2/primary/records/0")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetIndex(t *testing.T) {
	api := newAPI(t)

	resp := api.Get("/stores/sample/1/primary/index?offset=2&limit=3")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[struct {
		Kind    string       `json:"kind"`
		Count   int          `json:"count"`
		Dense   bool         `json:"dense"`
		Entries []IndexEntry `json:"entries"`
	}](t, resp.Body.Bytes())

	assert.Equal(t, "spectrum", body.Kind)
	assert.Equal(t, 6, body.Count)
	assert.True(t, body.Dense)
	require.Len(t, body.Entries, 3)
	assert.Equal(t, []int32{2, 3, 4}, []int32{body.Entries[0].ID, body.Entries[1].ID, body.Entries[2].ID})
	assert.Less(t, body.Entries[0].Offset, body.Entries[1].Offset)

	resp = api.Get("/stores/sample/1/primary/index?offset=10")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"entries":[]`)

	resp = api.Get("/stores/sample/1/secondary/index")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"dense":false`)

	resp = api.Get("/stores/sample/1/primary/index?limit=0")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestNew_ServesMux(t *testing.T) {
	h := New(newWorkspace(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "get-focus")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scopes/sample/1/primary/focus", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"scope":"sample:1/primary"`)
}
