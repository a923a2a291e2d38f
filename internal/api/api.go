package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
	"github.com/roach88/spotview/internal/workspace"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// New returns an http.Handler serving the API and its OpenAPI document.
func New(w *workspace.Workspace) http.Handler {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("spotview", Version))
	Register(api, w)
	return mux
}

// Register adds the read-only operations over w to api.
func Register(api huma.API, w *workspace.Workspace) {
	h := &handlers{w: w}

	huma.Register(api, huma.Operation{
		OperationID: "list-scopes",
		Method:      http.MethodGet,
		Path:        "/scopes",
		Summary:     "List open focus scopes",
		Tags:        []string{"focus"},
	}, h.listScopes)

	huma.Register(api, huma.Operation{
		OperationID: "get-focus",
		Method:      http.MethodGet,
		Path:        "/scopes/{family}/{owner}/{dimension}/focus",
		Summary:     "Get the focused record of a scope",
		Tags:        []string{"focus"},
	}, h.getFocus)

	huma.Register(api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/stores/{family}/{owner}/{dimension}/records/{id}",
		Summary:     "Fetch one record of a scope's store",
		Tags:        []string{"stores"},
	}, h.getRecord)

	huma.Register(api, huma.Operation{
		OperationID: "get-index",
		Method:      http.MethodGet,
		Path:        "/stores/{family}/{owner}/{dimension}/index",
		Summary:     "Page through a store's offset index",
		Tags:        []string{"stores"},
	}, h.getIndex)
}

// ScopeInfo describes one open focus scope.
type ScopeInfo struct {
	Scope      string `json:"scope" example:"sample:1/primary"`
	Owner      string `json:"owner" example:"sample:1"`
	Focused    bool   `json:"focused"`
	ID         int32  `json:"id" doc:"Focused record ID, -1 when nothing is focused"`
	Generation uint64 `json:"generation" doc:"Number of focus changes applied"`
	Records    int    `json:"records" doc:"Records in the scope's store"`
}

// ScopesOutput is the response of GET /scopes.
type ScopesOutput struct {
	Body struct {
		Scopes []ScopeInfo `json:"scopes"`
	}
}

// ScopeInput addresses one scope by its parts.
type ScopeInput struct {
	Family    string `path:"family" enum:"sample,alignment" doc:"Result family"`
	Owner     int64  `path:"owner" minimum:"0" maximum:"2147483647" doc:"Sample or alignment ID"`
	Dimension string `path:"dimension" enum:"primary,secondary" doc:"Spot or mobility dimension"`
}

func (in ScopeInput) scope() (focus.Scope, error) {
	return focus.ParseScope(fmt.Sprintf("%s:%d/%s", in.Family, in.Owner, in.Dimension))
}

// FocusOutput is the response of GET /scopes/.../focus.
type FocusOutput struct {
	Body ScopeInfo
}

// RecordInput addresses one record of a scope's store.
type RecordInput struct {
	Family    string `path:"family" enum:"sample,alignment"`
	Owner     int64  `path:"owner" minimum:"0" maximum:"2147483647"`
	Dimension string `path:"dimension" enum:"primary,secondary"`
	ID        int64  `path:"id" minimum:"0" maximum:"2147483647" doc:"Record ID"`
}

// Record is the JSON form of one record.
type Record struct {
	ID     int32          `json:"id"`
	Owner  int32          `json:"owner"`
	Kind   string         `json:"kind" enum:"spectrum,chromatogram,drift,bar"`
	Fields []float64      `json:"fields"`
	Arrays [][][2]float64 `json:"arrays"`
	Hash   string         `json:"hash"`
}

// RecordOutput is the response of GET /stores/.../records/{id}.
type RecordOutput struct {
	Body Record
}

// IndexInput pages through a store's index.
type IndexInput struct {
	Family    string `path:"family" enum:"sample,alignment"`
	Owner     int64  `path:"owner" minimum:"0" maximum:"2147483647"`
	Dimension string `path:"dimension" enum:"primary,secondary"`
	Offset    int    `query:"offset" minimum:"0" default:"0" doc:"First entry to return"`
	Limit     int    `query:"limit" minimum:"1" maximum:"10000" default:"100" doc:"Entries to return"`
}

// IndexEntry is one index entry.
type IndexEntry struct {
	ID     int32 `json:"id"`
	Offset int64 `json:"offset" doc:"Byte offset relative to the start of the body"`
	Length int64 `json:"length"`
}

// IndexOutput is the response of GET /stores/.../index.
type IndexOutput struct {
	Body struct {
		Path    string       `json:"path"`
		Kind    string       `json:"kind"`
		Count   int          `json:"count"`
		Dense   bool         `json:"dense"`
		Entries []IndexEntry `json:"entries"`
	}
}

type handlers struct {
	w *workspace.Workspace
}

// onLoop runs fn on the workspace's dispatch loop. fn's error is the
// client-facing error; a loop failure is a 503.
func (h *handlers) onLoop(ctx context.Context, fn func(ctx context.Context) error) error {
	var apiErr error
	err := h.w.Do(ctx, func(ctx context.Context) error {
		apiErr = fn(ctx)
		return nil
	})
	if err != nil {
		return huma.Error503ServiceUnavailable("workspace unavailable", err)
	}
	return apiErr
}

func (h *handlers) info(scope focus.Scope) (ScopeInfo, error) {
	st, ok := h.w.Registry().State(scope)
	if !ok {
		return ScopeInfo{}, huma.Error404NotFound(fmt.Sprintf("scope %s is not open", scope))
	}
	info := ScopeInfo{
		Scope:      scope.String(),
		ID:         int32(st.Get()),
		Focused:    st.Get().Valid(),
		Generation: st.Generation(),
	}
	if r, ok := h.w.ResultFor(scope); ok {
		info.Owner = r.Owner.String()
		if s, ok := r.Store(scope); ok {
			info.Records = s.Len()
		}
	}
	return info, nil
}

func (h *handlers) listScopes(ctx context.Context, _ *struct{}) (*ScopesOutput, error) {
	out := &ScopesOutput{}
	out.Body.Scopes = []ScopeInfo{}
	err := h.onLoop(ctx, func(ctx context.Context) error {
		for _, scope := range h.w.Registry().Scopes() {
			info, err := h.info(scope)
			if err != nil {
				return err
			}
			out.Body.Scopes = append(out.Body.Scopes, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *handlers) getFocus(ctx context.Context, in *ScopeInput) (*FocusOutput, error) {
	scope, err := in.scope()
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := &FocusOutput{}
	err = h.onLoop(ctx, func(ctx context.Context) error {
		info, err := h.info(scope)
		out.Body = info
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// store returns the store behind scope. Called on the loop.
func (h *handlers) store(scope focus.Scope) (*resultstore.Store, error) {
	r, ok := h.w.ResultFor(scope)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("scope %s is not open", scope))
	}
	s, ok := r.Store(scope)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("%s has no store for %s", r.Owner, scope))
	}
	return s, nil
}

func (h *handlers) getRecord(ctx context.Context, in *RecordInput) (*RecordOutput, error) {
	scope, err := ScopeInput{Family: in.Family, Owner: in.Owner, Dimension: in.Dimension}.scope()
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := &RecordOutput{}
	err = h.onLoop(ctx, func(ctx context.Context) error {
		s, err := h.store(scope)
		if err != nil {
			return err
		}
		r, err := s.Fetch(record.ID(in.ID))
		if err != nil {
			return storeError(err)
		}
		hash, err := r.Hash()
		if err != nil {
			return huma.Error500InternalServerError("hash record", err)
		}
		out.Body = newRecord(r, hash)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *handlers) getIndex(ctx context.Context, in *IndexInput) (*IndexOutput, error) {
	scope, err := ScopeInput{Family: in.Family, Owner: in.Owner, Dimension: in.Dimension}.scope()
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := &IndexOutput{}
	err = h.onLoop(ctx, func(ctx context.Context) error {
		s, err := h.store(scope)
		if err != nil {
			return err
		}
		if s.Closed() {
			return storeError(datafile.NewClosedError(s.Path()))
		}
		ix := s.Index()
		out.Body.Path = s.Path()
		out.Body.Kind = s.Kind().String()
		out.Body.Count = ix.Len()
		out.Body.Dense = ix.Dense()
		out.Body.Entries = []IndexEntry{}
		entries := ix.Entries()
		if in.Offset >= len(entries) {
			return nil
		}
		end := min(in.Offset+in.Limit, len(entries))
		for _, e := range entries[in.Offset:end] {
			out.Body.Entries = append(out.Body.Entries, IndexEntry{ID: int32(e.ID), Offset: e.Offset, Length: e.Length})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func newRecord(r record.Record, hash string) Record {
	out := Record{
		ID:     int32(r.ID),
		Owner:  r.Owner,
		Kind:   r.Kind.String(),
		Fields: r.Fields,
		Arrays: make([][][2]float64, len(r.Arrays)),
		Hash:   hash,
	}
	for i, a := range r.Arrays {
		pts := make([][2]float64, len(a))
		for j, p := range a {
			pts[j] = [2]float64{p.X, p.Y}
		}
		out.Arrays[i] = pts
	}
	return out
}

// storeError maps store errors to HTTP status codes.
func storeError(err error) error {
	switch {
	case datafile.IsUnknownRecord(err):
		return huma.Error404NotFound(err.Error())
	case datafile.IsClosed(err):
		return huma.Error409Conflict(err.Error())
	case datafile.IsTruncated(err), datafile.IsLengthChanged(err), datafile.IsCorruptIndex(err):
		return huma.Error500InternalServerError("corrupt data file", err)
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return err
	}
	return huma.Error500InternalServerError("fetch failed", err)
}
