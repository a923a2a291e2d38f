package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	ini "github.com/lars-t-hansen/ini"
)

// DefaultsFile is the per-user defaults file under $HOME.
const DefaultsFile = ".spotview"

// Defaults are the values read from ~/.spotview:
//
//	[project]
//	database = /data/run42/project.db
//	layout = $HOME/layouts/viewer.cue
//
//	[viewer]
//	max-cascade = 64
//	cache-records = 256
//
// Flags always win; a default only fills a flag left empty.
type Defaults struct {
	Database     string
	Layout       string
	MaxCascade   int
	CacheRecords int
}

// ParseDefaults reads a defaults file. Values go through os.ExpandEnv.
func ParseDefaults(r io.Reader) (Defaults, error) {
	p := ini.NewParser()
	projectSection := p.AddSection("project")
	database := projectSection.AddString("database")
	layoutFile := projectSection.AddString("layout")
	viewer := p.AddSection("viewer")
	maxCascade := viewer.AddString("max-cascade")
	cacheRecords := viewer.AddString("cache-records")

	store, err := p.Parse(r)
	if err != nil {
		return Defaults{}, err
	}

	var d Defaults
	if database.Present(store) {
		d.Database = os.ExpandEnv(database.StringVal(store))
	}
	if layoutFile.Present(store) {
		d.Layout = os.ExpandEnv(layoutFile.StringVal(store))
	}
	if maxCascade.Present(store) {
		if d.MaxCascade, err = positiveInt("viewer.max-cascade", maxCascade.StringVal(store)); err != nil {
			return Defaults{}, err
		}
	}
	if cacheRecords.Present(store) {
		if d.CacheRecords, err = positiveInt("viewer.cache-records", cacheRecords.StringVal(store)); err != nil {
			return Defaults{}, err
		}
	}
	return d, nil
}

func positiveInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: %q is not a positive integer", key, s)
	}
	return n, nil
}

// LoadDefaults reads the defaults file at path. A missing file yields zero
// Defaults.
func LoadDefaults(path string) (Defaults, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults{}, nil
		}
		return Defaults{}, err
	}
	defer f.Close()
	d, err := ParseDefaults(f)
	if err != nil {
		return Defaults{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// defaultsPath returns ~/.spotview, or "" without $HOME.
func defaultsPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(filepath.Clean(home), DefaultsFile)
}

// apply fills the empty options from d.
func (d Defaults) apply(opts *RootOptions) {
	if opts.Project == "" {
		opts.Project = d.Database
	}
	if opts.Layout == "" {
		opts.Layout = d.Layout
	}
	if opts.MaxCascade == 0 {
		opts.MaxCascade = d.MaxCascade
	}
	if opts.CacheRecords == 0 {
		opts.CacheRecords = d.CacheRecords
	}
}
