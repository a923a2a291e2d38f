package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Outcome is the result of one scenario file.
type Outcome struct {
	Path   string
	Name   string
	Result *Result
	Err    error // the scenario could not be loaded or run
}

// Passed reports whether the scenario ran and passed.
func (o Outcome) Passed() bool {
	return o.Err == nil && o.Result != nil && o.Result.Pass
}

// FindScenarios returns the scenario files under path: path itself when it
// is a file, otherwise every .yaml or .yml file below it, sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// RunFiles loads and runs each scenario file. A load or run failure is
// recorded in the file's Outcome; the remaining files still run.
func RunFiles(paths []string) []Outcome {
	out := make([]Outcome, 0, len(paths))
	for _, p := range paths {
		o := Outcome{Path: p}
		s, err := LoadScenario(p)
		if err != nil {
			o.Err = err
			out = append(out, o)
			continue
		}
		o.Name = s.Name
		o.Result, o.Err = Run(s)
		out = append(out, o)
	}
	return out
}
