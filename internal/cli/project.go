package cli

import (
	"fmt"

	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/resultstore"
	"github.com/roach88/spotview/internal/workspace"
)

// openProject opens the project database named by --project or the
// defaults file.
func openProject(opts *RootOptions) (*project.Project, error) {
	if opts.Project == "" {
		return nil, NewExitError(ExitCommandError, "no project database: use --project or set [project] database in ~/.spotview")
	}
	p, err := project.Open(opts.Project)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open project %s", opts.Project), err)
	}
	return p, nil
}

// loadLayout compiles --layout, the defaults file's layout, or the built-in
// default layout.
func loadLayout(opts *RootOptions) (*layout.Layout, error) {
	if opts.Layout == "" {
		return layout.Default(), nil
	}
	l, err := layout.CompileFile(opts.Layout)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compile layout", err)
	}
	return l, nil
}

// workspaceOptions translates the viewer settings into workspace options.
func workspaceOptions(opts *RootOptions) []workspace.Option {
	var out []workspace.Option
	if opts.CacheRecords > 0 {
		out = append(out, workspace.WithStoreOptions(resultstore.WithCache(opts.CacheRecords)))
	}
	if opts.MaxCascade > 0 {
		out = append(out, workspace.WithFocusOptions(focus.WithMaxCascade(opts.MaxCascade)))
	}
	return out
}
