package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spotview/internal/datafile"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	Sidecar bool // write the .idx sidecar
	Limit   int  // entries to print; 0 prints none, -1 all
}

// IndexResult describes the offset index of one data file.
type IndexResult struct {
	Path     string           `json:"path"`
	Kind     string           `json:"kind"`
	Version  uint16           `json:"version"`
	Count    int              `json:"count"`
	Dense    bool             `json:"dense"`
	BodySize int64            `json:"body_size"`
	Sidecar  string           `json:"sidecar,omitempty"`
	Entries  []datafile.Entry `json:"entries,omitempty"`
}

func (r IndexResult) String() string {
	var b strings.Builder
	layout := "sparse"
	if r.Dense {
		layout = "dense"
	}
	fmt.Fprintf(&b, "%s: %s v%d, %d record(s), %s, %d body bytes", r.Path, r.Kind, r.Version, r.Count, layout, r.BodySize)
	if r.Sidecar != "" {
		fmt.Fprintf(&b, "\nwrote %s", r.Sidecar)
	}
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "\n%8d  offset=%-10d length=%d", e.ID, e.Offset, e.Length)
	}
	return b.String()
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index <data-file>",
		Short: "Build and print the offset index of a data file",
		Long: `Scan a data file and print its record offset index.

The scan never trusts an existing sidecar. With --sidecar the index is
written next to the data file as <data-file>.idx for later opens.

Examples:
  spotview index spectra.spd
  spotview index spectra.spd --limit -1 --format json
  spotview index spectra.spd --sidecar`,
		Args: cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sidecar, "sidecar", false, "write the index sidecar")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "entries to print (-1 for all)")

	return cmd
}

func runIndex(opts *IndexOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	f, err := datafile.OpenFile(path, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open data file", err)
	}
	defer f.Close()

	ix, hdr, err := datafile.ScanFile(f, path)
	if err != nil {
		return formatter.Fail(ExitFailure, "build index", err)
	}

	result := IndexResult{
		Path:     path,
		Kind:     hdr.Kind.String(),
		Version:  hdr.Version,
		Count:    ix.Len(),
		Dense:    ix.Dense(),
		BodySize: ix.BodySize(),
	}
	entries := ix.Entries()
	switch {
	case opts.Limit < 0:
		result.Entries = entries
	case opts.Limit < len(entries):
		result.Entries = entries[:opts.Limit]
	default:
		result.Entries = entries
	}

	if opts.Sidecar {
		info, err := f.Stat()
		if err != nil {
			return formatter.Fail(ExitCommandError, "stat data file", err)
		}
		if err := datafile.WriteSidecar(path, hdr, info.Size(), ix); err != nil {
			return formatter.Fail(ExitCommandError, "write sidecar", err)
		}
		result.Sidecar = datafile.SidecarPath(path)
	}

	formatter.VerboseLog("indexed %s: %d record(s)", path, ix.Len())
	return formatter.Success(result)
}
