package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/testutil"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Kind     string // "sample" | "alignment"
	ID       int32
	Name     string
	Spots    int
	Mobility bool
	Samples  int
}

// SynthResult describes the files synth wrote and registered.
type SynthResult struct {
	Kind  string   `json:"kind"`
	ID    int32    `json:"id"`
	Name  string   `json:"name"`
	Spots int      `json:"spots"`
	Files []string `json:"files"`
}

func (r SynthResult) String() string {
	return fmt.Sprintf("registered %s %d (%s): %d spots\n  %s", r.Kind, r.ID, r.Name, r.Spots, strings.Join(r.Files, "\n  "))
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <dir>",
		Short: "Write a synthetic result and register it",
		Long: `Write synthetic result files under <dir>/<kind>-<id> and register them
in the project.

Samples get a spectra file and, with --mobility, a drift file whose masters
are linked to every even spot. Alignments get spectra, chromatogram and bar
files.

Examples:
  spotview synth ./data --project run.db --spots 200 --mobility
  spotview synth ./data --project run.db --kind alignment --id 1 --samples 6`,
		Args: cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "sample", "result kind (sample|alignment)")
	cmd.Flags().Int32Var(&opts.ID, "id", 1, "sample or alignment ID")
	cmd.Flags().StringVar(&opts.Name, "name", "", "registered name (default <kind>-<id>)")
	cmd.Flags().IntVar(&opts.Spots, "spots", 50, "number of spots")
	cmd.Flags().BoolVar(&opts.Mobility, "mobility", false, "write a drift file (samples only)")
	cmd.Flags().IntVar(&opts.Samples, "samples", 4, "samples per alignment spot")

	return cmd
}

func runSynth(ctx context.Context, opts *SynthOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Kind != string(project.OwnerSample) && opts.Kind != string(project.OwnerAlignment) {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid kind %q: must be sample or alignment", opts.Kind), nil)
	}
	if opts.Spots <= 0 || opts.ID < 0 {
		return formatter.Fail(ExitCommandError, "spots must be positive and id non-negative", nil)
	}

	p, err := openProject(opts.RootOptions)
	if err != nil {
		return err
	}
	defer p.Close()

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", opts.Kind, opts.ID)
	}
	out := filepath.Join(dir, fmt.Sprintf("%s-%d", opts.Kind, opts.ID))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return formatter.Fail(ExitCommandError, "create output directory", err)
	}

	result := SynthResult{Kind: opts.Kind, ID: opts.ID, Name: name, Spots: opts.Spots}
	if opts.Kind == string(project.OwnerSample) {
		files, err := testutil.BuildSample(out, opts.ID, opts.Spots, opts.Mobility)
		if err != nil {
			return formatter.Fail(ExitCommandError, "write sample files", err)
		}
		s := project.Sample{ID: opts.ID, Name: name, SpectraPath: files.Spectra, DriftPath: files.Drift}
		if err := p.RegisterSample(ctx, s); err != nil {
			return formatter.Fail(ExitCommandError, "register sample", err)
		}
		if files.Drift != "" {
			if err := p.SetDriftLinks(ctx, project.OwnerSample, opts.ID, files.Links); err != nil {
				return formatter.Fail(ExitCommandError, "register drift links", err)
			}
		}
		result.Files = nonEmpty(files.Spectra, files.Drift)
	} else {
		files, err := testutil.BuildAlignment(out, opts.ID, opts.Spots, opts.Samples)
		if err != nil {
			return formatter.Fail(ExitCommandError, "write alignment files", err)
		}
		a := project.Alignment{
			ID:               opts.ID,
			Name:             name,
			SpectraPath:      files.Spectra,
			ChromatogramPath: files.Chromatograms,
			BarPath:          files.Bars,
		}
		if err := p.RegisterAlignment(ctx, a); err != nil {
			return formatter.Fail(ExitCommandError, "register alignment", err)
		}
		result.Files = nonEmpty(files.Spectra, files.Chromatograms, files.Bars)
	}

	formatter.VerboseLog("wrote %d file(s) under %s", len(result.Files), out)
	return formatter.Success(result)
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
