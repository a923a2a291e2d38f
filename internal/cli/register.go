package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/record"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Name          string
	Spectra       string
	Drift         string
	Chromatograms string
	Bars          string
	Links         []string // "parent=master,master"
}

// RegisterResult describes a registered result.
type RegisterResult struct {
	Kind  string `json:"kind"`
	ID    int32  `json:"id"`
	Name  string `json:"name"`
	Links int    `json:"links"`
}

func (r RegisterResult) String() string {
	s := fmt.Sprintf("registered %s %d (%s)", r.Kind, r.ID, r.Name)
	if r.Links > 0 {
		s += fmt.Sprintf(" with %d drift link(s)", r.Links)
	}
	return s
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <sample|alignment> <id>",
		Short: "Register result files in the project",
		Long: `Register the data files of one sample or alignment result.

Drift links map a parent spot to its mobility masters, in order:

  spotview register sample 3 --spectra s3.spd --drift s3.drift \
      --link 0=1000,1001 --link 2=1002`,
		Args: cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "registered name (default the spectra file name)")
	cmd.Flags().StringVar(&opts.Spectra, "spectra", "", "spectra data file (required)")
	cmd.Flags().StringVar(&opts.Drift, "drift", "", "drift data file")
	cmd.Flags().StringVar(&opts.Chromatograms, "chromatograms", "", "chromatogram data file (alignments)")
	cmd.Flags().StringVar(&opts.Bars, "bars", "", "bar data file (alignments)")
	cmd.Flags().StringArrayVar(&opts.Links, "link", nil, "drift link parent=master[,master...] (repeatable)")

	return cmd
}

func runRegister(ctx context.Context, opts *RegisterOptions, kind, idArg string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	id, err := strconv.ParseInt(idArg, 10, 32)
	if err != nil || id < 0 {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid id %q", idArg), nil)
	}
	if opts.Spectra == "" {
		return formatter.Fail(ExitCommandError, "--spectra is required", nil)
	}
	links, err := parseLinks(opts.Links)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid --link", err)
	}
	if len(links) > 0 && opts.Drift == "" {
		return formatter.Fail(ExitCommandError, "--link requires --drift", nil)
	}
	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(opts.Spectra), filepath.Ext(opts.Spectra))
	}

	p, err := openProject(opts.RootOptions)
	if err != nil {
		return err
	}
	defer p.Close()

	var owner project.OwnerKind
	switch kind {
	case string(project.OwnerSample):
		owner = project.OwnerSample
		err = p.RegisterSample(ctx, project.Sample{
			ID:          int32(id),
			Name:        name,
			SpectraPath: opts.Spectra,
			DriftPath:   opts.Drift,
		})
	case string(project.OwnerAlignment):
		owner = project.OwnerAlignment
		err = p.RegisterAlignment(ctx, project.Alignment{
			ID:               int32(id),
			Name:             name,
			SpectraPath:      opts.Spectra,
			ChromatogramPath: opts.Chromatograms,
			BarPath:          opts.Bars,
			DriftPath:        opts.Drift,
		})
	default:
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid kind %q: must be sample or alignment", kind), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, "register", err)
	}
	if err := p.SetDriftLinks(ctx, owner, int32(id), links); err != nil {
		return formatter.Fail(ExitCommandError, "register drift links", err)
	}

	return formatter.Success(RegisterResult{Kind: kind, ID: int32(id), Name: name, Links: len(links)})
}

// parseLinks parses "parent=master,master" arguments.
func parseLinks(args []string) (map[record.ID][]record.ID, error) {
	links := make(map[record.ID][]record.ID)
	for _, arg := range args {
		parent, masters, ok := strings.Cut(arg, "=")
		if !ok || masters == "" {
			return nil, fmt.Errorf("%q: want parent=master[,master...]", arg)
		}
		pid, err := parseID(parent)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}
		if _, dup := links[pid]; dup {
			return nil, fmt.Errorf("%q: parent %d given twice", arg, pid)
		}
		for _, m := range strings.Split(masters, ",") {
			mid, err := parseID(m)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", arg, err)
			}
			links[pid] = append(links[pid], mid)
		}
	}
	return links, nil
}

func parseID(s string) (record.ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n < 0 {
		return record.None, fmt.Errorf("invalid record id %q", s)
	}
	return record.ID(n), nil
}
