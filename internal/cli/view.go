package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/spotview/internal/tui"
	"github.com/roach88/spotview/internal/workspace"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	LogFile string
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view <sample-id>",
		Short: "Browse a sample in the terminal",
		Long: `Open a registered sample in the terminal viewer.

The spot map and the spot table share one focused spot. Tab switches the
keyboard between them; [ and ] step through the mobility records of the
focused spot; q quits.

The terminal belongs to the viewer, so logs are discarded unless --log names
a file.

Examples:
  spotview view 1 --project run.db
  spotview view 1 --project run.db --layout viewer.cue --log view.log`,
		Args: cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Layout, "layout", "", "layout file (default from ~/.spotview, else built-in)")
	cmd.Flags().StringVar(&opts.LogFile, "log", "", "write logs to this file")
	cmd.Flags().IntVar(&opts.MaxCascade, "max-cascade", 0, "focus cascade limit (default from ~/.spotview, else 64)")
	cmd.Flags().IntVar(&opts.CacheRecords, "cache-records", 0, "records cached per store")

	return cmd
}

func runView(ctx context.Context, opts *ViewOptions, arg string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	id, err := parseID(arg)
	if err != nil {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid sample id %q", arg), err)
	}

	var logOut io.Writer = io.Discard
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return formatter.Fail(ExitCommandError, "open log file", err)
		}
		defer f.Close()
		logOut = f
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	l, err := loadLayout(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "load layout", err)
	}
	p, err := openProject(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open project", err)
	}
	defer p.Close()

	v := tui.NewViewer()
	wopts := append([]workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithLayout(l, v.Factory),
	}, workspaceOptions(opts.RootOptions)...)
	w := workspace.New(p, wopts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		defer w.Stop()
		if err := v.Open(gctx, w, int32(id)); err != nil {
			return err
		}
		return tui.Run(gctx, v)
	})
	err = g.Wait()

	if cerr := w.Close(context.Background()); cerr != nil {
		logger.Warn("close workspace", "error", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("view sample %d", id), err)
	}
	return nil
}
