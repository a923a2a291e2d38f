package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/spotview/internal/api"
	"github.com/roach88/spotview/internal/workspace"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Sample    int32
	Alignment int32
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve focus and records over HTTP",
		Long: `Open a sample and/or an alignment and serve their focus scopes and
records as a read-only JSON API. The OpenAPI document is at /openapi.json.

Examples:
  spotview serve --project run.db --sample 1
  spotview serve --project run.db --sample 1 --alignment 1 --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().Int32Var(&opts.Sample, "sample", -1, "sample to open")
	cmd.Flags().Int32Var(&opts.Alignment, "alignment", -1, "alignment to open")
	cmd.Flags().IntVar(&opts.CacheRecords, "cache-records", 0, "records cached per store")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Sample < 0 && opts.Alignment < 0 {
		return formatter.Fail(ExitCommandError, "nothing to serve: use --sample and/or --alignment", nil)
	}
	p, err := openProject(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open project", err)
	}
	defer p.Close()

	w := workspace.New(p, workspaceOptions(opts.RootOptions)...)
	defer w.Close(context.Background())

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("listen on %s", opts.Addr), err)
	}
	srv := &http.Server{
		Handler:           api.New(w),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		err := w.Do(gctx, func(ctx context.Context) error {
			if opts.Sample >= 0 {
				if _, err := w.OpenSample(ctx, opts.Sample); err != nil {
					return err
				}
			}
			if opts.Alignment >= 0 {
				if _, err := w.OpenAlignment(ctx, opts.Alignment); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			ln.Close()
			return err
		}
		slog.Info("serving", "addr", ln.Addr().String(), "sample", opts.Sample, "alignment", opts.Alignment)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitCommandError, "serve", err)
	}
	return nil
}
