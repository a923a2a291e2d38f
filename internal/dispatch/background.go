package dispatch

import (
	"context"
	"errors"
	"io"
)

// ErrStale is passed to a Background apply-error hook when the result was
// discarded because its token was superseded.
var ErrStale = errors.New("result is stale")

// Background runs work on its own goroutine and hands the result to apply
// on the loop, but only if tok is still current when the result arrives.
//
// A stale result is discarded: it is logged, closed if it is an io.Closer,
// and apply never sees it. A failed work is applied neither; its error is
// logged by the loop. done, if non-nil, receives nil after apply ran,
// ErrStale for a discarded result, or the work/apply error.
//
// work must not touch focus state or latches; only apply runs on the loop.
func Background[T any](
	ctx context.Context,
	l *Loop,
	gens *Generations,
	tok Token,
	work func(ctx context.Context) (T, error),
	apply func(ctx context.Context, result T) error,
	done chan<- error,
) {
	report := func(err error) {
		if done != nil {
			done <- err
		}
	}

	go func() {
		result, werr := work(ctx)

		if err := l.Post(func(ctx context.Context) error {
			if !gens.Valid(tok) {
				discard(l, tok, result, werr)
				report(ErrStale)
				return nil
			}
			if werr != nil {
				report(werr)
				return werr
			}
			err := apply(ctx, result)
			report(err)
			return err
		}); err != nil {
			discard(l, tok, result, werr)
			report(err)
		}
	}()
}

func discard(l *Loop, tok Token, result any, werr error) {
	l.logger.Debug("discarding stale background result", "generation", tok.String(), "work_error", werr)
	if werr != nil {
		return
	}
	if c, ok := result.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.logger.Debug("closing stale result failed", "generation", tok.String(), "error", err)
		}
	}
}
