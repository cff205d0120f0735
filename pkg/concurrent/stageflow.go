package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// StageKind is one of the three ordering modes spec.md 5 requires of the
// ingestion pipeline's stage-flow abstraction.
type StageKind int

const (
	// SerialInOrder processes tokens one at a time, in the exact order
	// they were received.
	SerialInOrder StageKind = iota
	// Parallel fans a stage's work out across the pool's worker budget;
	// tokens may complete out of order.
	Parallel
	// SerialOutOfOrder processes tokens one at a time but does not
	// preserve arrival order (used for stages, like a sink, whose side
	// effects commute).
	SerialOutOfOrder
)

// Stage is one link of a pipeline built by Run. Kind decides how Fn's
// invocations are scheduled relative to each other; Fn transforms one
// token in place. An error from any invocation aborts the whole pipeline.
type Stage[T any] struct {
	Name string
	Kind StageKind
	Fn   func(ctx context.Context, tok T) (T, error)
}

// Run drives tokens through stages in the token count spec.md 4.A
// recommends (roughly 1.5x hardware parallelism in flight). A background
// goroutine, tracked by the same errgroup as the stages, feeds tokens
// into the first stage's input channel, so a failure in any stage
// cancels ctx and unwinds the feeder and every stage cleanly.
// seqOf recovers a token's emission sequence number (e.g. Buffer.Seq);
// it is only consulted by SerialInOrder stages.
//
// A Parallel stage runs up to parallelism goroutines pulling from the same
// input channel and pushing to the same output channel, so its output is
// in worker-completion order, not emission order (spec.md's "parallel
// stages may execute tokens concurrently" rule). A SerialInOrder stage
// therefore cannot assume its input channel is already sorted just
// because it runs a single worker: when it follows a Parallel stage, that
// worker buffers arrivals keyed by seqOf and releases them in the exact
// order tokens was passed to Run, re-establishing emission order before
// handing off to the next stage. SerialOutOfOrder behaves like Parallel
// with a worker count of one; it exists as a distinct kind because its
// contract (no reordering guarantee, single active token) differs from a
// SerialInOrder stage's ordering guarantee.
func Run[T any](ctx context.Context, parallelism int, tokens []T, stages []Stage[T], seqOf func(T) int) error {
	if parallelism < 1 {
		parallelism = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	bufSize := parallelism + parallelism/2
	if bufSize < 1 {
		bufSize = 1
	}

	order := make([]int, len(tokens))
	for i, t := range tokens {
		order[i] = seqOf(t)
	}

	in := make(chan T, bufSize)
	src := in
	g.Go(func() error {
		defer close(src)
		for _, t := range tokens {
			select {
			case src <- t:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for _, stage := range stages {
		stageIn := in
		out := make(chan T, bufSize)
		stage := stage

		if stage.Kind == SerialInOrder {
			g.Go(func() error {
				defer close(out)
				return runSerialInOrder(ctx, stageIn, out, order, seqOf, stage.Fn)
			})
			in = out
			continue
		}

		workers := 1
		if stage.Kind == Parallel {
			workers = parallelism
		}

		g.Go(func() error {
			defer close(out)
			inner, innerCtx := errgroup.WithContext(ctx)
			for i := 0; i < workers; i++ {
				inner.Go(func() error {
					for {
						select {
						case tok, ok := <-stageIn:
							if !ok {
								return nil
							}
							res, err := stage.Fn(innerCtx, tok)
							if err != nil {
								return err
							}
							select {
							case out <- res:
							case <-innerCtx.Done():
								return innerCtx.Err()
							}
						case <-innerCtx.Done():
							return innerCtx.Err()
						}
					}
				})
			}
			return inner.Wait()
		})

		in = out
	}

	g.Go(func() error {
		for range in {
		}
		return nil
	})

	return g.Wait()
}

// runSerialInOrder is the single worker backing a SerialInOrder stage. Its
// input channel may deliver tokens out of emission order (when the
// preceding stage is Parallel), so it buffers arrivals in pending, keyed by
// seqOf, and only invokes fn — and forwards downstream — once a token's
// sequence number is next in order, per order (the sequence Run was given
// its tokens in).
func runSerialInOrder[T any](ctx context.Context, in <-chan T, out chan<- T, order []int, seqOf func(T) int, fn func(context.Context, T) (T, error)) error {
	pending := make(map[int]T, len(order))
	next := 0
	for next < len(order) {
		tok, ok := pending[order[next]]
		if !ok {
			var received T
			select {
			case received, ok = <-in:
				if !ok {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
			pending[seqOf(received)] = received
			continue
		}
		delete(pending, order[next])

		res, err := fn(ctx, tok)
		if err != nil {
			return err
		}
		select {
		case out <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
		next++
	}
	return nil
}
