package concurrent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(v int) int { return v }

func TestRunSerialInOrderPreservesOrder(t *testing.T) {
	tokens := []int{1, 2, 3, 4, 5}
	var mu sync.Mutex
	var seen []int

	stages := []Stage[int]{
		{
			Name: "record",
			Kind: SerialInOrder,
			Fn: func(_ context.Context, tok int) (int, error) {
				mu.Lock()
				seen = append(seen, tok)
				mu.Unlock()
				return tok, nil
			},
		},
	}

	require.NoError(t, Run(context.Background(), 4, tokens, stages, identity))
	assert.Equal(t, tokens, seen)
}

func TestRunParallelVisitsEveryToken(t *testing.T) {
	tokens := make([]int, 50)
	for i := range tokens {
		tokens[i] = i
	}
	var mu sync.Mutex
	seen := make(map[int]bool)

	stages := []Stage[int]{
		{
			Name: "double",
			Kind: Parallel,
			Fn: func(_ context.Context, tok int) (int, error) {
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
				return tok * 2, nil
			},
		},
	}

	require.NoError(t, Run(context.Background(), 8, tokens, stages, identity))
	assert.Len(t, seen, len(tokens))
}

// TestRunSerialInOrderReordersScrambledArrivals exercises the exact
// scenario a Parallel stage produces upstream of a SerialInOrder stage:
// the input channel delivers tokens in completion order, not emission
// order. runSerialInOrder must buffer and release them in the order Run
// was originally given its tokens (order), regardless of arrival order.
func TestRunSerialInOrderReordersScrambledArrivals(t *testing.T) {
	order := []int{0, 1, 2, 3, 4}
	arrival := []int{2, 0, 4, 1, 3}

	in := make(chan int, len(arrival))
	for _, v := range arrival {
		in <- v
	}
	close(in)

	out := make(chan int, len(order))
	err := runSerialInOrder(context.Background(), in, out, order, identity, func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	close(out)

	var got []int
	for v := range out {
		got = append(got, v)
	}
	assert.Equal(t, order, got)
}

func TestRunAbortsOnStageError(t *testing.T) {
	tokens := []int{1, 2, 3}
	boom := errors.New("boom")

	stages := []Stage[int]{
		{
			Name: "fail-on-two",
			Kind: SerialInOrder,
			Fn: func(_ context.Context, tok int) (int, error) {
				if tok == 2 {
					return tok, boom
				}
				return tok, nil
			},
		},
	}

	err := Run(context.Background(), 2, tokens, stages, identity)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunClampsNonPositiveParallelism(t *testing.T) {
	tokens := []int{1}
	stages := []Stage[int]{
		{Name: "noop", Kind: Parallel, Fn: func(_ context.Context, tok int) (int, error) { return tok, nil }},
	}
	assert.NoError(t, Run(context.Background(), 0, tokens, stages, identity))
}
