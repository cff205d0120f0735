package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDMapAllocatesFirstSeenOrder(t *testing.T) {
	m := NewIdMap()
	a := m.GetID("a")
	b := m.GetID("b")
	aAgain := m.GetID("a")

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, a, aAgain)
	assert.Equal(t, 2, m.Len())
}

func TestIDMapPeekDoesNotAllocate(t *testing.T) {
	m := NewIdMap()
	_, ok := m.Peek("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	m.GetID("present")
	id, ok := m.Peek("present")
	assert.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestIDMapLookupRoundTrips(t *testing.T) {
	m := NewIdMap()
	id := m.GetID("hello")
	name, ok := m.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, "hello", name)

	_, ok = m.Lookup(id + 1)
	assert.False(t, ok)
}

func TestReverseGLeavesInputUntouched(t *testing.T) {
	in := []int{1, 2, 3}
	out := ReverseG(in)
	assert.Equal(t, []int{3, 2, 1}, out)
	assert.Equal(t, []int{1, 2, 3}, in)
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.2345, 2))
}

func TestCountDecimalPlacesF64(t *testing.T) {
	assert.Equal(t, 3, CountDecimalPlacesF64(1.234))
	assert.Equal(t, 0, CountDecimalPlacesF64(5))
}

func TestStopConcurrentOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, StopConcurrentOperation(ctx))
	cancel()
	assert.True(t, StopConcurrentOperation(ctx))
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 3, MinInt(3, 5))
	assert.Equal(t, 3, MinInt(5, 3))
	assert.Equal(t, 3, MinInt(3, 3))
}

func TestAssertPanicOnlyPanicsWhenConditionFails(t *testing.T) {
	assert.NotPanics(t, func() { AssertPanic(true, "unreachable") })
	assert.PanicsWithValue(t, "boom", func() { AssertPanic(false, "boom") })
}
