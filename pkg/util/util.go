// Package util holds small generic helpers shared across the extraction
// pipeline: numeric formatting, slice utilities and a string-interning map.
package util

import (
	"context"
	"math"
	"strconv"
	"strings"
)

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func CountDecimalPlacesF64(value float64) int {
	strValue := strconv.FormatFloat(value, 'f', -1, 64)
	parts := strings.Split(strValue, ".")
	if len(parts) < 2 {
		return 0
	}
	return len(parts[1])
}

// ReverseG returns a reversed copy of arr, leaving arr untouched.
func ReverseG[T any](arr []T) []T {
	out := make([]T, len(arr))
	copy(out, arr)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func StopConcurrentOperation(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func AssertPanic(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

// IDMap interns strings into dense, first-seen-order integer ids. Used for
// the name table and for PrepareData's compaction of OSM node ids into a
// dense id space.
type IDMap struct {
	toID   map[string]int
	toName []string
}

func NewIdMap() *IDMap {
	return &IDMap{
		toID:   make(map[string]int),
		toName: make([]string, 0),
	}
}

// GetID returns s's id, allocating a new one if s hasn't been seen before.
func (m *IDMap) GetID(s string) int {
	if id, ok := m.toID[s]; ok {
		return id
	}
	id := len(m.toName)
	m.toID[s] = id
	m.toName = append(m.toName, s)
	return id
}

// Peek returns s's id without allocating one, reporting whether s has
// already been interned.
func (m *IDMap) Peek(s string) (int, bool) {
	id, ok := m.toID[s]
	return id, ok
}

func (m *IDMap) Lookup(id int) (string, bool) {
	if id < 0 || id >= len(m.toName) {
		return "", false
	}
	return m.toName[id], true
}

func (m *IDMap) Len() int {
	return len(m.toName)
}
