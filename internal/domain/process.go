package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidProcess is returned when a process identifier is not an integer.
var ErrInvalidProcess = errors.New("invalid process identifier")

// NormalizeProcess converts a process cell to its canonical integer string.
// "5", " 5 ", "+5", "5.0" and "5e0" all become "5". Fractional, empty and
// non-numeric values fail with ErrInvalidProcess.
func NormalizeProcess(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidProcess)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProcess, raw)
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return "", fmt.Errorf("%w: %q is not an integer", ErrInvalidProcess, raw)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

// ProcessSet is a set of canonical process identifiers.
type ProcessSet map[string]struct{}

// NewProcessSet creates a set containing the given identifiers.
func NewProcessSet(ids ...string) ProcessSet {
	s := make(ProcessSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set.
func (s ProcessSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s ProcessSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s ProcessSet) Len() int {
	return len(s)
}

// Clone returns an independent copy of the set.
func (s ProcessSet) Clone() ProcessSet {
	c := make(ProcessSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the identifiers in ascending numeric order, falling back
// to lexical order for identifiers that are not integers.
func (s ProcessSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return ids[i] < ids[j]
	})
	return ids
}
