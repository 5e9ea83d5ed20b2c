// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

// RuleStore implements rule.Store as an ordered, append-/remove-only
// slice under a shared/exclusive lock (§4.A). Matching is a linear
// scan in store order, which is where the spec says the time should
// go (rule counts are small; match is dominated by wildcard compare,
// not lookup) — a side hash index is kept only to make duplicate
// detection on Add O(1) amortized instead of O(n) per candidate.
type RuleStore struct {
	mu       sync.RWMutex
	rules    []rule.Rule
	index    map[uint64]struct{} // identity hash -> present
	draining bool
}

// NewRuleStore creates an empty rule store in Open mode.
func NewRuleStore() *RuleStore {
	return &RuleStore{
		index: make(map[uint64]struct{}),
	}
}

// identityHash hashes the (major, minor, pattern) triple (I1).
func identityHash(r rule.Rule) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{byte(r.Major), byte(r.Minor)})
	_, _ = h.WriteString(r.Pattern)
	return h.Sum64()
}

// Drain switches the store into Draining mode: all further mutation
// calls fail with rule.ErrBusy, while reads keep succeeding until the
// store is discarded.
func (s *RuleStore) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
}

// Add implements rule.Store.
func (s *RuleStore) Add(_ context.Context, rules []rule.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return 0, rule.ErrBusy
	}

	added := 0
	for _, r := range rules {
		if r.Pattern == "" || !rule.ValidMajor(r.Major) || !rule.ValidMinor(r.Minor) {
			continue
		}
		r.Pattern = rule.Normalize(r.Pattern)

		h := identityHash(r)
		if _, exists := s.index[h]; exists {
			continue
		}

		s.index[h] = struct{}{}
		s.rules = append(s.rules, r)
		added++
	}
	return added, nil
}

// Remove implements rule.Store.
func (s *RuleStore) Remove(_ context.Context, rules []rule.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return 0, rule.ErrBusy
	}

	removed := 0
	for _, want := range rules {
		want.Pattern = rule.Normalize(want.Pattern)
		h := identityHash(want)
		if _, exists := s.index[h]; !exists {
			continue
		}
		delete(s.index, h)
		for i, have := range s.rules {
			if identityHash(have) == h {
				s.rules = append(s.rules[:i], s.rules[i+1:]...)
				removed++
				break
			}
		}
	}
	return removed, nil
}

// Query implements rule.Store.
func (s *RuleStore) Query(_ context.Context) ([]rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rule.Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// CheckMatches implements rule.Store.
func (s *RuleStore) CheckMatches(_ context.Context, path string) ([]rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path = rule.Normalize(path)
	var out []rule.Rule
	for _, r := range s.rules {
		if rule.Match(r.Pattern, path) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Cleanup implements rule.Store.
func (s *RuleStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draining {
		return 0, rule.ErrBusy
	}

	removed := len(s.rules)
	s.rules = nil
	s.index = make(map[uint64]struct{})
	return removed, nil
}

// MatchFirst implements rule.Store. It returns the first rule (in
// store order) whose pattern matches path — deterministic for a fixed
// store, per spec.md's "some matching rule wins" contract.
func (s *RuleStore) MatchFirst(_ context.Context, path string) (rule.Rule, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path = rule.Normalize(path)
	for _, r := range s.rules {
		if rule.Match(r.Pattern, path) {
			return r, true, nil
		}
	}
	return rule.Rule{}, false, nil
}

var _ rule.Store = (*RuleStore)(nil)
