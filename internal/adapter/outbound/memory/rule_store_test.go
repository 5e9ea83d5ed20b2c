package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

func TestRuleStore_AddDeduplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()

	r := rule.Rule{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\Device\HarddiskVolume1\Secrets\*`}

	added, err := store.Add(ctx, []rule.Rule{r})
	if err != nil || added != 1 {
		t.Fatalf("first Add() = %d, %v, want 1, nil", added, err)
	}

	added, err = store.Add(ctx, []rule.Rule{r})
	if err != nil || added != 0 {
		t.Fatalf("second Add() = %d, %v, want 0, nil", added, err)
	}
}

func TestRuleStore_AddRejectsInvalidWithoutRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()

	rules := []rule.Rule{
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\A\*`},
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: ""}, // invalid: empty pattern
		{Major: rule.MajorAction(99), Minor: rule.MinorNone, Pattern: `\B\*`}, // invalid: bad major
		{Major: rule.MajorReadOnly, Minor: rule.MinorMonitored, Pattern: `\C\*`},
	}

	added, err := store.Add(ctx, rules)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if added != 2 {
		t.Fatalf("Add() = %d, want 2 (invalid entries skipped, earlier valid ones kept)", added)
	}

	stored, err := store.Query(ctx)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Query() returned %d rules, want 2", len(stored))
	}
}

func TestRuleStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()
	r := rule.Rule{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\A\*`}

	before, _ := store.Query(ctx)

	if _, err := store.Add(ctx, []rule.Rule{r}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if _, err := store.Remove(ctx, []rule.Rule{r}); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	after, _ := store.Query(ctx)
	if len(before) != len(after) {
		t.Fatalf("state after add+remove = %d rules, want %d (pre-add state)", len(after), len(before))
	}
}

func TestRuleStore_MatchFirstAndCheckMatchesSuperset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()

	deny := rule.Rule{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\Device\*\Program Files\*`}
	readonly := rule.Rule{Major: rule.MajorReadOnly, Minor: rule.MinorMonitored, Pattern: `\Device\*\Program Files\App\*`}
	if _, err := store.Add(ctx, []rule.Rule{deny, readonly}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	path := `\Device\HarddiskVolume1\Program Files\App\x.exe`

	first, ok, err := store.MatchFirst(ctx, path)
	if err != nil || !ok {
		t.Fatalf("MatchFirst() = %v, %v, %v, want a match", first, ok, err)
	}

	all, err := store.CheckMatches(ctx, path)
	if err != nil {
		t.Fatalf("CheckMatches() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("CheckMatches() returned %d rules, want 2", len(all))
	}

	found := false
	for _, r := range all {
		if r.Identity() == first.Identity() {
			found = true
		}
	}
	if !found {
		t.Errorf("CheckMatches() does not contain MatchFirst()'s result")
	}
}

func TestRuleStore_Cleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()
	store.Add(ctx, []rule.Rule{
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\A\*`},
		{Major: rule.MajorReadOnly, Minor: rule.MinorNone, Pattern: `\B\*`},
	})

	removed, err := store.Cleanup(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("Cleanup() = %d, %v, want 2, nil", removed, err)
	}

	rules, _ := store.Query(ctx)
	if len(rules) != 0 {
		t.Errorf("Query() after Cleanup() returned %d rules, want 0", len(rules))
	}
}

func TestRuleStore_DrainRejectsMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()
	store.Drain()

	if _, err := store.Add(ctx, []rule.Rule{{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\A\*`}}); !errors.Is(err, rule.ErrBusy) {
		t.Errorf("Add() during drain = %v, want ErrBusy", err)
	}
	if _, err := store.Remove(ctx, nil); !errors.Is(err, rule.ErrBusy) {
		t.Errorf("Remove() during drain = %v, want ErrBusy", err)
	}
	if _, err := store.Cleanup(ctx); !errors.Is(err, rule.ErrBusy) {
		t.Errorf("Cleanup() during drain = %v, want ErrBusy", err)
	}
	// Reads still succeed while draining.
	if _, err := store.Query(ctx); err != nil {
		t.Errorf("Query() during drain returned error: %v", err)
	}
}

func TestRuleStore_ConcurrentReadersAndWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRuleStore()
	store.Add(ctx, []rule.Rule{{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\Device\*\Secrets\*`}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.MatchFirst(ctx, `\Device\HarddiskVolume1\Secrets\a.txt`)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Add(ctx, []rule.Rule{{Major: rule.MajorReadOnly, Minor: rule.MinorNone, Pattern: `\Device\*\Other\*`}})
	}()
	wg.Wait()
}
