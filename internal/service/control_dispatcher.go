package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxtack/fileguardcore/internal/apierr"
	"github.com/fxtack/fileguardcore/internal/domain/lifecycle"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/domain/rule"
	"github.com/fxtack/fileguardcore/pkg/wire"
)

// coreVersion is the engine's reported version for GetCoreVersion
// replies (§6).
var coreVersion = wire.CoreVersion{Major: 1, Minor: 0, Patch: 0, Build: 0}

// ControlDispatcher maps decoded control-channel requests (§4.E) to
// rule store, lifecycle, and monitor operations, returning an
// *apierr.Error on any failure so the inbound adapter can encode a
// wire ReplyHeader.resultCode without knowing domain internals.
type ControlDispatcher struct {
	store   rule.Store
	flags   *lifecycle.Flags
	queue   monitor.Queue
	records recordsCounter
}

// recordsCounter lets the dispatcher report how many monitor records
// are currently queued, for CleanupRules-adjacent admin diagnostics.
type recordsCounter interface {
	Len() int
}

// NewControlDispatcher builds a ControlDispatcher over the given rule
// store, lifecycle flags, and monitor queue.
func NewControlDispatcher(store rule.Store, flags *lifecycle.Flags, queue monitor.Queue) *ControlDispatcher {
	return &ControlDispatcher{store: store, flags: flags, queue: queue, records: queue}
}

// GetCoreVersion implements the GetCoreVersion request (§6): no
// request body, replies with CoreVersion.
func (d *ControlDispatcher) GetCoreVersion(ctx context.Context) (wire.CoreVersion, error) {
	return coreVersion, nil
}

// SetUnloadAcceptable implements SetUnloadAcceptable (§3, §4.E).
func (d *ControlDispatcher) SetUnloadAcceptable(ctx context.Context, accept bool) error {
	d.flags.SetAcceptUnload(accept)
	return nil
}

// SetDetachAcceptable implements SetDetachAcceptable (§3, §4.E).
func (d *ControlDispatcher) SetDetachAcceptable(ctx context.Context, accept bool) error {
	d.flags.SetAcceptDetach(accept)
	return nil
}

// AddRules implements AddRules (§4.A, §4.E): invalid rules in the
// batch are skipped individually, never rolling back earlier
// insertions, matching the rule store's own contract.
func (d *ControlDispatcher) AddRules(ctx context.Context, rules []rule.Rule) (added int, err error) {
	added, err = d.store.Add(ctx, rules)
	if err != nil {
		return added, translateStoreErr(err)
	}
	return added, nil
}

// RemoveRules implements RemoveRules (§4.A, §4.E).
func (d *ControlDispatcher) RemoveRules(ctx context.Context, rules []rule.Rule) (removed int, err error) {
	removed, err = d.store.Remove(ctx, rules)
	if err != nil {
		return removed, translateStoreErr(err)
	}
	return removed, nil
}

// QueryRules implements QueryRules (§4.A, §4.E): returns the full
// rule catalogue.
func (d *ControlDispatcher) QueryRules(ctx context.Context) ([]rule.Rule, error) {
	rules, err := d.store.Query(ctx)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return rules, nil
}

// CheckMatchedRule implements CheckMatchedRule (§4.A, §4.E): returns
// every rule matching path, or apierr.NotFound if none match.
func (d *ControlDispatcher) CheckMatchedRule(ctx context.Context, path string) ([]rule.Rule, error) {
	matches, err := d.store.CheckMatches(ctx, path)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if len(matches) == 0 {
		return nil, apierr.New(apierr.NotFound, fmt.Sprintf("no rule matches %q", path))
	}
	return matches, nil
}

// CleanupRules implements CleanupRules (§4.A, §4.E): empties the
// store and returns the removed count.
func (d *ControlDispatcher) CleanupRules(ctx context.Context) (removed int, err error) {
	removed, err = d.store.Cleanup(ctx)
	if err != nil {
		return removed, translateStoreErr(err)
	}
	return removed, nil
}

// QueuedRecords reports how many monitor records are currently
// buffered. No control-channel request reports it.
func (d *ControlDispatcher) QueuedRecords() int {
	return d.records.Len()
}

// translateStoreErr maps a domain rule-store error to its apierr
// taxonomy equivalent (§7).
func translateStoreErr(err error) *apierr.Error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, rule.ErrInvalidRule):
		return apierr.Wrap(apierr.InvalidArgument, "invalid rule", err)
	case errors.Is(err, rule.ErrBusy):
		return apierr.Wrap(apierr.Busy, "rule store draining", err)
	case errors.Is(err, rule.ErrOutOfMemory):
		return apierr.Wrap(apierr.OutOfMemory, "rule store allocation failed", err)
	default:
		return apierr.Wrap(apierr.Host, "rule store error", err)
	}
}
