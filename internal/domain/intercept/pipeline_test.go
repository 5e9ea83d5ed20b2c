package intercept

import (
	"context"
	"testing"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

type fakeStore struct {
	rules []rule.Rule
}

func (f *fakeStore) Add(ctx context.Context, rules []rule.Rule) (int, error) { return 0, nil }
func (f *fakeStore) Remove(ctx context.Context, rules []rule.Rule) (int, error) {
	return 0, nil
}
func (f *fakeStore) Query(ctx context.Context) ([]rule.Rule, error) { return f.rules, nil }
func (f *fakeStore) CheckMatches(ctx context.Context, path string) ([]rule.Rule, error) {
	var out []rule.Rule
	for _, r := range f.rules {
		if rule.Match(r.Pattern, path) {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeStore) Cleanup(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeStore) MatchFirst(ctx context.Context, path string) (rule.Rule, bool, error) {
	for _, r := range f.rules {
		if rule.Match(r.Pattern, path) {
			return r, true, nil
		}
	}
	return rule.Rule{}, false, nil
}

var _ rule.Store = (*fakeStore)(nil)

func TestPipeline_PreOpenDeniesAccessDenied(t *testing.T) {
	store := &fakeStore{rules: []rule.Rule{
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\DEVICE\HARDDISKVOLUME1\SECRETS\*`},
	}}
	p := NewPipeline(store)

	res, err := p.PreOpen(context.Background(), `\Device\HarddiskVolume1\Secrets\a.txt`)
	if err != nil {
		t.Fatalf("PreOpen() error: %v", err)
	}
	if res.Decision != Deny {
		t.Fatalf("Decision = %v, want Deny", res.Decision)
	}
	if res.Status != StatusAccessDenied {
		t.Errorf("Status = %d, want StatusAccessDenied", res.Status)
	}
}

func TestPipeline_PreOpenTracksReadOnly(t *testing.T) {
	store := &fakeStore{rules: []rule.Rule{
		{Major: rule.MajorReadOnly, Minor: rule.MinorMonitored, Pattern: `\DEVICE\*\PROGRAM FILES\APP\*`},
	}}
	p := NewPipeline(store)

	res, err := p.PreOpen(context.Background(), `\Device\HarddiskVolume1\Program Files\App\a.dll`)
	if err != nil {
		t.Fatalf("PreOpen() error: %v", err)
	}
	if res.Decision != AllowAndTrack {
		t.Fatalf("Decision = %v, want AllowAndTrack", res.Decision)
	}
	if res.Major != rule.MajorReadOnly || res.Minor != rule.MinorMonitored {
		t.Errorf("classification = (%v,%v), want (ReadOnly,Monitored)", res.Major, res.Minor)
	}
}

func TestPipeline_PreOpenNoMatchTracksUnclassified(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store)

	res, err := p.PreOpen(context.Background(), `\Device\HarddiskVolume1\Other\a.txt`)
	if err != nil {
		t.Fatalf("PreOpen() error: %v", err)
	}
	if res.Decision != AllowAndTrack {
		t.Fatalf("Decision = %v, want AllowAndTrack", res.Decision)
	}
	if res.Major != rule.MajorNone {
		t.Errorf("Major = %v, want MajorNone", res.Major)
	}
}

// TestPipeline_ClassificationSurvivesRuleChange covers I5: once a
// stream is classified, later rule-store mutations never retroactively
// change its behavior.
func TestPipeline_ClassificationSurvivesRuleChange(t *testing.T) {
	store := &fakeStore{rules: []rule.Rule{
		{Major: rule.MajorReadOnly, Minor: rule.MinorNone, Pattern: `\DEVICE\HARDDISKVOLUME1\DOCS\*`},
	}}
	p := NewPipeline(store)

	res, err := p.PreOpen(context.Background(), `\Device\HarddiskVolume1\Docs\a.txt`)
	if err != nil {
		t.Fatalf("PreOpen() error: %v", err)
	}

	octx := &PerOpenContext{}
	p.PostOpen(res, octx, 1, [16]byte{})

	// Rule removed after classification; PreWrite must still deny
	// because the stream's classification is frozen.
	store.rules = nil

	write := p.PreWrite(octx)
	if write.Decision != Deny {
		t.Fatalf("PreWrite() Decision = %v after rule removal, want Deny (I5)", write.Decision)
	}
}

func TestPipeline_PreWriteAllowsUnrestricted(t *testing.T) {
	p := NewPipeline(&fakeStore{})
	octx := &PerOpenContext{}
	octx.Classify(rule.MajorNone, rule.MinorMonitored, 1, [16]byte{}, `\Device\HarddiskVolume1\a.txt`)

	if res := p.PreWrite(octx); res.Decision != Allow {
		t.Errorf("PreWrite() Decision = %v, want Allow", res.Decision)
	}
}

func TestPipeline_ConcurrentPostOpenClassifiesOnce(t *testing.T) {
	octx := &PerOpenContext{}
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			octx.Classify(rule.MajorReadOnly, rule.MinorNone, uint64(i), [16]byte{}, "path")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if !octx.IsClassified() {
		t.Fatal("IsClassified() = false after concurrent Classify calls")
	}
}

func TestShouldMonitor(t *testing.T) {
	octx := &PerOpenContext{}
	octx.Classify(rule.MajorNone, rule.MinorMonitored, 0, [16]byte{}, "p")
	if !ShouldMonitor(octx) {
		t.Error("ShouldMonitor() = false, want true")
	}

	other := &PerOpenContext{}
	other.Classify(rule.MajorNone, rule.MinorNone, 0, [16]byte{}, "p")
	if ShouldMonitor(other) {
		t.Error("ShouldMonitor() = true, want false")
	}
}
