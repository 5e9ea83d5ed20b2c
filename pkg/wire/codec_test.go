package wire

import (
	"testing"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

func TestRequestReplyHeaderRoundTrip(t *testing.T) {
	h := RequestHeader{Type: AddRules, TotalSize: 128}
	decoded, err := DecodeRequestHeader(EncodeRequestHeader(h))
	if err != nil {
		t.Fatalf("DecodeRequestHeader() error: %v", err)
	}
	if decoded != h {
		t.Errorf("DecodeRequestHeader() = %+v, want %+v", decoded, h)
	}

	rh := ReplyHeader{ResultCode: 0, Size: 64}
	rdecoded, err := DecodeReplyHeader(EncodeReplyHeader(rh))
	if err != nil {
		t.Fatalf("DecodeReplyHeader() error: %v", err)
	}
	if rdecoded != rh {
		t.Errorf("DecodeReplyHeader() = %+v, want %+v", rdecoded, rh)
	}
}

func TestCoreVersionRoundTrip(t *testing.T) {
	v := CoreVersion{Major: 1, Minor: 2, Patch: 3, Build: 4}
	decoded, err := DecodeCoreVersion(EncodeCoreVersion(v))
	if err != nil {
		t.Fatalf("DecodeCoreVersion() error: %v", err)
	}
	if decoded != v {
		t.Errorf("DecodeCoreVersion() = %+v, want %+v", decoded, v)
	}
}

func TestPathRoundTrip(t *testing.T) {
	path := `\Device\HarddiskVolume1\Secrets\a.txt`
	decoded, err := DecodePath(EncodePath(path))
	if err != nil {
		t.Fatalf("DecodePath() error: %v", err)
	}
	if decoded != path {
		t.Errorf("DecodePath() = %q, want %q", decoded, path)
	}
}

// TestRuleListRoundTrip is P8: encoding then decoding the control
// wire format for any rule list yields the same rules.
func TestRuleListRoundTrip(t *testing.T) {
	rules := []rule.Rule{
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: `\DEVICE\HARDDISKVOLUME1\SECRETS\*`},
		{Major: rule.MajorReadOnly, Minor: rule.MinorMonitored, Pattern: `\DEVICE\*\PROGRAM FILES\APP\*`},
		{Major: rule.MajorAccessDenied, Minor: rule.MinorNone, Pattern: ""},
	}

	decoded, err := DecodeRules(EncodeRules(rules))
	if err != nil {
		t.Fatalf("DecodeRules() error: %v", err)
	}
	if len(decoded) != len(rules) {
		t.Fatalf("DecodeRules() returned %d rules, want %d", len(decoded), len(rules))
	}
	for i, r := range rules {
		if decoded[i] != r {
			t.Errorf("rule %d = %+v, want %+v", i, decoded[i], r)
		}
	}
}

func TestRemovedCountRoundTrip(t *testing.T) {
	decoded, err := DecodeRemovedCount(EncodeRemovedCount(42))
	if err != nil {
		t.Fatalf("DecodeRemovedCount() error: %v", err)
	}
	if decoded != 42 {
		t.Errorf("DecodeRemovedCount() = %d, want 42", decoded)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Round(100 * time.Nanosecond)
	rec := monitor.Record{
		Op:             monitor.OpWrite,
		RequestorPID:   111,
		RequestorTID:   222,
		VolumeSerial:   333,
		CapturedAt:     now,
		Status:         -1073741790, // STATUS_ACCESS_DENIED
		MatchedPattern: `\DEVICE\HARDDISKVOLUME1\SECRETS\*`,
		OriginalPath:   `\Device\HarddiskVolume1\Secrets\a.txt`,
	}
	rec.FileID[0] = 0xAB

	decoded, n, err := DecodeRecord(EncodeRecord(rec))
	if err != nil {
		t.Fatalf("DecodeRecord() error: %v", err)
	}
	if n != len(EncodeRecord(rec)) {
		t.Errorf("DecodeRecord() consumed %d bytes, want %d", n, len(EncodeRecord(rec)))
	}
	if decoded.Op != rec.Op || decoded.RequestorPID != rec.RequestorPID ||
		decoded.VolumeSerial != rec.VolumeSerial || decoded.Status != rec.Status ||
		decoded.MatchedPattern != rec.MatchedPattern || decoded.OriginalPath != rec.OriginalPath ||
		decoded.FileID != rec.FileID {
		t.Errorf("DecodeRecord() = %+v, want equivalent of %+v", decoded, rec)
	}
	if !decoded.CapturedAt.Equal(rec.CapturedAt) {
		t.Errorf("CapturedAt = %v, want %v", decoded.CapturedAt, rec.CapturedAt)
	}
}

func TestEncodeFrameNeverSplitsARecord(t *testing.T) {
	records := make([]monitor.Record, 5)
	for i := range records {
		records[i] = monitor.Record{
			Op:             monitor.OpCreate,
			MatchedPattern: `\DEVICE\*\SECRETS\*`,
			OriginalPath:   `\Device\HarddiskVolume1\Secrets\file.txt`,
			CapturedAt:     time.Now(),
		}
	}

	frames := EncodeFrame(records)
	total := 0
	for _, f := range frames {
		if len(f) > monitor.FrameSize {
			t.Fatalf("frame of %d bytes exceeds FrameSize %d", len(f), monitor.FrameSize)
		}
		total += len(f)
	}

	var gotRecords int
	for _, f := range frames {
		for len(f) > 0 {
			_, n, err := DecodeRecord(f)
			if err != nil {
				t.Fatalf("DecodeRecord() within frame error: %v", err)
			}
			f = f[n:]
			gotRecords++
		}
	}
	if gotRecords != len(records) {
		t.Errorf("decoded %d records from frames, want %d", gotRecords, len(records))
	}
}
