package cel

import (
	"testing"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

func TestNewRecordEnvironment(t *testing.T) {
	env, err := NewRecordEnvironment()
	if err != nil {
		t.Fatalf("NewRecordEnvironment() error: %v", err)
	}
	if env == nil {
		t.Fatal("NewRecordEnvironment() returned nil")
	}
}

func TestBuildRecordActivation(t *testing.T) {
	now := time.Now()
	rec := monitor.Record{
		Op:               monitor.OpSetInformation,
		SetInfoKind:      monitor.SetInfoRename,
		OriginalPath:     "C:\\a.txt",
		RenameTargetPath: "C:\\b.txt",
		MatchedPattern:   "*.txt",
		RequestorPID:     10,
		RequestorTID:     20,
		VolumeSerial:     30,
		Status:           0,
		CapturedAt:       now,
	}

	act := BuildRecordActivation(rec)

	if act["op"] != "set-information" {
		t.Errorf("op = %v, want set-information", act["op"])
	}
	if act["set_info_kind"] != "rename" {
		t.Errorf("set_info_kind = %v, want rename", act["set_info_kind"])
	}
	if act["path"] != "C:\\a.txt" {
		t.Errorf("path = %v, want C:\\a.txt", act["path"])
	}
	if act["rename_path"] != "C:\\b.txt" {
		t.Errorf("rename_path = %v, want C:\\b.txt", act["rename_path"])
	}
	if act["pid"] != int64(10) {
		t.Errorf("pid = %v, want 10", act["pid"])
	}
}

func TestRecordEnvironment_GlobExpression(t *testing.T) {
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	prg, err := eval.Compile(`glob("*.txt", path)`)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	rec := monitor.Record{OriginalPath: "C:\\a.txt"}
	matched, err := eval.Evaluate(prg, rec)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !matched {
		t.Fatal("Evaluate() = false, want true")
	}
}
