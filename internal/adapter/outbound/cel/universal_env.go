package cel

import (
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// NewRecordEnvironment creates a CEL environment for filtering monitor
// records client-side (`fileguardctl monitor --filter`). It exposes
// one variable per monitor.Record field plus a glob() helper for path
// matching, so an operator can write expressions like
// `op == "write" && glob("*.secret", path)` without the engine itself
// ever evaluating untrusted CEL (classification stays rule.Match's
// job; this is purely a display-side filter).
func NewRecordEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),

		cel.Variable("op", cel.StringType),
		cel.Variable("set_info_kind", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("rename_path", cel.StringType),
		cel.Variable("matched_pattern", cel.StringType),
		cel.Variable("pid", cel.IntType),
		cel.Variable("tid", cel.IntType),
		cel.Variable("volume_serial", cel.IntType),
		cel.Variable("status", cel.IntType),
		cel.Variable("captured_at", cel.TimestampType),

		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p := pattern.Value().(string)
					n := name.Value().(string)
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),
	)
}

// BuildRecordActivation creates a CEL activation map from a decoded
// monitor record.
func BuildRecordActivation(rec monitor.Record) map[string]any {
	return map[string]any{
		"op":              rec.Op.String(),
		"set_info_kind":   rec.SetInfoKind.String(),
		"path":            rec.OriginalPath,
		"rename_path":     rec.RenameTargetPath,
		"matched_pattern": rec.MatchedPattern,
		"pid":             int64(rec.RequestorPID),
		"tid":             int64(rec.RequestorTID),
		"volume_serial":   int64(rec.VolumeSerial),
		"status":          int64(rec.Status),
		"captured_at":     rec.CapturedAt,
	}
}
