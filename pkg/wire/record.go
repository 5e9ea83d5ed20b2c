package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// recordFixedSize is the fixed portion of an encoded monitor record,
// up to but excluding the three variable-length path fields (§6):
// majorFn u8, minorFn u8, pid u64, tid u64, volumeSerial u64,
// fileId128 [16]u8, recordTime i64, opStatus i32, three u16 path
// lengths.
const recordFixedSize = 1 + 1 + 8 + 8 + 8 + 16 + 8 + 4 + 2 + 2 + 2

// ntEpochOffset is the number of 100ns ticks between 1601-01-01 (the
// NT epoch the source's FILETIME-style RecordTime uses) and the Unix
// epoch.
const ntEpochOffset = 116444736000000000

// toNTTicks converts t to 100ns ticks since the NT epoch.
func toNTTicks(t time.Time) int64 {
	return t.UnixNano()/100 + ntEpochOffset
}

// fromNTTicks converts 100ns ticks since the NT epoch back to a Time.
func fromNTTicks(ticks int64) time.Time {
	return time.Unix(0, (ticks-ntEpochOffset)*100).UTC()
}

// EncodeRecord writes rec in the monitor channel's per-record wire
// format (§6). Callers must ensure monitor.FitsInFrame(rec) before
// calling; EncodeRecord does not itself enforce the frame ceiling.
func EncodeRecord(rec monitor.Record) []byte {
	rulePath := encodeUTF16(rec.MatchedPattern)
	filePath := encodeUTF16(rec.OriginalPath)
	renamePath := encodeUTF16(rec.RenameTargetPath)

	buf := make([]byte, recordFixedSize+len(rulePath)+len(filePath)+len(renamePath))
	buf[0] = byte(rec.Op)
	buf[1] = byte(rec.SetInfoKind)
	binary.LittleEndian.PutUint64(buf[2:10], rec.RequestorPID)
	binary.LittleEndian.PutUint64(buf[10:18], rec.RequestorTID)
	binary.LittleEndian.PutUint64(buf[18:26], rec.VolumeSerial)
	copy(buf[26:42], rec.FileID[:])
	binary.LittleEndian.PutUint64(buf[42:50], uint64(toNTTicks(rec.CapturedAt)))
	binary.LittleEndian.PutUint32(buf[50:54], uint32(rec.Status))
	binary.LittleEndian.PutUint16(buf[54:56], uint16(len(rulePath)))
	binary.LittleEndian.PutUint16(buf[56:58], uint16(len(filePath)))
	binary.LittleEndian.PutUint16(buf[58:60], uint16(len(renamePath)))

	offset := recordFixedSize
	offset += copy(buf[offset:], rulePath)
	offset += copy(buf[offset:], filePath)
	copy(buf[offset:], renamePath)

	return buf
}

// DecodeRecord parses one monitor record from the front of b,
// returning the number of bytes consumed. It does not recover the
// matched rule's major/minor action (the wire format carries only the
// pattern text, per §6); callers needing the classification must
// cross-reference the pattern against a rule snapshot.
func DecodeRecord(b []byte) (monitor.Record, int, error) {
	if len(b) < recordFixedSize {
		return monitor.Record{}, 0, fmt.Errorf("wire: short record header (%d bytes)", len(b))
	}

	ruleLen := int(binary.LittleEndian.Uint16(b[54:56]))
	fileLen := int(binary.LittleEndian.Uint16(b[56:58]))
	renameLen := int(binary.LittleEndian.Uint16(b[58:60]))
	total := recordFixedSize + ruleLen + fileLen + renameLen
	if len(b) < total {
		return monitor.Record{}, 0, fmt.Errorf("wire: record paths truncated")
	}

	rec := monitor.Record{
		Op:           monitor.OperationKind(b[0]),
		SetInfoKind:  monitor.SetInformationKind(b[1]),
		RequestorPID: binary.LittleEndian.Uint64(b[2:10]),
		RequestorTID: binary.LittleEndian.Uint64(b[10:18]),
		VolumeSerial: binary.LittleEndian.Uint64(b[18:26]),
		CapturedAt:   fromNTTicks(int64(binary.LittleEndian.Uint64(b[42:50]))),
		Status:       int32(binary.LittleEndian.Uint32(b[50:54])),
	}
	copy(rec.FileID[:], b[26:42])

	offset := recordFixedSize
	rec.MatchedPattern = decodeUTF16(b[offset : offset+ruleLen])
	offset += ruleLen
	rec.OriginalPath = decodeUTF16(b[offset : offset+fileLen])
	offset += fileLen
	rec.RenameTargetPath = decodeUTF16(b[offset : offset+renameLen])

	return rec, total, nil
}

// EncodeFrame packs as many records as fit into a single FrameSize
// body, matching the monitor worker's own packing rule (§4.D): a
// record that would overflow the current frame starts a new one.
// EncodeFrame never splits a record, mirroring that invariant.
func EncodeFrame(records []monitor.Record) [][]byte {
	var frames [][]byte
	var current []byte

	flush := func() {
		if len(current) > 0 {
			frames = append(frames, current)
			current = nil
		}
	}

	for _, rec := range records {
		enc := EncodeRecord(rec)
		if len(current)+len(enc) > monitor.FrameSize {
			flush()
		}
		current = append(current, enc...)
	}
	flush()

	return frames
}
