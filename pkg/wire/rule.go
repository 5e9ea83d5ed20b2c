package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/fxtack/fileguardcore/internal/domain/rule"
)

// ruleHeaderSize is sizeof({major: u16, minor: u16, patternBytes: u16}).
const ruleHeaderSize = 6

// EncodeRule writes r tightly packed as
// {major: u16, minor: u16, patternBytes: u16, pattern: utf-16} (§6).
func EncodeRule(r rule.Rule) []byte {
	pattern := encodeUTF16(r.Pattern)
	buf := make([]byte, ruleHeaderSize+len(pattern))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(r.Major))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(r.Minor))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(pattern)))
	copy(buf[ruleHeaderSize:], pattern)
	return buf
}

// DecodeRule parses one Rule from the front of b, returning the
// number of bytes consumed.
func DecodeRule(b []byte) (rule.Rule, int, error) {
	if len(b) < ruleHeaderSize {
		return rule.Rule{}, 0, fmt.Errorf("wire: short rule header (%d bytes)", len(b))
	}
	major := binary.LittleEndian.Uint16(b[0:2])
	minor := binary.LittleEndian.Uint16(b[2:4])
	patternBytes := int(binary.LittleEndian.Uint16(b[4:6]))
	total := ruleHeaderSize + patternBytes
	if len(b) < total {
		return rule.Rule{}, 0, fmt.Errorf("wire: rule pattern truncated")
	}
	r := rule.Rule{
		Major:   rule.MajorAction(major),
		Minor:   rule.MinorAction(minor),
		Pattern: decodeUTF16(b[ruleHeaderSize:total]),
	}
	return r, total, nil
}

// EncodeRules writes the AddRules/RemoveRules/QueryRules-reply blob:
// {count: u16, totalRulesBytes: u32, rules: [Rule…]} (§6).
func EncodeRules(rules []rule.Rule) []byte {
	encoded := make([][]byte, len(rules))
	total := 0
	for i, r := range rules {
		encoded[i] = EncodeRule(r)
		total += len(encoded[i])
	}

	buf := make([]byte, 6+total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(rules)))
	binary.LittleEndian.PutUint32(buf[2:6], uint32(total))
	offset := 6
	for _, e := range encoded {
		copy(buf[offset:], e)
		offset += len(e)
	}
	return buf
}

// DecodeRules parses the rules blob produced by EncodeRules.
func DecodeRules(b []byte) ([]rule.Rule, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("wire: short rules blob header")
	}
	count := int(binary.LittleEndian.Uint16(b[0:2]))
	totalRulesBytes := int(binary.LittleEndian.Uint32(b[2:6]))
	if len(b) < 6+totalRulesBytes {
		return nil, fmt.Errorf("wire: rules blob truncated")
	}

	rules := make([]rule.Rule, 0, count)
	offset := 6
	for i := 0; i < count; i++ {
		r, n, err := DecodeRule(b[offset:])
		if err != nil {
			return nil, fmt.Errorf("wire: decode rule %d: %w", i, err)
		}
		rules = append(rules, r)
		offset += n
	}
	return rules, nil
}
