// Package wire implements the control and monitor binary wire
// protocols described in spec.md §6: a length-prefixed, typed
// request/reply protocol for the control channel, and a framed,
// uni-directional record stream for the monitor channel.
//
// All integers are little-endian. Path and pattern strings are
// encoded as UTF-16 (unicode/utf16 — no example repo or ecosystem
// library in the source pack implements NT-style UTF-16 wire framing,
// so this package is this repo's second documented stdlib exception
// alongside rule.Match; see DESIGN.md).
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// MessageType identifies a control-channel request/reply pair (§6).
type MessageType uint32

const (
	GetCoreVersion MessageType = iota
	SetUnloadAcceptable
	SetDetachAcceptable
	AddRules
	RemoveRules
	QueryRules
	CheckMatchedRule
	CleanupRules
)

// String renders the message type for logs and CLI error output.
func (t MessageType) String() string {
	switch t {
	case GetCoreVersion:
		return "GetCoreVersion"
	case SetUnloadAcceptable:
		return "SetUnloadAcceptable"
	case SetDetachAcceptable:
		return "SetDetachAcceptable"
	case AddRules:
		return "AddRules"
	case RemoveRules:
		return "RemoveRules"
	case QueryRules:
		return "QueryRules"
	case CheckMatchedRule:
		return "CheckMatchedRule"
	case CleanupRules:
		return "CleanupRules"
	default:
		return fmt.Sprintf("MessageType(%d)", uint32(t))
	}
}

// RequestHeader is the fixed header prefixing every request body
// (§6: "{ type: u32, totalSize: u32 }").
type RequestHeader struct {
	Type      MessageType
	TotalSize uint32
}

// ReplyHeader is the fixed header prefixing every reply payload
// (§6: "{ resultCode: u32, size: u32, payload… }").
type ReplyHeader struct {
	ResultCode uint32
	Size       uint32
}

const requestHeaderSize = 8
const replyHeaderSize = 8

// EncodeRequestHeader writes h in wire format.
func EncodeRequestHeader(h RequestHeader) []byte {
	buf := make([]byte, requestHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.LittleEndian.PutUint32(buf[4:8], h.TotalSize)
	return buf
}

// DecodeRequestHeader parses a RequestHeader from the front of b.
func DecodeRequestHeader(b []byte) (RequestHeader, error) {
	if len(b) < requestHeaderSize {
		return RequestHeader{}, fmt.Errorf("wire: short request header (%d bytes)", len(b))
	}
	return RequestHeader{
		Type:      MessageType(binary.LittleEndian.Uint32(b[0:4])),
		TotalSize: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// EncodeReplyHeader writes h in wire format.
func EncodeReplyHeader(h ReplyHeader) []byte {
	buf := make([]byte, replyHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.ResultCode)
	binary.LittleEndian.PutUint32(buf[4:8], h.Size)
	return buf
}

// DecodeReplyHeader parses a ReplyHeader from the front of b.
func DecodeReplyHeader(b []byte) (ReplyHeader, error) {
	if len(b) < replyHeaderSize {
		return ReplyHeader{}, fmt.Errorf("wire: short reply header (%d bytes)", len(b))
	}
	return ReplyHeader{
		ResultCode: binary.LittleEndian.Uint32(b[0:4]),
		Size:       binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// CoreVersion is the GetCoreVersion reply payload.
type CoreVersion struct {
	Major, Minor, Patch, Build uint16
}

// EncodeCoreVersion writes v in wire format.
func EncodeCoreVersion(v CoreVersion) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], v.Major)
	binary.LittleEndian.PutUint16(buf[2:4], v.Minor)
	binary.LittleEndian.PutUint16(buf[4:6], v.Patch)
	binary.LittleEndian.PutUint16(buf[6:8], v.Build)
	return buf
}

// DecodeCoreVersion parses a CoreVersion reply payload.
func DecodeCoreVersion(b []byte) (CoreVersion, error) {
	if len(b) < 8 {
		return CoreVersion{}, fmt.Errorf("wire: short core version payload (%d bytes)", len(b))
	}
	return CoreVersion{
		Major: binary.LittleEndian.Uint16(b[0:2]),
		Minor: binary.LittleEndian.Uint16(b[2:4]),
		Patch: binary.LittleEndian.Uint16(b[4:6]),
		Build: binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// EncodeBool writes a one-byte boolean payload (SetUnloadAcceptable /
// SetDetachAcceptable request bodies).
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool parses a one-byte boolean payload.
func DecodeBool(b []byte) (bool, error) {
	if len(b) < 1 {
		return false, fmt.Errorf("wire: empty bool payload")
	}
	return b[0] != 0, nil
}

// EncodePath writes a {pathBytes: u16, path: utf-16} payload
// (CheckMatchedRule request body).
func EncodePath(path string) []byte {
	encoded := encodeUTF16(path)
	buf := make([]byte, 2+len(encoded))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(encoded)))
	copy(buf[2:], encoded)
	return buf
}

// DecodePath parses a {pathBytes: u16, path: utf-16} payload.
func DecodePath(b []byte) (string, error) {
	if len(b) < 2 {
		return "", fmt.Errorf("wire: short path payload")
	}
	n := binary.LittleEndian.Uint16(b[0:2])
	if len(b) < 2+int(n) {
		return "", fmt.Errorf("wire: path payload truncated")
	}
	return decodeUTF16(b[2 : 2+int(n)]), nil
}

// EncodeRemovedCount writes a {removedCount: u32} payload.
func EncodeRemovedCount(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

// DecodeRemovedCount parses a {removedCount: u32} payload.
func DecodeRemovedCount(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("wire: short removed-count payload")
	}
	return binary.LittleEndian.Uint32(b), nil
}

func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := new(bytes.Buffer)
	buf.Grow(len(units) * 2)
	for _, u := range units {
		_ = binary.Write(buf, binary.LittleEndian, u)
	}
	return buf.Bytes()
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return string(utf16.Decode(units))
}
