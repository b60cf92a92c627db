package state

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	segmentMarker = 0x01
	itemMarker    = 0x00

	// MaxSegmentLength bounds a single path segment.
	MaxSegmentLength = 255
)

// Path addresses a subtree. Segments are opaque bytes.
type Path [][]byte

// P builds a path from string and byte segments.
func P(segments ...interface{}) Path {
	out := make(Path, 0, len(segments))
	for _, s := range segments {
		switch v := s.(type) {
		case string:
			out = append(out, []byte(v))
		case []byte:
			out = append(out, v)
		default:
			panic(fmt.Sprintf("unsupported path segment %T", s))
		}
	}
	return out
}

// Child returns a copy of p extended with seg.
func (p Path) Child(seg []byte) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Prefix is the encoded path. Every segment is marked and length-prefixed
// so a subtree never shares a prefix with an item of its parent.
func (p Path) Prefix() []byte {
	var buf bytes.Buffer
	for _, seg := range p {
		if len(seg) > MaxSegmentLength {
			panic(fmt.Sprintf("path segment too long: %d", len(seg)))
		}
		buf.WriteByte(segmentMarker)
		buf.WriteByte(byte(len(seg)))
		buf.Write(seg)
	}
	return buf.Bytes()
}

// ItemPrefix is the prefix shared by the items directly under p.
func (p Path) ItemPrefix() []byte {
	return append(p.Prefix(), itemMarker)
}

// Key returns the storage key of item key under p.
func (p Path) Key(key []byte) []byte {
	return append(p.ItemPrefix(), key...)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if isPrintable(seg) {
			parts[i] = string(seg)
		} else {
			parts[i] = fmt.Sprintf("0x%x", seg)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// ParsePath is the inverse of String: segments are text unless written as
// 0x-prefixed hex.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("empty segment in path %q", s)
		}
		seg := []byte(part)
		if strings.HasPrefix(part, "0x") {
			b, err := hexutil.Decode(part)
			if err != nil {
				return nil, fmt.Errorf("segment %q: %w", part, err)
			}
			seg = b
		}
		if len(seg) > MaxSegmentLength {
			return nil, fmt.Errorf("segment %q too long", part)
		}
		out = append(out, seg)
	}
	return out, nil
}

func isPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// ElementSize is the number of bytes an element is priced at: the storage
// key plus the value. Flags are metadata and are not priced.
func ElementSize(path Path, key, value []byte) uint64 {
	return uint64(len(path.Key(key)) + len(value))
}

// PathQuery selects items directly under Path in ascending key order.
// With Key set it selects at most that single item. StartAfter and Limit
// page through larger subtrees; Limit 0 means unlimited.
type PathQuery struct {
	Path       Path
	Key        []byte
	StartAfter []byte
	Limit      int
}
