// Package scratch builds short per-frame strings (window titles, log keys)
// in a reused byte buffer instead of going through fmt every frame.
package scratch

import "strconv"

// Buffer is a reusable append buffer. The zero value is ready to use. Not
// safe for concurrent use.
type Buffer struct {
	b []byte
}

// New returns a Buffer with room for capacity bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &Buffer{b: make([]byte, 0, capacity)}
}

// Reset empties the buffer and keeps its memory.
func (s *Buffer) Reset() *Buffer {
	s.b = s.b[:0]
	return s
}

func (s *Buffer) Len() int { return len(s.b) }
func (s *Buffer) Cap() int { return cap(s.b) }

func (s *Buffer) S(v string) *Buffer {
	s.b = append(s.b, v...)
	return s
}

func (s *Buffer) C(c byte) *Buffer {
	s.b = append(s.b, c)
	return s
}

// I appends a base-10 integer.
func (s *Buffer) I(v int) *Buffer {
	s.b = strconv.AppendInt(s.b, int64(v), 10)
	return s
}

// U appends an unsigned base-10 integer.
func (s *Buffer) U(v uint64) *Buffer {
	s.b = strconv.AppendUint(s.b, v, 10)
	return s
}

// F64 appends v with prec digits after the point: F64(3.14159, 2) is "3.14".
func (s *Buffer) F64(v float64, prec int) *Buffer {
	s.b = strconv.AppendFloat(s.b, v, 'f', prec, 64)
	return s
}

// Bytes aliases the buffer until the next append or Reset.
func (s *Buffer) Bytes() []byte { return s.b }

// String copies the contents.
func (s *Buffer) String() string { return string(s.b) }
