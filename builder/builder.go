// Package builder accumulates bytes for a response before it is written in one call.
package builder

import (
	"errors"
	"unicode/utf8"
)

// DefaultCapacity is the initial capacity of a Builder created with New(0).
const DefaultCapacity = 1024

// ErrInvalidUTF8 is returned by String when the accumulated bytes are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("builder: accumulated bytes are not valid UTF-8")

// Builder is an append-only byte accumulator. The zero value is ready to use.
type Builder struct {
	buf []byte
}

// New returns a Builder with the given initial capacity, or DefaultCapacity if capacity <= 0.
func New(capacity int) *Builder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Builder{buf: make([]byte, 0, capacity)}
}

func (b *Builder) AppendString(s string) {
	b.buf = append(b.buf, s...)
}

func (b *Builder) AppendBytes(p []byte) {
	b.buf = append(b.buf, p...)
}

func (b *Builder) AppendByte(c byte) {
	b.buf = append(b.buf, c)
}

func (b *Builder) AppendRune(r rune) {
	b.buf = utf8.AppendRune(b.buf, r)
}

// Write implements io.Writer so the builder can be used with fmt.Fprintf. It never fails.
func (b *Builder) Write(p []byte) (int, error) {
	b.AppendBytes(p)
	return len(p), nil
}

func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes returns the accumulated bytes. The slice aliases the builder's storage.
func (b *Builder) Bytes() []byte {
	return b.buf
}

func (b *Builder) String() (string, error) {
	if !utf8.Valid(b.buf) {
		return "", ErrInvalidUTF8
	}
	return string(b.buf), nil
}
