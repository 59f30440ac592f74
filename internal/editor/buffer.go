package editor

import (
	"io"
	"strings"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

// Buffer accumulates inserted text. It has no notion of regions or cursor
// position; every insertion goes to the end.
type Buffer struct {
	b strings.Builder
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append inserts text as-is. Single-region insertion uses this path, so
// consecutive clicks produce run-together text.
func (b *Buffer) Append(text string) {
	b.b.WriteString(text)
}

// AppendLine inserts text followed by a newline.
func (b *Buffer) AppendLine(text string) {
	b.b.WriteString(text)
	b.b.WriteByte('\n')
}

// AppendAll inserts every region's text on its own line, in order.
func (b *Buffer) AppendAll(regs []regions.Region) {
	for _, r := range regs {
		b.AppendLine(r.Text)
	}
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.b.Reset()
}

// Contents returns the full text.
func (b *Buffer) Contents() string {
	return b.b.String()
}

// Len returns the size of the contents in bytes.
func (b *Buffer) Len() int {
	return b.b.Len()
}

// WriteTo writes the contents to w verbatim.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, b.b.String())
	return int64(n), err
}
