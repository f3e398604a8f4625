// Package stream turns a chunked byte stream into incrementally growing text.
package stream

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder converts byte chunks to UTF-8 text. A multi-byte character split
// across chunk boundaries is held back until the rest of it arrives.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// NewDecoder creates a UTF-8 decoder with an empty carry-over buffer
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the complete characters available after appending chunk.
func (d *Decoder) Decode(chunk []byte) string {
	return d.run(chunk, false)
}

// Flush returns whatever is still buffered. An incomplete sequence left at
// the end of the stream is emitted as U+FFFD.
func (d *Decoder) Flush() string {
	out := d.run(nil, true)
	d.t.Reset()
	return out
}

// Pending returns the number of bytes held back for the next chunk
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) run(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	// Invalid bytes expand to a 3-byte RuneError, so this never runs short.
	if need := len(src)*3 + utf8.UTFMax; cap(d.dst) < need {
		d.dst = make([]byte, need)
	}
	dst := d.dst[:cap(d.dst)]

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch err {
		case transform.ErrShortDst:
			dst = make([]byte, len(dst)*2)
			continue
		case transform.ErrShortSrc:
			d.pending = append([]byte(nil), src...)
		}
		return out.String()
	}
}
