package stream

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ChunkSize is the read buffer size used by Consume
const ChunkSize = 4096

// Accumulator collects decoded text from successive chunks
type Accumulator struct {
	dec  *Decoder
	text strings.Builder
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{dec: NewDecoder()}
}

// Write decodes chunk and appends it. It returns the accumulated text and
// whether the chunk added any characters.
func (a *Accumulator) Write(chunk []byte) (string, bool) {
	decoded := a.dec.Decode(chunk)
	if decoded == "" {
		return a.text.String(), false
	}
	a.text.WriteString(decoded)
	return a.text.String(), true
}

// Close flushes the decoder at end of stream
func (a *Accumulator) Close() (string, bool) {
	tail := a.dec.Flush()
	if tail == "" {
		return a.text.String(), false
	}
	a.text.WriteString(tail)
	return a.text.String(), true
}

// String returns the text accumulated so far
func (a *Accumulator) String() string {
	return a.text.String()
}

// Consume reads r chunk by chunk until EOF, calling onText with the full
// accumulated text each time it grows. Updates are delivered in read order.
//
// On a read failure or cancellation the text accumulated so far is returned
// together with the error.
func Consume(ctx context.Context, r io.Reader, onText func(text string)) (string, error) {
	acc := NewAccumulator()
	buf := make([]byte, ChunkSize)

	emit := func(text string, changed bool) {
		if changed && onText != nil {
			onText(text)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return acc.String(), err
		}

		n, err := r.Read(buf)
		if n > 0 {
			emit(acc.Write(buf[:n]))
		}

		if errors.Is(err, io.EOF) {
			emit(acc.Close())
			return acc.String(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc.String(), ctxErr
			}
			return acc.String(), err
		}
	}
}
