package stream

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
)

// chunkReader returns one chunk per Read call, then EOF or a final error
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func stringChunks(parts ...string) [][]byte {
	chunks := make([][]byte, len(parts))
	for i, p := range parts {
		chunks[i] = []byte(p)
	}
	return chunks
}

func TestDecoder_SplitMultiByte(t *testing.T) {
	// "é" is 0xC3 0xA9, "世" is 0xE4 0xB8 0x96, "😀" is 4 bytes
	input := []byte("é世😀")

	dec := NewDecoder()
	var got strings.Builder
	for i := range input {
		got.WriteString(dec.Decode(input[i : i+1]))
	}
	got.WriteString(dec.Flush())

	if got.String() != "é世😀" {
		t.Errorf("decoded = %q, want %q", got.String(), "é世😀")
	}
	if strings.ContainsRune(got.String(), '�') {
		t.Error("decoded text contains replacement characters")
	}
}

func TestDecoder_HoldsIncompleteSequence(t *testing.T) {
	dec := NewDecoder()

	if out := dec.Decode([]byte{'a', 0xE4, 0xB8}); out != "a" {
		t.Errorf("Decode() = %q, want %q", out, "a")
	}
	if dec.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", dec.Pending())
	}
	if out := dec.Decode([]byte{0x96, 'b'}); out != "世b" {
		t.Errorf("Decode() = %q, want %q", out, "世b")
	}
	if dec.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", dec.Pending())
	}
}

func TestDecoder_FlushTruncated(t *testing.T) {
	dec := NewDecoder()
	_ = dec.Decode([]byte{0xE4, 0xB8})

	if out := dec.Flush(); out != "�" {
		t.Errorf("Flush() = %q, want a single replacement character", out)
	}
	if dec.Flush() != "" {
		t.Error("second Flush() should be empty")
	}
}

func TestDecoder_InvalidBytesReplaced(t *testing.T) {
	dec := NewDecoder()
	out := dec.Decode([]byte{'x', 0xFF, 'y'})
	if out != "x�y" {
		t.Errorf("Decode() = %q, want %q", out, "x�y")
	}
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()

	text, changed := acc.Write([]byte("4"))
	if text != "4" || !changed {
		t.Errorf("Write() = %q, %v", text, changed)
	}
	text, changed = acc.Write(nil)
	if text != "4" || changed {
		t.Errorf("empty Write() = %q, %v", text, changed)
	}
	text, changed = acc.Write([]byte(" exactly"))
	if text != "4 exactly" || !changed {
		t.Errorf("Write() = %q, %v", text, changed)
	}
	if text, changed = acc.Close(); text != "4 exactly" || changed {
		t.Errorf("Close() = %q, %v", text, changed)
	}
}

func TestConsume_Updates(t *testing.T) {
	r := &chunkReader{chunks: stringChunks("4", "", " exactly")}

	var updates []string
	final, err := Consume(context.Background(), r, func(text string) {
		updates = append(updates, text)
	})
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if final != "4 exactly" {
		t.Errorf("final = %q, want %q", final, "4 exactly")
	}

	want := []string{"4", "4 exactly"}
	if len(updates) != len(want) {
		t.Fatalf("updates = %q, want %q", updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("updates[%d] = %q, want %q", i, updates[i], want[i])
		}
	}
}

func TestConsume_MonotonicGrowth(t *testing.T) {
	r := &chunkReader{chunks: stringChunks("a", "bc", "def")}

	prev := ""
	_, err := Consume(context.Background(), r, func(text string) {
		if !strings.HasPrefix(text, prev) || len(text) <= len(prev) {
			t.Errorf("update %q does not extend %q", text, prev)
		}
		prev = text
	})
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
}

func TestConsume_RandomSplits(t *testing.T) {
	inputs := []string{
		"plain ascii response",
		"Grüße aus Köln – ça va? ¿Qué tal?",
		"数学: 2+2=4。答えは四です。",
		"emoji 😀🎉👍🏽 mixed with text",
		"",
	}

	rng := rand.New(rand.NewSource(42))
	for _, input := range inputs {
		data := []byte(input)
		for round := 0; round < 50; round++ {
			var chunks [][]byte
			rest := data
			for len(rest) > 0 {
				n := rng.Intn(len(rest)) + 1
				if n > 5 {
					n = rng.Intn(5) + 1
				}
				chunks = append(chunks, append([]byte(nil), rest[:n]...))
				rest = rest[n:]
			}

			final, err := Consume(context.Background(), &chunkReader{chunks: chunks}, nil)
			if err != nil {
				t.Fatalf("Consume() error = %v", err)
			}
			if final != input {
				t.Fatalf("round %d: final = %q, want %q", round, final, input)
			}
		}
	}
}

func TestConsume_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: stringChunks("partial"), err: boom}

	final, err := Consume(context.Background(), r, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Consume() error = %v, want %v", err, boom)
	}
	if final != "partial" {
		t.Errorf("final = %q, want %q", final, "partial")
	}
}

func TestConsume_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &chunkReader{chunks: stringChunks("one", "two", "three")}

	final, err := Consume(ctx, r, func(text string) {
		if text == "one" {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() error = %v, want context.Canceled", err)
	}
	if final != "one" {
		t.Errorf("final = %q, want %q", final, "one")
	}
}
