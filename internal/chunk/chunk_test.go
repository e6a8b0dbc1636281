package chunk

import (
	"errors"
	"strings"
	"testing"
)

func reassemble(parts []Chunk) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Payload)
	}
	return b.String()
}

func TestSplitSingleChunkWhenFits(t *testing.T) {
	t.Parallel()
	parts, err := Split("hello", 100)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("len(parts) = %d, want 1", len(parts))
	}
	if parts[0].Index != 0 || parts[0].Total != 1 || parts[0].Payload != "hello" {
		t.Fatalf("unexpected chunk: %+v", parts[0])
	}
}

func TestSplitInvalidSize(t *testing.T) {
	t.Parallel()
	for _, size := range []int{0, -1, -100} {
		if _, err := Split("x", size); !errors.Is(err, ErrInvalidChunkSize) {
			t.Fatalf("Split(_, %d) error = %v, want ErrInvalidChunkSize", size, err)
		}
	}
}

func TestSplit250Into100(t *testing.T) {
	t.Parallel()
	payload := strings.Repeat("a", 250)
	parts, err := Split(payload, 100)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("len(parts) = %d, want 3", len(parts))
	}
	for _, p := range parts {
		if len(p.Payload) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d bytes", p.Index, len(p.Payload))
		}
		if p.Total != 3 {
			t.Fatalf("chunk %d Total = %d, want 3", p.Index, p.Total)
		}
	}
	if got := reassemble(parts); got != payload {
		t.Fatal("concatenation does not reproduce the payload")
	}
}

func TestSplitPrefersNewlineNearBudget(t *testing.T) {
	t.Parallel()
	// Newline at byte 94 sits inside the last 10% of a 100-byte budget, so the
	// first chunk should end right after it.
	payload := strings.Repeat("a", 94) + "\n" + strings.Repeat("b", 60)
	parts, err := Split(payload, 100)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if !strings.HasSuffix(parts[0].Payload, "\n") {
		t.Fatalf("first chunk should break at a newline, got %q tail", parts[0].Payload[len(parts[0].Payload)-5:])
	}
	if len(parts[0].Payload) != 95 {
		t.Fatalf("first chunk length = %d, want 95", len(parts[0].Payload))
	}
	if got := reassemble(parts); got != payload {
		t.Fatal("concatenation does not reproduce the payload")
	}
}

func TestSplitHardCutWhenNoNewlineInWindow(t *testing.T) {
	t.Parallel()
	// Newline at byte 10 is outside the last-10% window, so a hard cut at the
	// full budget applies.
	payload := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 189)
	parts, err := Split(payload, 100)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(parts[0].Payload) != 100 {
		t.Fatalf("first chunk length = %d, want 100 (hard cut)", len(parts[0].Payload))
	}
	if got := reassemble(parts); got != payload {
		t.Fatal("concatenation does not reproduce the payload")
	}
}

func TestSplitReassemblyProperty(t *testing.T) {
	t.Parallel()
	payloads := []string{
		"",
		"short",
		strings.Repeat("line one\nline two\nline three\n", 40),
		strings.Repeat("x", 1000),
		strings.Repeat("word ", 123) + "\nend",
	}
	sizes := []int{1, 3, 7, 10, 64, 100, 999, 5000}

	for _, payload := range payloads {
		for _, size := range sizes {
			parts, err := Split(payload, size)
			if err != nil {
				t.Fatalf("Split(len=%d, %d) error: %v", len(payload), size, err)
			}
			if got := reassemble(parts); got != payload {
				t.Fatalf("Split(len=%d, %d): concatenation mismatch", len(payload), size)
			}
			minCount := (len(payload) + size - 1) / size
			if minCount == 0 {
				minCount = 1
			}
			// Newline-aligned breaks may cost at most one extra chunk per
			// minimal count; in practice stay within ceil+len/size slack.
			if len(parts) < minCount {
				t.Fatalf("Split(len=%d, %d): %d chunks, below minimum %d", len(payload), size, len(parts), minCount)
			}
			for _, p := range parts {
				if len(p.Payload) > size {
					t.Fatalf("Split(len=%d, %d): chunk %d oversize (%d)", len(payload), size, p.Index, len(p.Payload))
				}
				if p.Total != len(parts) {
					t.Fatalf("chunk %d Total = %d, want %d", p.Index, p.Total, len(parts))
				}
			}
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	t.Parallel()
	payload := strings.Repeat("alpha beta gamma\n", 50)
	a, err := Split(payload, 64)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	b, err := Split(payload, 64)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}
