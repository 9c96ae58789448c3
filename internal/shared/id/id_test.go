package id

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1 == id2 {
		t.Error("Generated IDs should be unique")
	}

	if len(id1) != SpanIDLength {
		t.Errorf("ID should be %d characters, got %d", SpanIDLength, len(id1))
	}

	if strings.ToLower(id1) != id1 {
		t.Errorf("ID should be lowercase, got %s", id1)
	}

	if !IsValidSpanID(id1) {
		t.Errorf("Generated ID should be a valid span id: %s", id1)
	}
}

func TestGenerateKeepsLeadingZeros(t *testing.T) {
	entropy := bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	gen := NewGeneratorWithEntropy(entropy)

	got := gen.Generate()
	if got != "0000000000000001" {
		t.Errorf("expected zero-padded id, got %s", got)
	}
}

func TestGenerate128(t *testing.T) {
	gen := NewGenerator()

	traceID := gen.Generate128()

	if len(traceID) != TraceID128Length {
		t.Errorf("128-bit ID should be %d characters, got %d", TraceID128Length, len(traceID))
	}

	if !IsValidTraceID(traceID) {
		t.Errorf("128-bit ID should be a valid trace id: %s", traceID)
	}

	if IsValidSpanID(traceID) {
		t.Errorf("128-bit ID should not be a valid span id: %s", traceID)
	}
}

func TestGenerate128UsesEveryEntropyBit(t *testing.T) {
	entropy := bytes.Repeat([]byte{0xff}, 16)
	gen := NewGeneratorWithEntropy(bytes.NewReader(entropy))

	got := gen.Generate128()
	if got != strings.Repeat("f", TraceID128Length) {
		t.Errorf("128-bit ID should carry the entropy unchanged, got %s", got)
	}

	zeros := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 16)))
	low := zeros.Generate128()[TraceID128Length-SpanIDLength:]
	if low != "0000000000000000" {
		t.Errorf("low 64 bits should not carry fixed version bits, got %s", low)
	}
}

func TestInstanceID(t *testing.T) {
	gen := NewGenerator()

	a := gen.InstanceID()
	b := gen.InstanceID()
	if a == b {
		t.Error("instance IDs should be unique")
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("instance ID should be a UUID, got %s", a)
	}
	if InstanceID() == "" {
		t.Error("package-level instance ID should not be empty")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

func TestGeneratePanicsOnEntropyFailure(t *testing.T) {
	gen := NewGeneratorWithEntropy(failingReader{})

	defer func() {
		if recover() == nil {
			t.Error("Generate should panic when entropy fails")
		}
	}()

	gen.Generate()
}

func TestGenerateBatch(t *testing.T) {
	gen := NewGenerator()

	ids := gen.GenerateBatch(100)
	if len(ids) != 100 {
		t.Fatalf("expected 100 ids, got %d", len(ids))
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		if !IsValidSpanID(id) {
			t.Errorf("batch ID should be valid: %s", id)
		}
		if seen[id] {
			t.Errorf("duplicate ID in batch: %s", id)
		}
		seen[id] = true
	}
}

func TestNewBatchID(t *testing.T) {
	batch := NewBatchID()

	if !strings.HasPrefix(batch.String(), BatchPrefix+"_") {
		t.Errorf("BatchID should start with '%s_', got: %s", BatchPrefix, batch)
	}

	if NewBatchID() == batch {
		t.Error("BatchIDs should be unique")
	}
}

func TestIsValidSpanID(t *testing.T) {
	valid := []string{
		"abcdef0123456789",
		"ABCDEF0123456789",
		"0000000000000000",
		"463ac35c9f6413ad",
	}
	for _, s := range valid {
		if !IsValidSpanID(s) {
			t.Errorf("span id should be valid: %q", s)
		}
	}

	invalid := []string{
		"",
		"1234",
		"abcdef012345678",   // 15 chars
		"abcdef01234567890", // 17 chars
		"abcdef012345678g",
		"abcdef01-3456789",
		"463ac35c9f6413ad48485a3953bb6124",
		" bcdef0123456789",
	}
	for _, s := range invalid {
		if IsValidSpanID(s) {
			t.Errorf("span id should be invalid: %q", s)
		}
	}
}

func TestIsValidTraceID(t *testing.T) {
	valid := []string{
		"abcdef0123456789",
		"463ac35c9f6413ad48485a3953bb6124",
		"463AC35C9F6413AD48485A3953BB6124",
	}
	for _, s := range valid {
		if !IsValidTraceID(s) {
			t.Errorf("trace id should be valid: %q", s)
		}
	}

	invalid := []string{
		"",
		"1234",
		"463ac35c9f6413ad4",                 // 17 chars
		"463ac35c9f6413ad48485a3953bb612",   // 31 chars
		"463ac35c9f6413ad48485a3953bb61245", // 33 chars
		"463ac35c9f6413ad48485a3953bb612z",
		"zzzzzzzzzzzzzzzz",
	}
	for _, s := range invalid {
		if IsValidTraceID(s) {
			t.Errorf("trace id should be invalid: %q", s)
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, idsPerGoroutine)
			for j := 0; j < idsPerGoroutine; j++ {
				local = append(local, gen.Generate())
			}

			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate ID generated: %s", id)
				}
				seen[id] = true
			}
		}()
	}

	wg.Wait()

	if len(seen) != goroutines*idsPerGoroutine {
		t.Errorf("expected %d unique IDs, got %d", goroutines*idsPerGoroutine, len(seen))
	}
}

func BenchmarkGenerate(b *testing.B) {
	gen := NewGenerator()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.Generate()
	}
}

func BenchmarkIsValidTraceID(b *testing.B) {
	traceID := "463ac35c9f6413ad48485a3953bb6124"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsValidTraceID(traceID)
	}
}
