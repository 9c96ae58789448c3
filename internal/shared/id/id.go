// Package id provides identifier generation and validation for trace data.
//
// This package offers:
//   - 64-bit span/trace identifiers: 16 lowercase hex characters
//   - 128-bit trace identifiers: 32 lowercase hex characters
//   - Validation of identifiers received from callers or the wire
//   - Prefixed ULID batch identifiers for correlating report log lines
//   - UUID instance identifiers for the running process
//
// Identifiers are strings, not numbers: leading zeros are significant and
// must round-trip unchanged through propagation headers.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Identifier Formats
// ============================================================================

const (
	// SpanIDLength is the hex length of a 64-bit identifier
	SpanIDLength = 16
	// TraceID128Length is the hex length of a 128-bit trace identifier
	TraceID128Length = 32

	// BatchPrefix marks report batch identifiers in logs
	BatchPrefix = "batch"
)

// BatchID identifies one report call
type BatchID string

func (id BatchID) String() string { return string(id) }

// ============================================================================
// Generator
// ============================================================================

// Generator produces random identifiers from an entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator backed by crypto/rand
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate returns a fresh 64-bit identifier as 16 lowercase hex characters.
// It panics if the entropy source fails.
func (g *Generator) Generate() string {
	var buf [8]byte
	g.read(buf[:])
	return hex.EncodeToString(buf[:])
}

// Generate128 returns a fresh 128-bit trace identifier as 32 lowercase hex
// characters. Every bit is random, so the low half is a full 64-bit id.
func (g *Generator) Generate128() string {
	var buf [16]byte
	g.read(buf[:])
	return hex.EncodeToString(buf[:])
}

// InstanceID returns a random UUID identifying one running process
func (g *Generator) InstanceID() string {
	g.entropyMu.Lock()
	u, err := uuid.NewRandomFromReader(g.entropy)
	g.entropyMu.Unlock()
	if err != nil {
		panic(fmt.Sprintf("id: entropy source failed: %v", err))
	}
	return u.String()
}

// ULID creates a new ULID from the generator's entropy
func (g *Generator) ULID() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateBatch generates multiple 64-bit identifiers under one lock
func (g *Generator) GenerateBatch(count int) []string {
	buf := make([]byte, 8*count)
	g.read(buf)

	ids := make([]string, count)
	for i := 0; i < count; i++ {
		ids[i] = hex.EncodeToString(buf[i*8 : (i+1)*8])
	}
	return ids
}

func (g *Generator) read(buf []byte) {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	if _, err := io.ReadFull(g.entropy, buf); err != nil {
		panic(fmt.Sprintf("id: entropy source failed: %v", err))
	}
}

// ============================================================================
// Package-level helpers
// ============================================================================

// Generate returns a fresh 64-bit identifier from the default generator
func Generate() string {
	return Default().Generate()
}

// Generate128 returns a fresh 128-bit identifier from the default generator
func Generate128() string {
	return Default().Generate128()
}

// InstanceID returns a fresh process identifier from the default generator
func InstanceID() string {
	return Default().InstanceID()
}

// NewBatchID generates a new report batch ID
func NewBatchID() BatchID {
	return BatchID(fmt.Sprintf("%s_%s", BatchPrefix, Default().ULID().String()))
}

// ============================================================================
// Validation
// ============================================================================

// IsValidTraceID reports whether value is 16 or 32 hex characters
func IsValidTraceID(value string) bool {
	return (len(value) == SpanIDLength || len(value) == TraceID128Length) && isHex(value)
}

// IsValidSpanID reports whether value is exactly 16 hex characters.
// Absent parent ids must be handled by the caller before this check.
func IsValidSpanID(value string) bool {
	return len(value) == SpanIDLength && isHex(value)
}

// isHex returns true if the string is non-empty and contains only hex digits
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
