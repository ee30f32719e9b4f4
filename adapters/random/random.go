// Package random provides the entropy behind API keys and signing secrets.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/artpar/postmeta/ports"
)

// Real reads from crypto/rand.
type Real struct{}

// Bytes returns n random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// String returns n random hex characters.
func (r Real) String(n int) (string, error) {
	return hexString(r, n)
}

// Fake is a reproducible source for tests. Preset values are returned
// first, padded with zeros or truncated to the requested length. After
// that each call yields counter, counter+1, ... for an increasing counter.
type Fake struct {
	mu      sync.Mutex
	presets [][]byte
	next    int
	calls   int
}

// NewFake returns a fake with no presets.
func NewFake() *Fake {
	return &Fake{}
}

// WithValues replaces the presets and rewinds to the first one.
func (f *Fake) WithValues(values ...[]byte) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presets, f.next = values, 0
	return f
}

// Bytes returns the next preset or counter-derived bytes.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := make([]byte, n)
	if f.next < len(f.presets) {
		copy(b, f.presets[f.next])
		f.next++
		return b, nil
	}
	f.calls++
	for i := range b {
		b[i] = byte(f.calls + i)
	}
	return b, nil
}

// String returns n hex characters of fake bytes.
func (f *Fake) String(n int) (string, error) {
	return hexString(f, n)
}

// Reset rewinds presets and the counter.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next, f.calls = 0, 0
}

func hexString(r ports.Random, n int) (string, error) {
	b, err := r.Bytes((n + 1) / 2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}

var (
	_ ports.Random = Real{}
	_ ports.Random = (*Fake)(nil)
)
