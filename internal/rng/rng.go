// Package rng generates random verification codes and request identifiers
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// Service provides cryptographically strong random values
type Service struct {
	entropy io.Reader
	mu      sync.Mutex
}

// New creates a new RNG service using crypto/rand
func New() *Service {
	return &Service{entropy: rand.Reader}
}

// NewWithReader creates a service reading from a custom entropy source
func NewWithReader(r io.Reader) *Service {
	return &Service{entropy: r}
}

// GenerateBytes returns n random bytes
func (s *Service) GenerateBytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, n)
	if _, err := io.ReadFull(s.entropy, buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return buf, nil
}

// GenerateInt returns a random integer in range [0, max)
// Uses rejection sampling to eliminate modulo bias
func (s *Service) GenerateInt(max int64) (int64, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := uint64(1<<63-1) - (uint64(1<<63-1) % uint64(max))

	buf := make([]byte, 8)
	for {
		if _, err := io.ReadFull(s.entropy, buf); err != nil {
			return 0, fmt.Errorf("failed to generate random int: %w", err)
		}

		n := binary.BigEndian.Uint64(buf) >> 1
		if n < threshold {
			return int64(n % uint64(max)), nil
		}
	}
}

// GenerateDigits returns a numeric code of length n, e.g. an SMS
// verification code. Leading zeros are allowed.
func (s *Service) GenerateDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	code := make([]byte, n)
	for i := range code {
		d, err := s.GenerateInt(10)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + d)
	}
	return string(code), nil
}

// GenerateToken returns n random bytes hex encoded
func (s *Service) GenerateToken(n int) (string, error) {
	b, err := s.GenerateBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
