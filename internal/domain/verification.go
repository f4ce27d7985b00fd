package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Checkpoint identifies a handover point of a booking
type Checkpoint string

const (
	CheckpointPickup  Checkpoint = "pickup"
	CheckpointDropoff Checkpoint = "dropoff"
)

// Valid reports whether cp is a known checkpoint.
func (cp Checkpoint) Valid() bool {
	return cp == CheckpointPickup || cp == CheckpointDropoff
}

// CodeLength is the number of digits in a verification code.
const CodeLength = 4

// VerificationRecord tracks the one-time code of a checkpoint.
// Code is never serialized to API consumers.
type VerificationRecord struct {
	Code       string     `json:"-"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Attempts   int        `json:"attempts"`
	IssuedAt   time.Time  `json:"issued_at"`
}

func (r *VerificationRecord) Clone() *VerificationRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.VerifiedAt = cloneTime(r.VerifiedAt)
	return &c
}

// VerificationResult is returned by a successful verify call
type VerificationResult struct {
	Checkpoint      Checkpoint `json:"checkpoint"`
	Verified        bool       `json:"verified"`
	AlreadyVerified bool       `json:"already_verified"`
	Attempts        int        `json:"attempts"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

// NewVerificationRecord issues a fresh random code.
func NewVerificationRecord(now time.Time) (*VerificationRecord, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	return &VerificationRecord{Code: code, IssuedAt: now}, nil
}

// GenerateCode returns CodeLength random decimal digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// IsWellFormedCode checks the code is exactly CodeLength ASCII digits.
func IsWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
