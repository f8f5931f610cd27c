// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// bcryptMaxInput is the number of password bytes bcrypt actually consumes.
const bcryptMaxInput = 72

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
//
// It is immutable after construction and safe for concurrent use.
type PasswordHasher struct {
	cost  int
	decoy []byte
}

// NewPasswordHasher creates a hasher for the given bcrypt cost.
// A zero cost selects [DefaultBcryptCost].
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("sec: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	// The decoy digest lets callers spend the same CPU on unknown accounts.
	decoy, err := bcrypt.GenerateFromPassword([]byte("taskflow-decoy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to prepare decoy hash: %w", err)
	}

	return &PasswordHasher{cost: cost, decoy: decoy}, nil
}

// Cost returns the configured bcrypt work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt digest of plainTextPassword.
func (h *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(prepare(plainTextPassword), h.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether plainTextPassword matches digest.
// Malformed digests yield false.
func (h *PasswordHasher) Verify(plainTextPassword, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), prepare(plainTextPassword))
	return err == nil
}

// Decoy burns one verification against a fixed digest and discards the result.
func (h *PasswordHasher) Decoy(plainTextPassword string) {
	_ = bcrypt.CompareHashAndPassword(h.decoy, prepare(plainTextPassword))
}

// prepare folds passwords longer than bcrypt's input limit into a fixed-size
// digest so that hashing never fails and no suffix is silently ignored.
func prepare(plainTextPassword string) []byte {
	if len(plainTextPassword) <= bcryptMaxInput {
		return []byte(plainTextPassword)
	}
	sum := sha256.Sum256([]byte(plainTextPassword))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
