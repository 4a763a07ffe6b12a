// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth implements credential storage with argon2id.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Current hashing parameters. Memory is kept at 19 MB so small deployments
// survive a burst of logins.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// MinPasswordLen is enforced at registration and password change.
const MinPasswordLen = 8

var errMalformedHash = errors.New("auth: malformed password hash")

type hashParams struct {
	version int
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	digest  []byte
}

// parseHash splits a $argon2id$v=19$m=...,t=...,p=...$salt$digest string.
func parseHash(encoded string) (hashParams, error) {
	var p hashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &p.version); err != nil {
		return p, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, errMalformedHash
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, errMalformedHash
	}
	if p.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return p, errMalformedHash
	}
	return p, nil
}

// HashPassword derives an argon2id hash and encodes it with its parameters,
// so old hashes remain verifiable after the defaults change.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest)), nil
}

// CheckPassword verifies a password against a stored hash using the
// parameters embedded in the hash. The comparison is constant time.
func CheckPassword(password, encoded string) (bool, error) {
	p, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	digest := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.digest)))
	return subtle.ConstantTimeCompare(digest, p.digest) == 1, nil
}

// NeedsRehash reports whether a stored hash was produced with outdated
// parameters and should be regenerated on the next successful login.
func NeedsRehash(encoded string) bool {
	p, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return p.memory != argonMemory || p.time != argonTime || p.threads != argonThreads
}

// ValidatePassword applies the registration password policy. Returns an
// empty string when the password is acceptable.
func ValidatePassword(password string) string {
	if len(password) < MinPasswordLen {
		return fmt.Sprintf("Password must be at least %d characters", MinPasswordLen)
	}
	return ""
}
