package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
)

// CodeGenerator produces event check-in codes.
type CodeGenerator func() (string, error)

// checkInCodeBytes yields an 8-character base32 code.
const checkInCodeBytes = 5

// maxCodeAttempts bounds regeneration when a code collides with an existing event.
const maxCodeAttempts = 3

// GenerateCheckInCode returns a random uppercase base32 code.
func GenerateCheckInCode() (string, error) {
	buf := make([]byte, checkInCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate check-in code: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// codesMatch compares a submitted code with the event's code in constant time.
// Submissions are trimmed and upper-cased so volunteers can type them loosely.
func codesMatch(submitted, expected string) bool {
	submitted = strings.ToUpper(strings.TrimSpace(submitted))
	if submitted == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(strings.ToUpper(expected))) == 1
}
