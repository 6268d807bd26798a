package types

import (
	"fmt"
	"regexp"
)

// MRN represents a 10-digit medical record number.
// Format: FFYYNNNNNK where:
// - FF: issuing facility code
// - YY: registration year
// - NNNNN: sequence number
// - K: checksum digit
type MRN string

var mrnRegex = regexp.MustCompile(`^\d{10}$`)

// ParseMRN validates and parses an MRN string
func ParseMRN(s string) (MRN, error) {
	if !mrnRegex.MatchString(s) {
		return "", fmt.Errorf("MRN must be exactly 10 digits")
	}

	mrn := MRN(s)
	if !mrn.IsValid() {
		return "", fmt.Errorf("invalid MRN checksum")
	}

	return mrn, nil
}

// String returns the string representation
func (m MRN) String() string {
	return string(m)
}

// Masked returns a masked version for display (facility and year visible)
func (m MRN) Masked() string {
	if len(m) < 10 {
		return "**********"
	}
	return string(m)[:4] + "******"
}

// IsValid validates the MRN checksum
func (m MRN) IsValid() bool {
	if len(m) != 10 {
		return false
	}

	// Checksum calculation using Mod 11 algorithm
	digits := make([]int, 10)
	for i, c := range m {
		digits[i] = int(c - '0')
	}

	weights := []int{9, 8, 7, 6, 5, 4, 3, 2, 7}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += digits[i] * weights[i]
	}

	remainder := sum % 11
	checkDigit := 0
	if remainder != 0 {
		checkDigit = 11 - remainder
	}

	// A check digit of 10 means the sequence is never issued
	if checkDigit == 10 {
		return false
	}

	return digits[9] == checkDigit
}

// IsZero checks if the MRN is empty
func (m MRN) IsZero() bool {
	return m == ""
}
