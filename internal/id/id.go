// Package id generates prefixed, URL-safe entity identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixBook        = "book"
	PrefixMember      = "mem"
	PrefixLoan        = "loan"
	PrefixReservation = "res"
	PrefixFine        = "fine"
	PrefixPayment     = "pay"
	PrefixAudit       = "audit"
)

// Generate creates an identifier of the form prefix-nanoid
// (e.g. "loan-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
