/*
reference.go - Human-readable booking references

PURPOSE:
  Every booking carries an 8-character reference: a fixed 2-letter prefix
  followed by 6 uppercase alphanumerics, e.g. SB7K2M9A. Uniqueness is
  enforced by the store's unique index: the service inserts optimistically
  and regenerates on ErrDuplicateReference. Collisions are retried
  internally and never surface to the caller; only exhausting all
  attempts does.
*/
package booking

import (
	"crypto/rand"
)

const (
	// ReferencePrefix is the carrier code on every booking reference.
	ReferencePrefix = "SB"

	referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength  = 6
	referenceRetries = 5
)

// newReference returns a candidate reference. Uniqueness is settled at
// insert time, not here.
func newReference() (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(ReferencePrefix)+referenceLength)
	out = append(out, ReferencePrefix...)
	for _, b := range buf {
		out = append(out, referenceCharset[int(b)%len(referenceCharset)])
	}
	return string(out), nil
}
