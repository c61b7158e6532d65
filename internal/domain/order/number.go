package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

// numberAlphabet excludes 0/O and 1/I so order numbers survive being read
// over the phone.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLen = 8

// NewNumber generates a human-shareable order number: a date prefix plus a
// random suffix, e.g. INK-20250615-K7Q2M4XP. Collisions are negligible at
// this entropy (32^8) but the unique constraint catches them anyway, and the
// ledger regenerates on ErrDuplicateNumber.
func NewNumber(now time.Time) string {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("order number entropy: %v", err))
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("INK-%s-%s", now.UTC().Format("20060102"), buf)
}
