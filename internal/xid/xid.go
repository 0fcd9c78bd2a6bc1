package xid

import (
	"crypto/rand"
	"fmt"
	"time"
)

const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Token builds a human-shareable code like CART-7KQW2MNP. The alphabet drops
// easily confused characters (0/O, 1/I).
func Token(prefix string, length int) string {
	if length < 1 {
		length = 8
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return prefix + "-" + string(buf)
}

// Invoice builds an invoice number like INV-20250114-X7QWPM: unique per day
// given the random suffix, time-ordered at day granularity.
func Invoice(at time.Time) string {
	suffix := Token("", 6)
	return fmt.Sprintf("INV-%s%s", at.UTC().Format("20060102"), suffix)
}
