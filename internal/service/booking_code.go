package service

import (
	"crypto/rand"
	"io"
)

const (
	bookingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bookingCodeLength   = 6
	bookingCodeAttempts = 5
)

// NewBookingCode returns a random 6 character code drawn from [A-Z0-9].
func NewBookingCode() (string, error) {
	return bookingCodeFrom(rand.Reader)
}

// bookingCodeFrom uses rejection sampling so every symbol is equally likely.
func bookingCodeFrom(r io.Reader) (string, error) {
	const max = 256 - 256%len(bookingCodeAlphabet)
	out := make([]byte, 0, bookingCodeLength)
	buf := make([]byte, 16)
	for len(out) < bookingCodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= max {
				continue
			}
			out = append(out, bookingCodeAlphabet[int(b)%len(bookingCodeAlphabet)])
			if len(out) == bookingCodeLength {
				break
			}
		}
	}
	return string(out), nil
}
