package utils

import (
	"crypto/rand"
	"io"
	"strings"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// entropy is the byte source for RandomBase36; tests swap it.
var entropy io.Reader = rand.Reader

// RandomBase36 returns n random lowercase base-36 characters.
func RandomBase36(n int) string {
	if n <= 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(n)
	buf := make([]byte, n+8)
	for sb.Len() < n {
		if _, err := io.ReadFull(entropy, buf); err != nil {
			panic("utils: entropy source failed: " + err.Error())
		}
		for _, b := range buf {
			if sb.Len() == n {
				break
			}
			// 252 is the largest multiple of 36 below 256.
			if b >= 252 {
				continue
			}
			sb.WriteByte(base36[int(b)%36])
		}
	}
	return sb.String()
}
