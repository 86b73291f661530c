package domain

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// A URL-safe base64 rendering of a fresh random UUID, 22 characters long.
func NewBuid() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

const couponCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func NewCouponCode(size int) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(couponCodeChars)))
	for i := 0; i < size; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(couponCodeChars[n.Int64()])
	}
	return sb.String()
}

var nonNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// Derives a URL name from a title, like "Early Geek" -> "early-geek".
func MakeName(title string) string {
	return strings.Trim(nonNameChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
