package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

func hmacSHA256(secret string, parts ...[]byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// SignHex returns hex(HMAC-SHA256(secret, body))
func SignHex(secret string, body []byte) string {
	return hex.EncodeToString(hmacSHA256(secret, body))
}

// SignBase64 returns base64(HMAC-SHA256(secret, prefix || body))
func SignBase64(secret string, prefix string, body []byte) string {
	return base64.StdEncoding.EncodeToString(hmacSHA256(secret, []byte(prefix), body))
}

// signaturesEqual compares in constant time
func signaturesEqual(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}
