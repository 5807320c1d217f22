package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignatureCodec canonicalizes gateway parameter sets and computes/verifies
// HMAC signatures over them. Each gateway picks its own hash and encoding
// convention; the canonical form is always sorted-key key=value pairs joined
// by '&' with reserved keys (the signature itself) excluded.
type SignatureCodec struct{}

// NewSignatureCodec creates a new SignatureCodec.
func NewSignatureCodec() *SignatureCodec {
	return &SignatureCodec{}
}

// Canonicalize builds the deterministic signing string. Keys listed in skip
// are excluded (case-sensitive); empty values are dropped. When encode is
// true, keys and values are percent-encoded the way VNPay expects
// (query escaping with '+' for spaces).
func (c *SignatureCodec) Canonicalize(params map[string]string, skip []string, encode bool) string {
	skipSet := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipSet[k] = struct{}{}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if _, ok := skipSet[k]; ok {
			continue
		}
		if params[k] == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		if encode {
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(params[k]))
		} else {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(params[k])
		}
	}
	return b.String()
}

// SignSHA256 computes HMAC-SHA256 of payload, rendered as lowercase hex.
func (c *SignatureCodec) SignSHA256(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignSHA512 computes HMAC-SHA512 of payload, rendered as lowercase hex.
func (c *SignatureCodec) SignSHA512(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySHA256 checks signature against HMAC-SHA256(secret, payload).
// Comparison is constant-time and case-insensitive on the hex digest.
func (c *SignatureCodec) VerifySHA256(secret, payload, signature string) bool {
	expected := c.SignSHA256(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// VerifySHA512 checks signature against HMAC-SHA512(secret, payload).
func (c *SignatureCodec) VerifySHA512(secret, payload, signature string) bool {
	expected := c.SignSHA512(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
