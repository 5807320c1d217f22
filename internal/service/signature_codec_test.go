package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize_SortsAndJoins(t *testing.T) {
	codec := NewSignatureCodec()

	params := map[string]string{
		"b": "2",
		"a": "1",
		"c": "3",
	}
	assert.Equal(t, "a=1&b=2&c=3", codec.Canonicalize(params, nil, false))
}

func TestCanonicalize_SkipsReservedKeysAndEmptyValues(t *testing.T) {
	codec := NewSignatureCodec()

	params := map[string]string{
		"vnp_Amount":     "10000000",
		"vnp_SecureHash": "deadbeef",
		"vnp_TxnRef":     "abc",
		"vnp_Bank":       "",
	}
	got := codec.Canonicalize(params, []string{"vnp_SecureHash"}, false)
	assert.Equal(t, "vnp_Amount=10000000&vnp_TxnRef=abc", got)
}

func TestCanonicalize_QueryEscapesWhenEncoding(t *testing.T) {
	codec := NewSignatureCodec()

	params := map[string]string{
		"vnp_OrderInfo": "thanh toan don hang",
		"vnp_ReturnUrl": "https://example.com/return?x=1",
	}
	got := codec.Canonicalize(params, nil, true)
	assert.Equal(t,
		"vnp_OrderInfo=thanh+toan+don+hang&vnp_ReturnUrl=https%3A%2F%2Fexample.com%2Freturn%3Fx%3D1",
		got)
}

func TestSignSHA256_KnownVector(t *testing.T) {
	codec := NewSignatureCodec()

	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := codec.SignSHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestSignSHA512_KnownVector(t *testing.T) {
	codec := NewSignatureCodec()

	// HMAC-SHA512("key", "The quick brown fox jumps over the lazy dog")
	got := codec.SignSHA512("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"b42af09057bac1e2d41708e48a902e09b5ff7f12ab428a4fe86653c73dd248fb82f948a549f7b791a5b41915ee4d1ec3935357e4e2317250d0372afa2ebeeb3a",
		got)
}

func TestVerify_CaseInsensitiveOnDigest(t *testing.T) {
	codec := NewSignatureCodec()

	payload := "amount=100&orderId=42"
	sig := codec.SignSHA256("secret", payload)

	assert.True(t, codec.VerifySHA256("secret", payload, sig))
	assert.True(t, codec.VerifySHA256("secret", payload, toUpper(sig)))
	assert.False(t, codec.VerifySHA256("secret", payload, sig[:len(sig)-1]+"0"))
	assert.False(t, codec.VerifySHA256("wrong", payload, sig))
}

func TestVerifySHA512_RejectsTamperedPayload(t *testing.T) {
	codec := NewSignatureCodec()

	sig := codec.SignSHA512("secret", "amount=100")
	assert.False(t, codec.VerifySHA512("secret", "amount=101", sig))
}

func toUpper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 32
		}
	}
	return string(out)
}
