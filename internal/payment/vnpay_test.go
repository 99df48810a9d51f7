package payment

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "supersecretkey"

func sampleParams() url.Values {
	p := url.Values{}
	p.Set("vnp_Version", protocolVersion)
	p.Set("vnp_Command", commandPay)
	p.Set("vnp_TmnCode", "DEMO01")
	p.Set("vnp_Amount", "1500000")
	p.Set("vnp_TxnRef", "abc-123")
	p.Set("vnp_OrderInfo", "Payment for booking #40")
	return p
}

func TestHashParamsIsDeterministic(t *testing.T) {
	a := hashParams(sampleParams(), testSecret)
	b := hashParams(sampleParams(), testSecret)
	assert.Equal(t, a, b)
	assert.Len(t, a, 128) // hex of SHA-512
	assert.Equal(t, strings.ToLower(a), a)
}

func TestHashParamsChangesWithInput(t *testing.T) {
	base := hashParams(sampleParams(), testSecret)

	tampered := sampleParams()
	tampered.Set("vnp_Amount", "1500001")
	assert.NotEqual(t, base, hashParams(tampered, testSecret))

	assert.NotEqual(t, base, hashParams(sampleParams(), "otherkey"))
}

func TestBuildPayURLAppendsSignatureOverSortedParams(t *testing.T) {
	raw := buildPayURL("https://pay.example.com/vpcpay.html", sampleParams(), testSecret)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "DEMO01", q.Get("vnp_TmnCode"))
	assert.NotEmpty(t, q.Get(secureHashParam))

	// The signature must verify the same way a callback would.
	assert.True(t, verifySignature(q, testSecret))
}

func TestVerifySignature(t *testing.T) {
	params := sampleParams()
	signed, _ := url.ParseQuery(params.Encode())
	signed.Set(secureHashParam, hashParams(params, testSecret))
	// The hash type field is excluded from the signature input.
	signed.Set(secureHashTypeParam, "HMACSHA512")

	assert.True(t, verifySignature(signed, testSecret))

	// Uppercase hex from the gateway still verifies.
	upper, _ := url.ParseQuery(params.Encode())
	upper.Set(secureHashParam, strings.ToUpper(hashParams(params, testSecret)))
	assert.True(t, verifySignature(upper, testSecret))

	// Any tampered field invalidates the signature.
	tampered, _ := url.ParseQuery(signed.Encode())
	tampered.Set("vnp_Amount", "9900000")
	assert.False(t, verifySignature(tampered, testSecret))

	// Missing signature never verifies.
	assert.False(t, verifySignature(params, testSecret))

	// Wrong secret never verifies.
	assert.False(t, verifySignature(signed, "otherkey"))
}

func TestParsePayDate(t *testing.T) {
	got := parsePayDate("20260830142500")
	require.NotNil(t, got)
	want := time.Date(2026, 8, 30, 14, 25, 0, 0, gatewayZone).UTC()
	assert.True(t, got.Equal(want))

	assert.Nil(t, parsePayDate(""))
	assert.Nil(t, parsePayDate("not-a-date"))
	assert.Nil(t, parsePayDate("2026-08-30"))
}
