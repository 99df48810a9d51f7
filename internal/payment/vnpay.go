// Package payment implements settlement against the VNPay gateway:
// building the outbound signed redirect for a booking and
// reconciling the inbound signed callback against exactly one
// payment exactly once.
package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// GatewayConfig holds the merchant credentials and endpoints for the
// VNPay integration. HashSecret is the shared HMAC key; it never
// leaves this package.
type GatewayConfig struct {
	TmnCode       string // merchant code issued by the gateway
	HashSecret    string // shared secret for HMAC-SHA512 signatures
	PayURL        string // gateway payment page, target of the redirect
	ReturnURL     string // this service's browser-return endpoint
	SuccessPage   string // frontend page for settled payments
	FailurePage   string // frontend page for failed payments
	PaymentExpiry time.Duration
}

// Protocol constants fixed by the gateway.
const (
	protocolVersion = "2.1.0"
	commandPay      = "pay"
	currencyCode    = "VND"
	defaultLocale   = "vn"
	orderType       = "other"

	// ResponseCodeSuccess is the vnp_ResponseCode value reported for
	// a settled transaction. Any other code is a failure.
	ResponseCodeSuccess = "00"

	// payDateLayout is the gateway's fixed timestamp format
	// (yyyyMMddHHmmss).
	payDateLayout = "20060102150405"

	secureHashParam     = "vnp_SecureHash"
	secureHashTypeParam = "vnp_SecureHashType"
)

// gatewayZone is the timezone all gateway timestamps are expressed
// in (the gateway operates on GMT+7 wall-clock time).
var gatewayZone = time.FixedZone("GMT+7", 7*60*60)

// hashParams signs a parameter set: keys sorted, values
// percent-encoded, joined as key=value pairs with '&', then
// HMAC-SHA512 under the shared secret, hex lower-case. url.Values
// Encode produces exactly the sorted percent-encoded concatenation
// the gateway expects.
func hashParams(params url.Values, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildPayURL assembles the final redirect URL: the encoded
// parameters followed by the vnp_SecureHash signature computed over
// them.
func buildPayURL(payURL string, params url.Values, secret string) string {
	encoded := params.Encode()
	return payURL + "?" + encoded + "&" + secureHashParam + "=" + hashParams(params, secret)
}

// verifySignature checks an inbound callback: the hash fields are
// removed, the signature is recomputed over the remaining parameters
// and compared in constant time against the supplied value.
func verifySignature(query url.Values, secret string) bool {
	supplied := query.Get(secureHashParam)
	if supplied == "" {
		return false
	}
	params := url.Values{}
	for k, vs := range query {
		if k == secureHashParam || k == secureHashTypeParam {
			continue
		}
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	expected := hashParams(params, secret)
	return hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected))
}

// parsePayDate converts a vnp_PayDate value into UTC. An empty or
// malformed value yields nil; the callback still succeeds without a
// settlement timestamp.
func parsePayDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(payDateLayout, s, gatewayZone)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
