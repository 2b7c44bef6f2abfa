package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrMalformedPayload is returned when a payment-request body cannot be
// decoded. Messages with malformed payloads are dropped from notification
// consideration entirely.
var ErrMalformedPayload = errors.New("malformed payment request payload")

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// PaymentRequest is the structured body of a payment-request message.
// Value is the on-chain amount in wei, hex encoded.
type PaymentRequest struct {
	To          string `json:"to"`
	Value       string `json:"value"`
	FromAddress string `json:"from_address,omitempty"`
	Memo        string `json:"memo,omitempty"`
	LocalPrice  string `json:"local_price,omitempty"`
}

// ParsePaymentRequest decodes a payment-request body. Returns
// ErrMalformedPayload (wrapped) when the JSON is invalid or the amount is
// missing or not a hex quantity.
func ParsePaymentRequest(body string) (*PaymentRequest, error) {
	var pr PaymentRequest
	if err := json.Unmarshal([]byte(body), &pr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if pr.Wei() == nil {
		return nil, fmt.Errorf("%w: bad value %q", ErrMalformedPayload, pr.Value)
	}
	return &pr, nil
}

// Wei returns the requested amount in wei, or nil if Value is not a valid
// hex quantity.
func (p *PaymentRequest) Wei() *big.Int {
	s := strings.TrimPrefix(p.Value, "0x")
	if s == "" {
		return nil
	}
	wei, ok := new(big.Int).SetString(s, 16)
	if !ok || wei.Sign() < 0 {
		return nil
	}
	return wei
}

// EthString formats the requested amount in ether with up to six decimals,
// trailing zeros trimmed.
func (p *PaymentRequest) EthString() string {
	wei := p.Wei()
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEth).FloatString(6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "0"
	}
	return s
}

// WithLocalPrice returns a copy annotated with the local-currency price.
func (p *PaymentRequest) WithLocalPrice(price string) *PaymentRequest {
	out := *p
	out.LocalPrice = price
	return &out
}

// Encode serializes the request back to its JSON body form.
func (p *PaymentRequest) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
