// Package currency converts in-app USD prices to the settlement currency a
// gateway actually charges in. Rates are fixed; there is no live FX feed.
package currency

import (
	"errors"
	"fmt"
)

// Code identifies a settlement currency.
type Code string

const (
	USD Code = "USD"
	THB Code = "THB"
	CNY Code = "CNY"
)

var (
	ErrUnknownCurrency   = errors.New("currency: unknown currency code")
	ErrNonPositiveAmount = errors.New("currency: amount must be positive")
)

var rates = map[Code]float64{
	USD: 1.0,
	THB: 35.5,
	CNY: 7.2,
}

// Convert maps an USD amount to the target settlement currency.
func Convert(amountUSD float64, target Code) (float64, error) {
	if amountUSD <= 0 {
		return 0, ErrNonPositiveAmount
	}
	rate, ok := rates[target]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, target)
	}
	return amountUSD * rate, nil
}

// Rate returns the fixed USD rate for a settlement currency.
func Rate(target Code) (float64, error) {
	rate, ok := rates[target]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, target)
	}
	return rate, nil
}
