// Package payment implements the checkout payment sessions: the closed set
// of supported methods, the session contract every driver satisfies, and
// one driver per method. Drivers own their timers and report a terminal
// outcome to the orchestrator exactly once.
package payment

import (
	"fmt"
	"strings"

	"github.com/example/lottomart/internal/currency"
)

// Method is the closed set of supported payment variants.
type Method string

const (
	MethodCard      Method = "CARD"
	MethodPromptPay Method = "PROMPTPAY"
	MethodTrueMoney Method = "TRUEMONEY"
	MethodBank      Method = "BANK"
	MethodWise      Method = "WISE"
	MethodAlipay    Method = "ALIPAY"
	MethodWeChat    Method = "WECHAT"
	MethodOmise     Method = "OMISE"
)

// Capability is what a method needs from the session machinery.
type Capability string

const (
	CapSyncCharge      Capability = "sync_charge"
	CapQRPoll          Capability = "qr_poll"
	CapOTPChallenge    Capability = "otp_challenge"
	CapManualProof     Capability = "manual_proof"
	CapManualReference Capability = "manual_reference"
	CapDispatch        Capability = "dispatch"
)

// Methods lists every supported variant, in display order.
func Methods() []Method {
	return []Method{
		MethodCard, MethodPromptPay, MethodTrueMoney, MethodBank,
		MethodWise, MethodAlipay, MethodWeChat, MethodOmise,
	}
}

// Parse maps a wire string to a Method.
func Parse(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodCard, MethodPromptPay, MethodTrueMoney, MethodBank,
		MethodWise, MethodAlipay, MethodWeChat, MethodOmise:
		return m, nil
	}
	return "", fmt.Errorf("payment: unknown method %q", s)
}

// Capability returns what the method requires. The switch is exhaustive;
// adding a ninth method without a case here is a compile-visible omission.
func (m Method) Capability() Capability {
	switch m {
	case MethodCard:
		return CapSyncCharge
	case MethodPromptPay, MethodAlipay, MethodWeChat:
		return CapQRPoll
	case MethodTrueMoney:
		return CapOTPChallenge
	case MethodBank:
		return CapManualProof
	case MethodWise:
		return CapManualReference
	case MethodOmise:
		return CapDispatch
	}
	panic("payment: unregistered method " + string(m))
}

// Settlement returns the currency the method is denominated in at the
// gateway. USD methods settle as priced.
func (m Method) Settlement() currency.Code {
	switch m {
	case MethodPromptPay, MethodBank, MethodOmise, MethodTrueMoney:
		return currency.THB
	case MethodAlipay, MethodWeChat:
		return currency.CNY
	default:
		return currency.USD
	}
}

// Prefix is the transaction-id prefix for push payments.
func (m Method) Prefix() string {
	return strings.ToLower(string(m))
}
