package registration

import "github.com/Shivanand-hulikatti/impulse-registration/internal/model"

// PaymentMode is the branch of the payment handoff taken for a submission.
type PaymentMode int

const (
	// PaymentFree skips the gateway for zero-priced registrations.
	PaymentFree PaymentMode = iota
	// PaymentSimulated stands in for the gateway while it has no real key.
	PaymentSimulated
	// PaymentGateway sends the participant through checkout.
	PaymentGateway
)

func (m PaymentMode) String() string {
	switch m {
	case PaymentFree:
		return "free"
	case PaymentSimulated:
		return "simulated"
	case PaymentGateway:
		return "gateway"
	}
	return "unknown"
}

// Sentinel returns the payment id recorded for modes that never reach the
// gateway, or "" for PaymentGateway.
func (m PaymentMode) Sentinel() string {
	switch m {
	case PaymentFree:
		return model.PaymentFree
	case PaymentSimulated:
		return model.PaymentSimulated
	}
	return ""
}

// DecidePayment picks the handoff for a computed total.
func DecidePayment(total float64, gatewayConfigured bool) PaymentMode {
	switch {
	case total <= 0:
		return PaymentFree
	case !gatewayConfigured:
		return PaymentSimulated
	}
	return PaymentGateway
}
