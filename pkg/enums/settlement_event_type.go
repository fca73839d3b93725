package enums

import "fmt"

// SettlementEventType identifies an immutable money lifecycle event.
type SettlementEventType string

const (
	SettlementEventOfferAccepted    SettlementEventType = "offer_accepted"
	SettlementEventPaymentInitiated SettlementEventType = "payment_initiated"
	SettlementEventPaymentCompleted SettlementEventType = "payment_completed"
	SettlementEventPaymentFailed    SettlementEventType = "payment_failed"
)

var validSettlementEventTypes = []SettlementEventType{
	SettlementEventOfferAccepted,
	SettlementEventPaymentInitiated,
	SettlementEventPaymentCompleted,
	SettlementEventPaymentFailed,
}

// String implements fmt.Stringer.
func (s SettlementEventType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementEventType.
func (s SettlementEventType) IsValid() bool {
	for _, candidate := range validSettlementEventTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementEventType converts raw input into a SettlementEventType.
func ParseSettlementEventType(value string) (SettlementEventType, error) {
	for _, candidate := range validSettlementEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement event type %q", value)
}
