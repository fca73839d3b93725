package enums

import "fmt"

// NegotiationStatus models the bargaining state machine.
//
// pending -> counter_by_farmer | counter_by_buyer -> accepted | rejected
//
// The undifferentiated counter_offer value predates the role-specific
// counter states. It is accepted on read as "has a counter" but is never
// written by current code.
type NegotiationStatus string

const (
	NegotiationStatusPending         NegotiationStatus = "pending"
	NegotiationStatusCounterByFarmer NegotiationStatus = "counter_by_farmer"
	NegotiationStatusCounterByBuyer  NegotiationStatus = "counter_by_buyer"
	NegotiationStatusCounterLegacy   NegotiationStatus = "counter_offer"
	NegotiationStatusAccepted        NegotiationStatus = "accepted"
	NegotiationStatusRejected        NegotiationStatus = "rejected"
)

var validNegotiationStatuses = []NegotiationStatus{
	NegotiationStatusPending,
	NegotiationStatusCounterByFarmer,
	NegotiationStatusCounterByBuyer,
	NegotiationStatusCounterLegacy,
	NegotiationStatusAccepted,
	NegotiationStatusRejected,
}

// String implements fmt.Stringer.
func (n NegotiationStatus) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NegotiationStatus.
func (n NegotiationStatus) IsValid() bool {
	for _, candidate := range validNegotiationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (n NegotiationStatus) IsTerminal() bool {
	return n == NegotiationStatusAccepted || n == NegotiationStatusRejected
}

// HasCounter reports whether the negotiation carries a counter offer,
// treating the legacy undifferentiated value as a counter state.
func (n NegotiationStatus) HasCounter() bool {
	switch n {
	case NegotiationStatusCounterByFarmer, NegotiationStatusCounterByBuyer, NegotiationStatusCounterLegacy:
		return true
	default:
		return false
	}
}

// ParseNegotiationStatus converts raw input into a NegotiationStatus.
func ParseNegotiationStatus(value string) (NegotiationStatus, error) {
	for _, candidate := range validNegotiationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation status %q", value)
}
