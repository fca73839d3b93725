package enums

import "fmt"

// MessageDeliveryStatus tracks the optimistic delivery lifecycle of a chat
// message: sending -> sent, or sending -> failed -> sending (retry).
type MessageDeliveryStatus string

const (
	MessageDeliveryStatusSending MessageDeliveryStatus = "sending"
	MessageDeliveryStatusSent    MessageDeliveryStatus = "sent"
	MessageDeliveryStatusFailed  MessageDeliveryStatus = "failed"
)

var validMessageDeliveryStatuses = []MessageDeliveryStatus{
	MessageDeliveryStatusSending,
	MessageDeliveryStatusSent,
	MessageDeliveryStatusFailed,
}

// String implements fmt.Stringer.
func (m MessageDeliveryStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MessageDeliveryStatus.
func (m MessageDeliveryStatus) IsValid() bool {
	for _, candidate := range validMessageDeliveryStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMessageDeliveryStatus converts raw input into a MessageDeliveryStatus.
func ParseMessageDeliveryStatus(value string) (MessageDeliveryStatus, error) {
	for _, candidate := range validMessageDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message delivery status %q", value)
}
