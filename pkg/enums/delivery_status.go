package enums

import "slices"

// DeliveryStatus tracks photo delivery progress on an escrow payment.
type DeliveryStatus string

const (
	DeliveryStatusWaiting   DeliveryStatus = "WAITING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusConfirmed DeliveryStatus = "CONFIRMED"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusWaiting,
	DeliveryStatusDelivered,
	DeliveryStatusConfirmed,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	return slices.Contains(validDeliveryStatuses, d)
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parse(validDeliveryStatuses, value, "delivery status")
}
