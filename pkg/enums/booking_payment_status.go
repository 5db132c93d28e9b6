package enums

import "slices"

// BookingPaymentStatus is the payment view of a booking.
type BookingPaymentStatus string

const (
	BookingPaymentUnpaid   BookingPaymentStatus = "UNPAID"
	BookingPaymentPaid     BookingPaymentStatus = "PAID"
	BookingPaymentRefunded BookingPaymentStatus = "REFUNDED"
)

var validBookingPaymentStatuses = []BookingPaymentStatus{
	BookingPaymentUnpaid,
	BookingPaymentPaid,
	BookingPaymentRefunded,
}

// String implements fmt.Stringer.
func (b BookingPaymentStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingPaymentStatus.
func (b BookingPaymentStatus) IsValid() bool {
	return slices.Contains(validBookingPaymentStatuses, b)
}

// ParseBookingPaymentStatus converts raw input into a BookingPaymentStatus.
func ParseBookingPaymentStatus(value string) (BookingPaymentStatus, error) {
	return parse(validBookingPaymentStatuses, value, "booking payment status")
}
