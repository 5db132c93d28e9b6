package enums

import "slices"

// DisputeReason categorises why a guest disputed a booking.
type DisputeReason string

const (
	DisputeReasonQuality        DisputeReason = "QUALITY"
	DisputeReasonNotDelivered   DisputeReason = "NOT_DELIVERED"
	DisputeReasonIncomplete     DisputeReason = "INCOMPLETE"
	DisputeReasonLate           DisputeReason = "LATE"
	DisputeReasonNotAsDescribed DisputeReason = "NOT_AS_DESCRIBED"
	DisputeReasonOther          DisputeReason = "OTHER"
)

var validDisputeReasons = []DisputeReason{
	DisputeReasonQuality,
	DisputeReasonNotDelivered,
	DisputeReasonIncomplete,
	DisputeReasonLate,
	DisputeReasonNotAsDescribed,
	DisputeReasonOther,
}

// String implements fmt.Stringer.
func (d DisputeReason) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeReason.
func (d DisputeReason) IsValid() bool {
	return slices.Contains(validDisputeReasons, d)
}

// ParseDisputeReason converts raw input into a DisputeReason.
func ParseDisputeReason(value string) (DisputeReason, error) {
	return parse(validDisputeReasons, value, "dispute reason")
}
