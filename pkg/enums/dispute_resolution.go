package enums

import "slices"

// DisputeResolution is the outcome a guest asks for when filing a dispute.
type DisputeResolution string

const (
	DisputeResolutionFullRefund    DisputeResolution = "FULL_REFUND"
	DisputeResolutionPartialRefund DisputeResolution = "PARTIAL_REFUND"
	DisputeResolutionRedelivery    DisputeResolution = "REDELIVERY"
	DisputeResolutionOther         DisputeResolution = "OTHER"
)

var validDisputeResolutions = []DisputeResolution{
	DisputeResolutionFullRefund,
	DisputeResolutionPartialRefund,
	DisputeResolutionRedelivery,
	DisputeResolutionOther,
}

// String implements fmt.Stringer.
func (d DisputeResolution) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeResolution.
func (d DisputeResolution) IsValid() bool {
	return slices.Contains(validDisputeResolutions, d)
}

// ParseDisputeResolution converts raw input into a DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	return parse(validDisputeResolutions, value, "dispute resolution")
}
