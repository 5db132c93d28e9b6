package enums

import "slices"

// RequestStatus is the lifecycle of the photo request behind a booking.
type RequestStatus string

const (
	RequestStatusMatched    RequestStatus = "MATCHED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusDelivered  RequestStatus = "DELIVERED"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusMatched,
	RequestStatusInProgress,
	RequestStatusDelivered,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	return slices.Contains(validRequestStatuses, r)
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	return parse(validRequestStatuses, value, "request status")
}
