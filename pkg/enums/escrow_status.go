package enums

import "slices"

// EscrowStatus is the settlement state of an escrow payment.
type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "PENDING"
	EscrowStatusEscrowed  EscrowStatus = "ESCROWED"
	EscrowStatusDisputed  EscrowStatus = "DISPUTED"
	EscrowStatusCompleted EscrowStatus = "COMPLETED"
	EscrowStatusRefunded  EscrowStatus = "REFUNDED"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusPending,
	EscrowStatusEscrowed,
	EscrowStatusDisputed,
	EscrowStatusCompleted,
	EscrowStatusRefunded,
}

// String implements fmt.Stringer.
func (e EscrowStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowStatus.
func (e EscrowStatus) IsValid() bool {
	return slices.Contains(validEscrowStatuses, e)
}

// ParseEscrowStatus converts raw input into a EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	return parse(validEscrowStatuses, value, "escrow status")
}

// IsTerminal reports whether no further transition is possible from this core.
func (e EscrowStatus) IsTerminal() bool {
	return e == EscrowStatusCompleted || e == EscrowStatusRefunded || e == EscrowStatusDisputed
}
