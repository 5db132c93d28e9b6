package enums

import "slices"

// DeliveryMethod is how photos reach the guest.
type DeliveryMethod string

const (
	DeliveryMethodExternalURL  DeliveryMethod = "EXTERNAL_URL"
	DeliveryMethodDirectUpload DeliveryMethod = "DIRECT_UPLOAD"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodExternalURL,
	DeliveryMethodDirectUpload,
}

// String implements fmt.Stringer.
func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	return slices.Contains(validDeliveryMethods, d)
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return parse(validDeliveryMethods, value, "delivery method")
}
