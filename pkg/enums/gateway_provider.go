package enums

import "slices"

// GatewayProvider identifies the payment gateway holding the funds.
type GatewayProvider string

const (
	GatewayStripe GatewayProvider = "stripe"
	GatewaySquare GatewayProvider = "square"
	GatewayFake   GatewayProvider = "fake"
)

var validGatewayProviders = []GatewayProvider{
	GatewayStripe,
	GatewaySquare,
	GatewayFake,
}

// String implements fmt.Stringer.
func (g GatewayProvider) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatewayProvider.
func (g GatewayProvider) IsValid() bool {
	return slices.Contains(validGatewayProviders, g)
}

// ParseGatewayProvider converts raw input into a GatewayProvider.
func ParseGatewayProvider(value string) (GatewayProvider, error) {
	return parse(validGatewayProviders, value, "gateway provider")
}
