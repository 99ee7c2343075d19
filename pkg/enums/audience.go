package enums

import "fmt"

// Audience identifies who a listing's discount configuration targets.
type Audience string

const (
	AudienceConsumer Audience = "consumer"
	AudienceVendor   Audience = "vendor"
	AudienceEveryone Audience = "everyone"
)

var validAudiences = []Audience{
	AudienceConsumer,
	AudienceVendor,
	AudienceEveryone,
}

// String implements fmt.Stringer.
func (a Audience) String() string {
	return string(a)
}

// IsValid reports whether the value is a known Audience.
func (a Audience) IsValid() bool {
	for _, candidate := range validAudiences {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAudience converts raw input into an Audience.
func ParseAudience(value string) (Audience, error) {
	for _, candidate := range validAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audience %q", value)
}
