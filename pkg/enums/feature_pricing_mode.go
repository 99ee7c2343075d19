package enums

// FeaturePricingMode selects how a service feature contributes to the line total.
type FeaturePricingMode string

const (
	FeaturePricingModeFlat   FeaturePricingMode = "flat"
	FeaturePricingModeHourly FeaturePricingMode = "hourly"
)

var validFeaturePricingModes = []FeaturePricingMode{
	FeaturePricingModeFlat,
	FeaturePricingModeHourly,
}

// IsValid reports whether the value is a known FeaturePricingMode.
func (m FeaturePricingMode) IsValid() bool {
	for _, candidate := range validFeaturePricingModes {
		if candidate == m {
			return true
		}
	}
	return false
}
