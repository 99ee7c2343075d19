package enums

// FeeSide tags a fee schedule row as buyer-facing, seller-facing, or both
// (uniform configurations carry a single side=both row).
type FeeSide string

const (
	FeeSideBoth   FeeSide = "both"
	FeeSideBuyer  FeeSide = "buyer"
	FeeSideSeller FeeSide = "seller"
)

var validFeeSides = []FeeSide{
	FeeSideBoth,
	FeeSideBuyer,
	FeeSideSeller,
}

// IsValid reports whether the value is a known FeeSide.
func (f FeeSide) IsValid() bool {
	for _, candidate := range validFeeSides {
		if candidate == f {
			return true
		}
	}
	return false
}
