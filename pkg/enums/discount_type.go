package enums

// DiscountType selects how a listing discount is applied to the unit price.
type DiscountType string

const (
	DiscountTypeFlat    DiscountType = "flat"
	DiscountTypePercent DiscountType = "percent"
)

var validDiscountTypes = []DiscountType{
	DiscountTypeFlat,
	DiscountTypePercent,
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}
