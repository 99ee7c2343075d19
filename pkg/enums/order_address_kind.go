package enums

// OrderAddressKind distinguishes the billing snapshot from the shipping snapshot.
type OrderAddressKind string

const (
	OrderAddressKindBilling  OrderAddressKind = "billing"
	OrderAddressKindShipping OrderAddressKind = "shipping"
)

var validOrderAddressKinds = []OrderAddressKind{
	OrderAddressKindBilling,
	OrderAddressKindShipping,
}

// IsValid reports whether the value is a known OrderAddressKind.
func (k OrderAddressKind) IsValid() bool {
	for _, candidate := range validOrderAddressKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
