package enums

// LineKind distinguishes product lines from service lines.
type LineKind string

const (
	LineKindProduct LineKind = "product"
	LineKindService LineKind = "service"
)

var validLineKinds = []LineKind{
	LineKindProduct,
	LineKindService,
}

// IsValid reports whether the value is a known LineKind.
func (k LineKind) IsValid() bool {
	for _, candidate := range validLineKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
