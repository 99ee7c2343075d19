package types

import "strings"

// Address is the location snapshot persisted with orders and used for
// location-scoped fee schedule matching.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// IsZero reports whether no address fields were supplied.
func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.State == "" && a.Country == ""
}

// MatchesScope reports whether the address falls inside a fee schedule's
// country/state/city scope. Empty scope segments match everything beneath them.
func (a Address) MatchesScope(country, state, city string) bool {
	if country != "" && !equalsFold(a.Country, country) {
		return false
	}
	if state != "" && !equalsFold(a.State, state) {
		return false
	}
	if city != "" && !equalsFold(a.City, city) {
		return false
	}
	return true
}

func equalsFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
