package enums

import "fmt"

// TradeRole classifies the buyer account for discount eligibility.
type TradeRole string

const (
	TradeRoleBuyer      TradeRole = "buyer"
	TradeRoleCompany    TradeRole = "company"
	TradeRoleFreelancer TradeRole = "freelancer"
)

var validTradeRoles = []TradeRole{
	TradeRoleBuyer,
	TradeRoleCompany,
	TradeRoleFreelancer,
}

// String implements fmt.Stringer.
func (r TradeRole) String() string {
	return string(r)
}

// IsVendorSide reports whether the role receives vendor-audience discounts.
func (r TradeRole) IsVendorSide() bool {
	return r == TradeRoleCompany || r == TradeRoleFreelancer
}

// IsValid reports whether the value is a known TradeRole.
func (r TradeRole) IsValid() bool {
	for _, candidate := range validTradeRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTradeRole converts raw input into a TradeRole.
func ParseTradeRole(value string) (TradeRole, error) {
	for _, candidate := range validTradeRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade role %q", value)
}
