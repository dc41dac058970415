package valueobject

import (
	"errors"
	"fmt"
	"strings"
)

// ShippingAddress is a postal address captured on an order.
// All fields are optional as a group; a digital-only order carries none.
// Fields are exported so the ORM can embed the address into its owner's row.
type ShippingAddress struct {
	Line1      string `gorm:"column:line1;type:varchar(255)" json:"line1,omitempty"`
	Line2      string `gorm:"column:line2;type:varchar(255)" json:"line2,omitempty"`
	City       string `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`
	State      string `gorm:"column:state;type:varchar(100)" json:"state,omitempty"`
	PostalCode string `gorm:"column:postal_code;type:varchar(20)" json:"postal_code,omitempty"`
	Country    string `gorm:"column:country;type:varchar(2)" json:"country,omitempty"`
}

// NewShippingAddress creates a trimmed and validated address.
// Country is an ISO 3166-1 alpha-2 code and is upper-cased.
func NewShippingAddress(line1, line2, city, state, postalCode, country string) (ShippingAddress, error) {
	addr := ShippingAddress{
		Line1:      strings.TrimSpace(line1),
		Line2:      strings.TrimSpace(line2),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	if err := addr.Validate(); err != nil {
		return ShippingAddress{}, err
	}
	return addr, nil
}

// Validate checks field lengths, and that a non-empty address has a street line and a city
func (a ShippingAddress) Validate() error {
	if a.IsEmpty() {
		return nil
	}
	if a.Line1 == "" {
		return errors.New("address line1 is required")
	}
	if a.City == "" {
		return errors.New("city is required")
	}
	if len(a.Line1) > 255 || len(a.Line2) > 255 {
		return errors.New("address line cannot exceed 255 characters")
	}
	if len(a.City) > 100 || len(a.State) > 100 {
		return errors.New("city and state cannot exceed 100 characters")
	}
	if len(a.PostalCode) > 20 {
		return errors.New("postal code cannot exceed 20 characters")
	}
	if a.Country != "" && len(a.Country) != 2 {
		return fmt.Errorf("invalid country code: %s", a.Country)
	}
	return nil
}

// IsEmpty reports whether no field is set
func (a ShippingAddress) IsEmpty() bool {
	return a == ShippingAddress{}
}

// String returns a single-line rendering of the address
func (a ShippingAddress) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
