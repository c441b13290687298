package domain

import (
	"strings"
)

// PhoneNumber is an immutable "CCC-AAA-LLLL" number.
// The zero value is not a valid number.
type PhoneNumber struct {
	country string
	area    string
	local   string
}

// ValidPhoneNumber reports whether s is exactly three digits, a hyphen,
// three digits, a hyphen and four digits.
func ValidPhoneNumber(s string) bool {
	if len(s) != 12 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch i {
		case 3, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// ParsePhoneNumber splits a valid dashed number into its three codes.
func ParsePhoneNumber(s string) (PhoneNumber, bool) {
	if !ValidPhoneNumber(s) {
		return PhoneNumber{}, false
	}
	parts := strings.Split(s, "-")
	return PhoneNumber{country: parts[0], area: parts[1], local: parts[2]}, true
}

func (p PhoneNumber) CountryCode() string { return p.country }
func (p PhoneNumber) AreaCode() string    { return p.area }
func (p PhoneNumber) LocalNumber() string { return p.local }

// String renders the canonical dashed form. It is also the ordering key.
func (p PhoneNumber) String() string {
	return p.country + "-" + p.area + "-" + p.local
}

// Compare orders numbers by their canonical rendering.
func (p PhoneNumber) Compare(o PhoneNumber) int {
	return strings.Compare(p.String(), o.String())
}

// IsZero reports whether p was never parsed.
func (p PhoneNumber) IsZero() bool {
	return p == PhoneNumber{}
}
