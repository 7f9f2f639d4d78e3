// Package constants provides centralized domain-specific constants
// for the entire marketstats application.
//
// The allow-listed countries and the accepted identification types are
// closed enumerations; every value outside these lists is rejected.
package constants

import (
	"fmt"
	"strings"
)

// =============================================================================
// Countries - closed allow-list of markets' owning countries
// =============================================================================

// Country is an allow-listed country name as persisted.
type Country string

const (
	// CountryArgentina is the Argentine Republic.
	CountryArgentina Country = "ARGENTINA"

	// CountryUruguay is the Oriental Republic of Uruguay.
	CountryUruguay Country = "URUGUAY"
)

// ValidCountries contains all allow-listed countries in declaration order.
var ValidCountries = []Country{CountryArgentina, CountryUruguay}

var countryDescriptions = map[Country]string{
	CountryArgentina: "Argentina",
	CountryUruguay:   "Uruguay",
}

// IsValidCountry checks if a country is allow-listed.
func IsValidCountry(c Country) bool {
	_, ok := countryDescriptions[c]
	return ok
}

// Description returns the display name used in statistics output.
func (c Country) Description() string {
	if d, ok := countryDescriptions[c]; ok {
		return d
	}
	return string(c)
}

// ParseCountry accepts either the persisted value or the display name,
// case-insensitively.
func ParseCountry(s string) (Country, error) {
	s = strings.TrimSpace(s)
	for _, c := range ValidCountries {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, c.Description()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("country %q is not allow-listed", s)
}

// =============================================================================
// Identification Types
// =============================================================================

// IdentificationType is the kind of document identifying a participant.
type IdentificationType string

const (
	// IdentificationDNI is a national identity document number.
	IdentificationDNI IdentificationType = "DNI"

	// IdentificationCUIT is a tax identification code.
	IdentificationCUIT IdentificationType = "CUIT"
)

// ValidIdentificationTypes contains all accepted identification types.
var ValidIdentificationTypes = []IdentificationType{IdentificationDNI, IdentificationCUIT}

// IsValidIdentificationType checks if an identification type is accepted.
func IsValidIdentificationType(t IdentificationType) bool {
	for _, v := range ValidIdentificationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Description returns the lower-case label of the identification type.
func (t IdentificationType) Description() string {
	return strings.ToLower(string(t))
}

// ParseIdentificationType accepts the persisted value case-insensitively.
func ParseIdentificationType(s string) (IdentificationType, error) {
	s = strings.TrimSpace(s)
	for _, t := range ValidIdentificationTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("identification type %q is not accepted", s)
}

// =============================================================================
// Percentages
// =============================================================================

const (
	// ZeroPercentage is reported for every market when no participant
	// belongs to any market.
	ZeroPercentage = "0.00"
)
