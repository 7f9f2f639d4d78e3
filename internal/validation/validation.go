// Package validation provides centralized input validation for marketstats.
//
// Every failure wraps one of the validation sentinels in internal/errors, so
// callers can classify it with errors.KindOf as KindInvalidInput.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
)

// =============================================================================
// Free Text
// =============================================================================

const (
	// MaxNameLength bounds participant names.
	MaxNameLength = 255

	// MaxCodeLength bounds market codes.
	MaxCodeLength = 64

	// MaxIdentificationLength bounds identification values.
	MaxIdentificationLength = 64

	// MaxDescriptionLength bounds every description field.
	MaxDescriptionLength = 1024
)

// ValidateText checks a required single-line field: it must not be blank,
// must fit in maxLen bytes and must not contain control characters. Any other
// character is accepted.
func ValidateText(field, value string, maxLen int, sentinel error) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", field, errors.ErrMissingField)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s longer than %d bytes", sentinel, field, maxLen)
	}
	for i, r := range value {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %s has a control character at position %d", sentinel, field, i)
		}
	}
	return nil
}

// ValidateParticipantName validates a participant name.
func ValidateParticipantName(name string) error {
	return ValidateText("name", name, MaxNameLength, errors.ErrInvalidName)
}

// ValidateMarketCode validates a market code.
func ValidateMarketCode(code string) error {
	return ValidateText("code", code, MaxCodeLength, errors.ErrInvalidCode)
}

// ValidateIdentification validates an identification value. Its format is
// not checked against the identification type.
func ValidateIdentification(value string) error {
	return ValidateText("identification", value, MaxIdentificationLength, errors.ErrInvalidInput)
}

// ValidateDescription validates a free-text description. Empty is allowed.
func ValidateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return errors.NewInvalidValue("description", len(description),
			fmt.Sprintf("longer than %d bytes", MaxDescriptionLength))
	}
	for i, r := range description {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return errors.NewValidation("description", fmt.Sprintf("control character at position %d", i))
		}
	}
	return nil
}

// =============================================================================
// Enumerations
// =============================================================================

// ValidateIdentificationType validates an identification type string.
func ValidateIdentificationType(s string) error {
	if _, err := constants.ParseIdentificationType(s); err != nil {
		return fmt.Errorf("%w: '%s'", errors.ErrInvalidIdentificationType, s)
	}
	return nil
}

// ValidateCountry validates a country name against the allow-list.
func ValidateCountry(s string) error {
	if _, err := constants.ParseCountry(s); err != nil {
		return fmt.Errorf("%w: '%s'", errors.ErrInvalidCountry, s)
	}
	return nil
}

// =============================================================================
// Record Validation
// =============================================================================

// ValidateMarket validates a proposed market record.
func ValidateMarket(code, description, country string) error {
	v := errors.NewValidationErrors()
	v.Add(ValidateMarketCode(code))
	v.Add(ValidateDescription(description))
	v.Add(ValidateCountry(country))
	return v.Err()
}

// ValidateParticipant validates a proposed participant record.
func ValidateParticipant(name, identification, idType, description string) error {
	v := errors.NewValidationErrors()
	v.Add(ValidateParticipantName(name))
	v.Add(ValidateIdentification(identification))
	v.Add(ValidateIdentificationType(idType))
	v.Add(ValidateDescription(description))
	return v.Err()
}
