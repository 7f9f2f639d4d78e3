package validation

import (
	"strings"
	"testing"

	"github.com/xtxerr/marketstats/internal/errors"
)

func TestValidateParticipantName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Juan Perez", false},
		{"with dot", "Acme S.A.", false},
		{"apostrophe", "O'Brien", false},
		{"ampersand", "Galicia & Cia", false},
		{"accented", "Nuñez", false},
		{"underscore", "juan_perez", false},
		{"slash", "a/b", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"control char", "a\x00b", true},
		{"newline", "a\nb", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParticipantName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateParticipantName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && errors.KindOf(err) != errors.KindInvalidInput {
				t.Errorf("KindOf(%v) = %v, want InvalidInput", err, errors.KindOf(err))
			}
		})
	}
}

func TestValidateMarketCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "MAE", false},
		{"with underscore", "ROFEX_20", false},
		{"with space", "MA E", false},
		{"empty", "", true},
		{"tab", "MA\tE", true},
		{"too long", strings.Repeat("X", MaxCodeLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMarketCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMarketCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && errors.KindOf(err) != errors.KindInvalidInput {
				t.Errorf("KindOf(%v) = %v, want InvalidInput", err, errors.KindOf(err))
			}
		})
	}

	if err := ValidateMarketCode("A\x7f"); !errors.Is(err, errors.ErrInvalidCode) {
		t.Errorf("ValidateMarketCode(DEL) = %v, want ErrInvalidCode", err)
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription(""); err != nil {
		t.Errorf("empty description rejected: %v", err)
	}
	if err := ValidateDescription("line one\nline two"); err != nil {
		t.Errorf("multi-line description rejected: %v", err)
	}
	if err := ValidateDescription("bell\x07"); err == nil {
		t.Error("expected control character to be rejected")
	}
	if err := ValidateDescription(strings.Repeat("d", MaxDescriptionLength+1)); err == nil {
		t.Error("expected oversized description to be rejected")
	}
}

func TestValidateIdentification(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"dni", "30123456", false},
		{"short dni", "1234", false},
		{"cuit plain", "20301234567", false},
		{"cuit dashed", "20-30123456-7", false},
		{"letters", "AB-123", false},
		{"empty", "", true},
		{"blank", " ", true},
		{"control char", "12\x0034", true},
		{"too long", strings.Repeat("1", MaxIdentificationLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentification(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentification(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCountry(t *testing.T) {
	for _, ok := range []string{"ARGENTINA", "uruguay", "Argentina"} {
		if err := ValidateCountry(ok); err != nil {
			t.Errorf("ValidateCountry(%q) = %v", ok, err)
		}
	}
	err := ValidateCountry("CHILE")
	if !errors.Is(err, errors.ErrInvalidCountry) {
		t.Errorf("ValidateCountry(CHILE) = %v, want ErrInvalidCountry", err)
	}
}

func TestValidateParticipant_CollectsAll(t *testing.T) {
	err := ValidateParticipant("", "1234", "PASSPORT", strings.Repeat("d", MaxDescriptionLength+1))
	if err == nil {
		t.Fatal("expected validation errors")
	}

	var verrs *errors.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error %T is not *ValidationErrors", err)
	}
	if len(verrs.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verrs.Errors), err)
	}
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("KindOf = %v, want InvalidInput", errors.KindOf(err))
	}

	if err := ValidateParticipant("O'Brien", "1234", "dni", ""); err != nil {
		t.Errorf("valid participant rejected: %v", err)
	}
}

func TestValidateMarket(t *testing.T) {
	if err := ValidateMarket("MAE", "Mercado Abierto", "ARGENTINA"); err != nil {
		t.Errorf("valid market rejected: %v", err)
	}
	if err := ValidateMarket("", "x", "PERU"); err == nil {
		t.Error("expected invalid market to be rejected")
	}
}
