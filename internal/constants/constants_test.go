package constants

import "testing"

func TestParseCountry(t *testing.T) {
	tests := []struct {
		in      string
		want    Country
		wantErr bool
	}{
		{"ARGENTINA", CountryArgentina, false},
		{"argentina", CountryArgentina, false},
		{"Uruguay", CountryUruguay, false},
		{" URUGUAY ", CountryUruguay, false},
		{"CHILE", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCountry(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCountry(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCountry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountryDescription(t *testing.T) {
	if d := CountryArgentina.Description(); d != "Argentina" {
		t.Errorf("Description() = %q", d)
	}
	if IsValidCountry("BRAZIL") {
		t.Error("BRAZIL must not be allow-listed")
	}
}

func TestParseIdentificationType(t *testing.T) {
	if got, err := ParseIdentificationType("cuit"); err != nil || got != IdentificationCUIT {
		t.Errorf("ParseIdentificationType(cuit) = %q, %v", got, err)
	}
	if _, err := ParseIdentificationType("passport"); err == nil {
		t.Error("passport should be rejected")
	}
	if d := IdentificationDNI.Description(); d != "dni" {
		t.Errorf("Description() = %q", d)
	}
}
