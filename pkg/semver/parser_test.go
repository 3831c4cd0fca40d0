package semver

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1.0.0", false},
		{"2.1.3-beta.1", false},
		{" 3.0.0 ", false},
		{"1.2", false},
		{"", true},
		{"banana", true},
		{"1.0.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("semver:parser_test - ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestIsMajorOnly(t *testing.T) {
	if !IsMajorOnly("3") {
		t.Error("semver:parser_test - expected 3 to be major-only")
	}
	if IsMajorOnly("3.0") || IsMajorOnly("^3") {
		t.Error("semver:parser_test - expected ranges not to be major-only")
	}
}
