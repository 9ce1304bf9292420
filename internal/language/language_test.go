package language

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"es", "Spanish"},
		{"spa", "Spanish"},
		{"español", "Spanish"},
		{"SPANISH", "Spanish"},
		{"fre", "French"},
		{"fra", "French"},
		{"ger", "German"},
		{"Deutsch", "German"},
		{"chi", "Chinese"},
		{"mandarin", "Chinese"},
		{"dut", "Dutch"},
		{" japanese ", "Japanese"},
		{"sw", "Swahili"},
		{"klingon lite", "Klingon Lite"},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
