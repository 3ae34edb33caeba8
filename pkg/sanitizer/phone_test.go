package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid E.164 format",
			input: "+919876543210",
			want:  "+919876543210",
		},
		{
			name:  "with spaces",
			input: "+91 98765 43210",
			want:  "+919876543210",
		},
		{
			name:  "with dashes",
			input: "+91-98765-43210",
			want:  "+919876543210",
		},
		{
			name:  "national number reads as indian",
			input: "9876543210",
			want:  "+919876543210",
		},
		{
			name:  "national number with trunk prefix",
			input: "09876543210",
			want:  "+919876543210",
		},
		{
			name:  "us number with parentheses",
			input: "+1 (650) 253-0000",
			want:  "+16502530000",
		},
		{
			name:  "leading and trailing spaces",
			input: "  +919876543210  ",
			want:  "+919876543210",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
		{
			name:  "letters",
			input: "not-a-phone",
			want:  "",
		},
		{
			name:  "too short",
			input: "12345",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once := NormalizePhone("098765 43210")
	if twice := NormalizePhone(once); twice != once {
		t.Errorf("NormalizePhone not idempotent: %q then %q", once, twice)
	}
}
