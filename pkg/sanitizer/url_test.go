package sanitizer

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"  http://CDN.Example.com/treks/kedarkantha.jpg ", "https://cdn.example.com/treks/kedarkantha.jpg"},
		{"cdn.example.com/", "https://cdn.example.com"},
		{"https://cdn.example.com/Path/Keeps/Case#top", "https://cdn.example.com/Path/Keeps/Case"},
		{"https://cdn.example.com/img.jpg?w=800", "https://cdn.example.com/img.jpg?w=800"},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
