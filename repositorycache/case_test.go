package repositorycache

import "testing"

func TestToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"User", "user"},
		{"UserProfile", "user_profile"},
		{"HTTPServer", "http_server"},
		{"APIKey2", "api_key_2"},
		{"already_snake", "already_snake"},
		{"with-dash and space", "with_dash_and_space"},
		{"Trailing_", "trailing"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toSnake(tt.in); got != tt.want {
				t.Errorf("toSnake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
