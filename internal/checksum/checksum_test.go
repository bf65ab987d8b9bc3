package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Sum([]byte("hello")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestMatches(t *testing.T) {
	const sum = "abc123"
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"abc123", true},
		{`"abc123"`, true},
		{`W/"abc123"`, true},
		{`"zzz", "abc123"`, true},
		{"*", true},
		{`"abc"`, false},
		{`""`, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.header, sum); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
