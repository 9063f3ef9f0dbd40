package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0812345678", "0812345678"},
		{"081-234-5678", "0812345678"},
		{"081 234 5678", "0812345678"},
		{"(081) 234-5678", "0812345678"},
		{"+66812345678", "0812345678"},
		{"66812345678", "0812345678"},
		{"812345678", "0812345678"},
	}
	for _, c := range cases {
		got, err := NormalizePhone(c.in)
		if err != nil {
			t.Errorf("NormalizePhone(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"12345",
		"1812345678",  // ten digits, no leading zero
		"08123456789", // eleven digits, not a 66 form
		"6681234567",  // 66 prefix but too short
		"abc",
	} {
		if got, err := NormalizePhone(in); err == nil {
			t.Errorf("NormalizePhone(%q) = %q, want error", in, got)
		}
	}
}

func TestValidYearOfBirth(t *testing.T) {
	for year, want := range map[int]bool{
		1899: false,
		1900: true,
		1990: true,
		2100: true,
		2101: false,
		0:    false,
	} {
		if got := ValidYearOfBirth(year); got != want {
			t.Errorf("ValidYearOfBirth(%d) = %v, want %v", year, got, want)
		}
	}
}
