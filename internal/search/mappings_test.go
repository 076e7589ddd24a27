package search

import "testing"

func TestFormatIDsForURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"4", `["4"]`},
		{"4,6", `["4","6"]`},
		{"4, 6, 96", `["4","6","96"]`},
		{", ,", ""},
		{"4,,6", `["4","6"]`},
	}
	for _, tc := range cases {
		if got := FormatIDsForURL(tc.in); got != tc.want {
			t.Errorf("FormatIDsForURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseIDsFromURLRoundTrip(t *testing.T) {
	for _, ids := range []string{"4", "4,6", "4,6,96"} {
		if got := ParseIDsFromURL(FormatIDsForURL(ids)); got != ids {
			t.Errorf("round trip of %q = %q", ids, got)
		}
	}
	if got := ParseIDsFromURL(""); got != "" {
		t.Errorf("ParseIDsFromURL(\"\") = %q", got)
	}
}

func TestLocationLookups(t *testing.T) {
	if got := LocationURN("San Francisco Bay Area"); got != "90000084" {
		t.Errorf("LocationURN = %q", got)
	}
	if got := LocationURN("Atlantis"); got != "" {
		t.Errorf("unknown location should map to no filter, got %q", got)
	}
	if got := LocationName("90000084"); got != "San Francisco Bay Area" {
		t.Errorf("LocationName = %q", got)
	}
}

func TestIndustryIDsFor(t *testing.T) {
	got := IndustryIDsFor([]string{"Computer Software", "Nonexistent", "Internet"})
	if got != "4,6" {
		t.Errorf("IndustryIDsFor = %q, want \"4,6\"", got)
	}
}

func TestNetworkValueDefault(t *testing.T) {
	if got := NetworkValue("something else"); got != `["F","S"]` {
		t.Errorf("NetworkValue default = %q", got)
	}
	if got := NetworkValue("1st degree connections only"); got != `["F"]` {
		t.Errorf("NetworkValue 1st = %q", got)
	}
}
