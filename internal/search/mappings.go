package search

import (
	"fmt"
	"strings"
)

// Mapping tables between human-readable choices and the remote UI's
// internal codes. The codes are observed values, not part of any
// documented contract, so unknown inputs always degrade to "no filter".

// LocationChoices maps display names to geoUrn codes, ordered for menus.
// An empty code means no location filter.
var LocationChoices = []Choice{
	{"Any", ""},
	{"San Francisco Bay Area", "90000084"},
	{"New York City Metropolitan Area", "102571732"},
	{"Greater Los Angeles Area", "102448103"},
	{"Greater Chicago Area", "103112676"},
	{"Austin, Texas Area", "102748797"},
	{"Greater Seattle Area", "103658393"},
	{"Greater Boston Area", "105646813"},
	{"United States", "103644278"},
}

// IndustryChoices maps display names to industry IDs, ordered for menus.
var IndustryChoices = []Choice{
	{"Any", ""},
	{"Computer Software", "4"},
	{"Information Technology & Services", "96"},
	{"Internet", "6"},
	{"Financial Services", "43"},
	{"Management Consulting", "11"},
	{"Marketing & Advertising", "80"},
	{"Banking", "41"},
	{"Investment Banking", "45"},
	{"Venture Capital & Private Equity", "106"},
	{"E-Learning", "100"},
	{"Higher Education", "69"},
	{"Hospital & Health Care", "14"},
	{"Biotechnology", "12"},
	{"Pharmaceuticals", "15"},
	{"Medical Devices", "54"},
	{"Real Estate", "44"},
	{"Legal Services", "10"},
	{"Accounting", "47"},
	{"Human Resources", "137"},
	{"Staffing & Recruiting", "104"},
	{"Design", "27"},
	{"Entertainment", "28"},
	{"Telecommunications", "8"},
	{"Automotive", "53"},
	{"Aviation & Aerospace", "94"},
	{"Consumer Goods", "25"},
}

// NetworkChoices maps display names to the bracketed degree-code lists the
// listing URL expects: F=1st, S=2nd, O=3rd+.
var NetworkChoices = []Choice{
	{"1st degree connections only", `["F"]`},
	{"1st + 2nd degree connections", `["F","S"]`},
	{"1st, 2nd + 3rd degree connections", `["F","S","O"]`},
}

type Choice struct {
	Name string
	Code string
}

func codeFor(choices []Choice, name string) string {
	for _, c := range choices {
		if c.Name == name {
			return c.Code
		}
	}
	return ""
}

func nameFor(choices []Choice, code string) (string, bool) {
	for _, c := range choices {
		if c.Code == code {
			return c.Name, true
		}
	}
	return "", false
}

// LocationURN returns the geoUrn for a display name, or "" when unknown.
func LocationURN(name string) string { return codeFor(LocationChoices, name) }

// IndustryID returns the industry ID for a display name, or "" when unknown.
func IndustryID(name string) string { return codeFor(IndustryChoices, name) }

// IndustryIDsFor joins the IDs of several display names into the
// comma-separated storage form, skipping unknown names.
func IndustryIDsFor(names []string) string {
	var ids []string
	for _, n := range names {
		if id := IndustryID(n); id != "" {
			ids = append(ids, id)
		}
	}
	return strings.Join(ids, ",")
}

// NetworkValue returns the degree-code list for a display name, defaulting
// to 1st + 2nd degree.
func NetworkValue(name string) string {
	for _, c := range NetworkChoices {
		if c.Name == name {
			return c.Code
		}
	}
	return `["F","S"]`
}

// LocationName reverses a geoUrn to its display name for showing saved
// campaigns.
func LocationName(urn string) string {
	if n, ok := nameFor(LocationChoices, urn); ok && urn != "" {
		return n
	}
	return fmt.Sprintf("Unknown location (%s)", urn)
}

// IndustryName reverses an industry ID to its display name.
func IndustryName(id string) string {
	if n, ok := nameFor(IndustryChoices, id); ok && id != "" {
		return n
	}
	return fmt.Sprintf("Unknown industry (%s)", id)
}

// NetworkName reverses a degree-code list to its display name.
func NetworkName(value string) string {
	if n, ok := nameFor(NetworkChoices, value); ok {
		return n
	}
	return "1st + 2nd degree connections"
}

// FormatIDsForURL turns a comma-separated ID list into the bracketed,
// double-quoted form the listing URL expects: "4, 6" => ["4","6"].
// Empty input yields "".
func FormatIDsForURL(ids string) string {
	if strings.TrimSpace(ids) == "" {
		return ""
	}
	var quoted []string
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		quoted = append(quoted, `"`+id+`"`)
	}
	if len(quoted) == 0 {
		return ""
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// ParseIDsFromURL reverses FormatIDsForURL back to the comma-separated
// storage form.
func ParseIDsFromURL(formatted string) string {
	s := strings.TrimSpace(formatted)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return ""
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"`)
		if part != "" {
			ids = append(ids, part)
		}
	}
	return strings.Join(ids, ",")
}
