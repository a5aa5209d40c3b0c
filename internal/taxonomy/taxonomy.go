// Package taxonomy defines the closed set of policy categories recognized by
// the moderation pipeline. The set is fixed at compile time; classifier
// output and report selections are matched against it case-insensitively,
// and anything outside the set is treated as no policy match.
package taxonomy

import "strings"

// Category identifies one policy category from the platform's terrorism and
// violent-extremism policy.
type Category int

const (
	// None means no policy category applies.
	None Category = iota
	GlorificationPromotion
	TerroristAccount
	Recruitment
	DirectThreatIncitement
	FinancingTerrorism
)

// labels are the wire/display names for each category. These strings are
// part of the observable contract: classifier output and moderator-facing
// log lines use them verbatim.
var labels = map[Category]string{
	None:                   "none",
	GlorificationPromotion: "glorification/promotion",
	TerroristAccount:       "terrorist account",
	Recruitment:            "recruitment",
	DirectThreatIncitement: "direct threat/incitement",
	FinancingTerrorism:     "financing terrorism",
}

// byLabel is the reverse lookup, built once at package init. Keys are
// lower-case; Parse lower-cases its input before the lookup.
var byLabel = func() map[string]Category {
	m := make(map[string]Category, len(labels))
	for c, l := range labels {
		m[l] = c
	}
	return m
}()

// String returns the category's wire label.
func (c Category) String() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return "none"
}

// Parse matches a label against the taxonomy, ignoring case and surrounding
// whitespace. It returns the matched category and true, or (None, false) for
// anything outside the closed set. "none" itself parses successfully to None.
func Parse(label string) (Category, bool) {
	c, ok := byLabel[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return None, false
	}
	return c, true
}

// All returns the reportable categories in their fixed display order.
// None is excluded: it is not something a user can report.
func All() []Category {
	return []Category{
		GlorificationPromotion,
		TerroristAccount,
		Recruitment,
		DirectThreatIncitement,
		FinancingTerrorism,
	}
}
