// Package normalize canonicalizes free-text purchase source labels so that
// duplicate spellings ("fb", "Facebook", "FACEBOOK M") collapse to a single
// PurchaseSource record. Source is pure and idempotent: canonical outputs pass
// through every rule unchanged or re-produce themselves.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultLocation = "Other"

var titleCaser = cases.Title(language.English)

// aliases maps whole collapsed-lowercase inputs to fixed labels. Exact match
// wins before any rule runs. Canonical outputs that could otherwise re-enter
// the rule chain ("facebook marketplace", "tk maxx") map to themselves.
var aliases = map[string]string{
	"fb":                   "Facebook Marketplace",
	"facebook":             "Facebook Marketplace",
	"facebook m":           "Facebook Marketplace",
	"facebook marketplace": "Facebook Marketplace",
	"home":                 "Home",
	"adverts":              "Adverts",
	"vinted":               "Vinted",
	"tk max":               "TK Maxx",
	"tk maxx":              "TK Maxx",
	"temu":                 "Temu",
	"charity shop":         "Charity Shop",
	"free":                 "Free",
	"dump":                 "Dump",
}

// A rule inspects the collapsed-lowercase form of the input and either
// produces the canonical label or passes. Rules run in fixed priority order;
// the first match wins.
type rule struct {
	name  string
	apply func(lower string) (string, bool)
}

// rules is the ordered transformation table. Long-form triggers ("vision
// ireland", "enable ireland") sit above their short forms so canonical
// outputs match the long form and stay stable under re-normalization.
var rules = []rule{
	{"svp", prefixRule("SVP", "svp")},
	{"vision ireland", prefixRule("Vision Ireland", "vision ireland")},
	{"vision", prefixRule("Vision Ireland", "vision")},
	{"sue ryder", prefixRule("Sue Ryder", "sue ryder")},
	{"cancer research", prefixRule("Cancer Research", "cancer research")},
	{"cancer", prefixRule("Cancer Research", "cancer")},
	{"car boot", containsRule("Car Boot", "car boot", "carboot")},
	{"auction", keywordRule("Auction", map[string]string{
		"lockes":       "Auction - Lockes",
		"matthews":     "Auction - Matthews",
		"south dublin": "Auction - South Dublin",
		"downs":        "Auction - Downs",
	}, "auction")},
	{"wholesale", keywordRule("Wholesale", map[string]string{
		"italian vintage": "Wholesale - Italian Vintage",
		"vintage":         "Wholesale - Vintage",
	}, "wholesale")},
	{"thrift", containsRule("Thrift", "thrift")},
	{"oxfam", prefixRule("Oxfam", "oxfam")},
	{"jack and jill", prefixRule("Jack and Jill", "jack and jill")},
	{"enable ireland", prefixRule("Enable Ireland", "enable ireland")},
	{"enable", prefixRule("Enable Ireland", "enable")},
	{"barnardos", prefixRule("Barnardos", "barnardos")},
	{"ark", prefixRule("Ark", "ark")},
	{"ark exact", func(lower string) (string, bool) {
		if lower == "ark" {
			return "Ark - Bray", true
		}
		return "", false
	}},
}

// Source canonicalizes a raw purchase source label. Unknown labels are
// returned trimmed but otherwise unchanged.
func Source(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	lower := collapse(strings.ToLower(trimmed))
	if canonical, ok := aliases[lower]; ok {
		return canonical
	}
	for _, r := range rules {
		if canonical, ok := r.apply(lower); ok {
			return canonical
		}
	}
	return trimmed
}

// collapse squeezes whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// location strips the trigger phrases out of the matched input and
// title-cases whatever remains. A leading dash is dropped so canonical
// "Label - Location" outputs round-trip to themselves.
func location(lower string, triggers ...string) string {
	rest := lower
	for _, t := range triggers {
		rest = strings.Replace(rest, t, "", 1)
	}
	rest = strings.TrimSpace(strings.TrimLeft(rest, " -"))
	if rest == "" {
		return defaultLocation
	}
	return titleCaser.String(rest)
}

func format(label, loc string) string { return label + " - " + loc }

// prefixRule matches "<trigger> ..." and maps it to "<label> - <Location>".
func prefixRule(label, trigger string) func(string) (string, bool) {
	return func(lower string) (string, bool) {
		if !strings.HasPrefix(lower, trigger+" ") {
			return "", false
		}
		return format(label, location(lower, trigger)), true
	}
}

// containsRule matches anywhere in the input, stripping every trigger before
// extracting the location.
func containsRule(label string, triggers ...string) func(string) (string, bool) {
	return func(lower string) (string, bool) {
		matched := false
		for _, t := range triggers {
			if strings.Contains(lower, t) {
				matched = true
				break
			}
		}
		if !matched {
			return "", false
		}
		return format(label, location(lower, triggers...)), true
	}
}

// keywordRule matches when the input contains the trigger, then resolves a
// fixed sub-lookup of known venue keywords, falling back to "<label> - Other".
func keywordRule(label string, venues map[string]string, trigger string) func(string) (string, bool) {
	// Longer keywords first so "italian vintage" beats "vintage".
	keys := make([]string, 0, len(venues))
	for k := range venues {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if len(keys[j]) > len(keys[i]) {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return func(lower string) (string, bool) {
		if !strings.Contains(lower, trigger) {
			return "", false
		}
		for _, k := range keys {
			if strings.Contains(lower, k) {
				return venues[k], true
			}
		}
		return format(label, defaultLocation), true
	}
}
