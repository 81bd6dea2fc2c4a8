// Package extract pulls best-effort company and contact facts out of raw
// search text with ordered label patterns.
package extract

import (
	"regexp"
	"strings"
)

// Fields holds the values found in a text blob. Empty means not found.
type Fields struct {
	Industry  string
	Revenue   string
	Employees string
	Products  string
	JobTitle  string
}

// valueGroup captures everything after a label up to the next sentence or
// list delimiter. A dot or comma between two digits is a decimal separator,
// so "2.5 billion" stays whole.
const valueGroup = `[:\s]*(?P<value>(?:\d[.,]\d|[^.,\n:])(?:\d[.,]\d|[^.,\n])*)`

func label(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + labels + `)` + valueGroup)
}

// patterns are grouped per field and tried in order; the first match wins.
// Russian labels come first because the collection queries are Russian.
var patterns = map[string][]*regexp.Regexp{
	"industry": {
		label(`отрасль|сфера|индустрия`),
		label(`industry|sector`),
	},
	"revenue": {
		label(`выручка|доходы?|оборот`),
		label(`revenue|turnover`),
	},
	"employees": {
		label(`сотрудник(?:ов|и|а)?|персонал|штат`),
		label(`employees|headcount`),
	},
	"products": {
		label(`продукт[ыи]?|услуг[аи]?|решени[яе]`),
		label(`products|services`),
	},
	"jobTitle": {
		label(`должность|позиция`),
		regexp.MustCompile(`(?i)(?P<value>(?:генеральный |исполнительный |коммерческий |финансовый |технический )?директор[^.,\n]*)`),
		label(`job title|position`),
	},
}

// Text extracts labelled values from a text blob. Fields are matched
// independently; a miss on one never blocks another.
func Text(text string) Fields {
	if strings.TrimSpace(text) == "" {
		return Fields{}
	}
	return Fields{
		Industry:  match(text, patterns["industry"]),
		Revenue:   match(text, patterns["revenue"]),
		Employees: match(text, patterns["employees"]),
		Products:  match(text, patterns["products"]),
		JobTitle:  match(text, patterns["jobTitle"]),
	}
}

func match(text string, ordered []*regexp.Regexp) string {
	for _, re := range ordered {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		idx := re.SubexpIndex("value")
		if idx < 0 || idx >= len(m) {
			continue
		}
		if v := strings.TrimSpace(m[idx]); v != "" {
			return v
		}
	}
	return ""
}

// SplitList turns a comma or semicolon separated value into trimmed items.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
