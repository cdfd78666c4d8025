package pubmed

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var pmidPattern = regexp.MustCompile(`^\d{7,9}$`)

var pmidExtractPattern = regexp.MustCompile(`\b\d{7,9}\b`)

// ValidPMID reports whether s looks like a PubMed identifier: digits only,
// seven to nine characters.
func ValidPMID(s string) bool {
	return pmidPattern.MatchString(s)
}

// ExtractPMIDs pulls every PMID-shaped token out of free text.
func ExtractPMIDs(text string) []string {
	return pmidExtractPattern.FindAllString(text, -1)
}

// filterPMIDs keeps the valid identifiers and returns the invalid ones
// separately so callers can log what was dropped.
func filterPMIDs(pmids []string) (valid, invalid []string) {
	for _, p := range pmids {
		p = strings.TrimSpace(p)
		if ValidPMID(p) {
			valid = append(valid, p)
		} else {
			invalid = append(invalid, p)
		}
	}
	return valid, invalid
}

// buildSearchQuery assembles a PubMed term expression from the base query
// and the optional filters, using the field tags the E-utilities search
// syntax expects.
func buildSearchQuery(opts SearchOptions) string {
	var parts []string
	if q := strings.TrimSpace(opts.Query); q != "" {
		parts = append(parts, q)
	}

	if tagged := tagGroup(opts.Authors, "Author"); tagged != "" {
		parts = append(parts, tagged)
	}
	if tagged := tagGroup(opts.Journals, "Journal"); tagged != "" {
		parts = append(parts, tagged)
	}
	if tagged := tagGroup(opts.MeSHTerms, "MeSH Terms"); tagged != "" {
		parts = append(parts, tagged)
	}
	if tagged := tagGroup(opts.ArticleTypes, "Publication Type"); tagged != "" {
		parts = append(parts, tagged)
	}

	from, to := opts.DateFrom, opts.DateTo
	if opts.DateRange != "" && opts.DateRange != AllTime && from == "" && to == "" {
		from, to = dateRangeBounds(opts.DateRange, time.Now())
	}
	if from != "" || to != "" {
		if from == "" {
			from = "1800/01/01"
		}
		if to == "" {
			to = "3000/12/31"
		}
		parts = append(parts, fmt.Sprintf("(%q[Date - Publication] : %q[Date - Publication])", from, to))
	}

	if opts.Language != "" {
		parts = append(parts, fmt.Sprintf("%s[Language]", opts.Language))
	}
	if opts.HasAbstract != nil && *opts.HasAbstract {
		parts = append(parts, "hasabstract")
	}
	if opts.HasFullText != nil && *opts.HasFullText {
		parts = append(parts, "free full text[sb]")
	}
	if opts.HumansOnly != nil && *opts.HumansOnly {
		parts = append(parts, "humans[MeSH Terms]")
	}

	return strings.Join(parts, " AND ")
}

// tagGroup renders values as an OR group with the given search field tag,
// e.g. (Smith J[Author] OR Doe A[Author]).
func tagGroup(values []string, field string) string {
	var tagged []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tagged = append(tagged, fmt.Sprintf("%s[%s]", v, field))
	}
	switch len(tagged) {
	case 0:
		return ""
	case 1:
		return tagged[0]
	default:
		return "(" + strings.Join(tagged, " OR ") + ")"
	}
}

// dateRangeBounds converts a shorthand range into explicit from/to dates.
func dateRangeBounds(r DateRange, now time.Time) (from, to string) {
	var years int
	switch r {
	case LastYear:
		years = 1
	case Last5Years:
		years = 5
	case Last10Years:
		years = 10
	default:
		return "", ""
	}
	const layout = "2006/01/02"
	return now.AddDate(-years, 0, 0).Format(layout), now.Format(layout)
}
