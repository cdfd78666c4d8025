// Package format renders articles as human-readable text. It operates only
// on the canonical article model, never on raw API payloads.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/marco/pubmedVault/internal/pubmed"
)

// Authors renders an author list, truncating after max names with an
// "et al." marker. max <= 0 means no limit.
func Authors(authors []pubmed.Author, max int) string {
	if len(authors) == 0 {
		return "Unknown authors"
	}

	names := make([]string, 0, len(authors))
	for _, a := range authors {
		name := a.LastName
		if a.Initials != "" {
			name += " " + a.Initials
		} else if a.FirstName != "" {
			name += " " + a.FirstName
		}
		names = append(names, name)
	}

	if max > 0 && len(names) > max {
		return strings.Join(names[:max], ", ") + ", et al."
	}
	return strings.Join(names, ", ")
}

// Date normalizes a PubMed publication date to "2 Jan 2006" form where the
// parts allow it; partial and free-text dates pass through unchanged.
func Date(pubDate string) string {
	if pubDate == "" {
		return "Date unknown"
	}
	for _, layout := range []string{"2006 Jan 2", "2006 Jan", "2006"} {
		if t, err := time.Parse(layout, pubDate); err == nil {
			switch layout {
			case "2006 Jan 2":
				return t.Format("2 Jan 2006")
			case "2006 Jan":
				return t.Format("Jan 2006")
			default:
				return t.Format("2006")
			}
		}
	}
	return pubDate
}

// Truncate shortens s to at most max runes, appending an ellipsis when it
// cut something. Cuts happen at word boundaries when one is near.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)*3/4 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}

// MeSHTerms renders subject headings, listing major topics before the rest.
func MeSHTerms(terms []pubmed.MeSHTerm) string {
	var major, other []string
	for _, t := range terms {
		name := t.Descriptor
		if t.Qualifier != "" {
			name += "/" + t.Qualifier
		}
		if t.MajorTopic {
			major = append(major, "*"+name)
		} else {
			other = append(other, name)
		}
	}
	return strings.Join(append(major, other...), "; ")
}

// ArticleSummary renders a compact one-block summary of an article.
func ArticleSummary(a pubmed.Article) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", a.Title)
	fmt.Fprintf(&sb, "%s\n", Authors(a.Authors, 3))

	journal := a.Journal.Title
	if journal == "" {
		journal = a.Journal.ISOAbbreviation
	}
	if journal != "" {
		fmt.Fprintf(&sb, "%s. %s", journal, Date(a.PubDate))
	} else {
		sb.WriteString(Date(a.PubDate))
	}
	fmt.Fprintf(&sb, ". PMID: %s", a.PMID)
	if a.DOI != "" {
		fmt.Fprintf(&sb, ". doi: %s", a.DOI)
	}
	sb.WriteString("\n")

	if a.Abstract != "" {
		fmt.Fprintf(&sb, "\n%s\n", Truncate(a.Abstract, 300))
	}
	return sb.String()
}

// ArticleDetails renders the full record of an article section by section.
func ArticleDetails(a pubmed.Article) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Title: %s\n", a.Title)
	fmt.Fprintf(&sb, "PMID: %s\n", a.PMID)
	fmt.Fprintf(&sb, "Authors: %s\n", Authors(a.Authors, 0))

	if a.Journal.Title != "" {
		fmt.Fprintf(&sb, "Journal: %s", a.Journal.Title)
		if a.Journal.Volume != "" {
			fmt.Fprintf(&sb, ", Vol. %s", a.Journal.Volume)
			if a.Journal.Issue != "" {
				fmt.Fprintf(&sb, "(%s)", a.Journal.Issue)
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Published: %s\n", Date(a.PubDate))

	if a.DOI != "" {
		fmt.Fprintf(&sb, "DOI: %s\n", a.DOI)
	}
	if a.PMCID != "" {
		fmt.Fprintf(&sb, "PMC: %s\n", a.PMCID)
	}
	if len(a.ArticleTypes) > 0 {
		fmt.Fprintf(&sb, "Type: %s\n", strings.Join(a.ArticleTypes, ", "))
	}
	if a.Abstract != "" {
		fmt.Fprintf(&sb, "\nAbstract:\n%s\n", a.Abstract)
	}
	if len(a.MeSHTerms) > 0 {
		fmt.Fprintf(&sb, "\nMeSH Terms: %s\n", MeSHTerms(a.MeSHTerms))
	}
	if len(a.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(a.Keywords, "; "))
	}
	return sb.String()
}

// Comparison renders articles side by side. The basic block (title, lead
// authors, journal, PMID) is always present; "mesh_terms" and "abstracts"
// in fields add their sections.
func Comparison(articles []pubmed.Article, fields []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Comparison of %d articles\n\n", len(articles))
	for i, a := range articles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, a.Title)
		fmt.Fprintf(&sb, "   Authors: %s\n", Authors(a.Authors, 3))
		if a.Journal.Title != "" {
			fmt.Fprintf(&sb, "   Journal: %s (%s)\n", a.Journal.Title, Date(a.PubDate))
		}
		fmt.Fprintf(&sb, "   PMID: %s\n\n", a.PMID)
	}

	wants := make(map[string]bool, len(fields))
	for _, f := range fields {
		wants[f] = true
	}

	if wants["mesh_terms"] {
		sb.WriteString("MeSH Terms:\n")
		for i, a := range articles {
			terms := a.MeSHTerms
			if len(terms) > 5 {
				terms = terms[:5]
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, MeSHTerms(terms))
		}
		sb.WriteString("\n")
	}

	if wants["abstracts"] {
		sb.WriteString("Abstracts:\n")
		for i, a := range articles {
			abstract := a.Abstract
			if abstract == "" {
				abstract = "No abstract available"
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, Truncate(abstract, 200))
		}
	}

	return sb.String()
}

// ResultList renders a numbered list of article summaries.
func ResultList(result *pubmed.SearchResult) string {
	var sb strings.Builder

	query := result.Query
	if query == "" {
		// Filter-only searches have no free-text query; show the term
		// expression that went upstream instead.
		query = result.QueryTranslation
	}
	fmt.Fprintf(&sb, "Found %d results (showing %d) for: %s\n\n",
		result.TotalResults, result.ReturnedResults, query)
	for i, a := range result.Articles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ArticleSummary(a))
	}
	return sb.String()
}
