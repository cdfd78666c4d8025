package format

import (
	"strings"
	"testing"

	"github.com/marco/pubmedVault/internal/pubmed"
)

func TestAuthors(t *testing.T) {
	authors := []pubmed.Author{
		{LastName: "Chen", Initials: "W"},
		{LastName: "Okafor", FirstName: "Adaeze"},
		{LastName: "Patel", Initials: "R"},
		{LastName: "Kim", Initials: "S"},
	}

	tests := []struct {
		name string
		in   []pubmed.Author
		max  int
		want string
	}{
		{"empty", nil, 3, "Unknown authors"},
		{"no limit", authors, 0, "Chen W, Okafor Adaeze, Patel R, Kim S"},
		{"truncated", authors, 2, "Chen W, Okafor Adaeze, et al."},
		{"under limit", authors[:2], 3, "Chen W, Okafor Adaeze"},
	}
	for _, tt := range tests {
		if got := Authors(tt.in, tt.max); got != tt.want {
			t.Errorf("%s: Authors = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2019 Sep 14", "14 Sep 2019"},
		{"2019 Sep", "Sep 2019"},
		{"2019", "2019"},
		{"2020 Jan-Feb", "2020 Jan-Feb"},
		{"", "Date unknown"},
	}
	for _, tt := range tests {
		if got := Date(tt.in); got != tt.want {
			t.Errorf("Date(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("short input modified: %q", got)
	}
	long := strings.Repeat("word ", 100)
	got := Truncate(long, 50)
	if len([]rune(got)) > 53 {
		t.Errorf("truncated output too long: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("max 0 should disable truncation, got %q", got)
	}
}

func TestMeSHTermsMajorFirst(t *testing.T) {
	terms := []pubmed.MeSHTerm{
		{Descriptor: "CRISPR-Cas Systems"},
		{Descriptor: "Anemia, Sickle Cell", Qualifier: "therapy", MajorTopic: true},
	}
	got := MeSHTerms(terms)
	want := "*Anemia, Sickle Cell/therapy; CRISPR-Cas Systems"
	if got != want {
		t.Errorf("MeSHTerms = %q, want %q", got, want)
	}
}

func TestArticleSummary(t *testing.T) {
	a := pubmed.Article{
		PMID:     "31452104",
		Title:    "CRISPR-based therapies",
		Authors:  []pubmed.Author{{LastName: "Chen", Initials: "W"}},
		Journal:  pubmed.Journal{Title: "Lancet"},
		PubDate:  "2019 Sep 14",
		DOI:      "10.1016/x",
		Abstract: "Gene editing shows promise.",
	}
	got := ArticleSummary(a)
	for _, want := range []string{
		"CRISPR-based therapies",
		"Chen W",
		"Lancet. 14 Sep 2019",
		"PMID: 31452104",
		"doi: 10.1016/x",
		"Gene editing shows promise.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestArticleDetailsOmitsEmptySections(t *testing.T) {
	a := pubmed.Article{PMID: "31452104", Title: "Minimal"}
	got := ArticleDetails(a)

	for _, absent := range []string{"DOI:", "PMC:", "Abstract:", "MeSH Terms:", "Keywords:", "Journal:"} {
		if strings.Contains(got, absent) {
			t.Errorf("empty section %q should be omitted:\n%s", absent, got)
		}
	}
	if !strings.Contains(got, "PMID: 31452104") {
		t.Errorf("missing PMID:\n%s", got)
	}
}

func TestComparison(t *testing.T) {
	articles := []pubmed.Article{
		{
			PMID:     "11111111",
			Title:    "First study",
			Authors:  []pubmed.Author{{LastName: "Chen", Initials: "W"}},
			Journal:  pubmed.Journal{Title: "Lancet"},
			PubDate:  "2019",
			Abstract: strings.Repeat("Long abstract text. ", 30),
			MeSHTerms: []pubmed.MeSHTerm{
				{Descriptor: "A"}, {Descriptor: "B"}, {Descriptor: "C"},
				{Descriptor: "D"}, {Descriptor: "E"}, {Descriptor: "F"},
			},
		},
		{
			PMID:  "22222222",
			Title: "Second study",
		},
	}

	got := Comparison(articles, []string{"mesh_terms", "abstracts"})

	for _, want := range []string{
		"Comparison of 2 articles",
		"1. First study",
		"Authors: Chen W",
		"Journal: Lancet (2019)",
		"PMID: 11111111",
		"2. Second study",
		"MeSH Terms:",
		"Abstracts:",
		"No abstract available",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("comparison missing %q:\n%s", want, got)
		}
	}
	// Only the first five MeSH terms per article appear.
	if strings.Contains(got, "; F") {
		t.Errorf("more than 5 MeSH terms rendered:\n%s", got)
	}
	// Long abstracts are truncated.
	if !strings.Contains(got, "...") {
		t.Errorf("abstract not truncated:\n%s", got)
	}
}

func TestComparisonFieldsOptional(t *testing.T) {
	articles := []pubmed.Article{
		{PMID: "11111111", Title: "First"},
		{PMID: "22222222", Title: "Second"},
	}
	got := Comparison(articles, nil)
	if strings.Contains(got, "MeSH Terms:") || strings.Contains(got, "Abstracts:") {
		t.Errorf("optional sections rendered without being requested:\n%s", got)
	}
	if !strings.Contains(got, "1. First") {
		t.Errorf("basic block missing:\n%s", got)
	}
}

func TestResultList(t *testing.T) {
	result := &pubmed.SearchResult{
		Query:           "crispr",
		TotalResults:    42,
		ReturnedResults: 1,
		Articles:        []pubmed.Article{{PMID: "31452104", Title: "One"}},
	}
	got := ResultList(result)
	if !strings.Contains(got, "Found 42 results (showing 1) for: crispr") {
		t.Errorf("header missing:\n%s", got)
	}
	if !strings.Contains(got, "1. One") {
		t.Errorf("numbered entry missing:\n%s", got)
	}
}

func TestResultListFilterOnlyHeader(t *testing.T) {
	result := &pubmed.SearchResult{
		QueryTranslation: "Nature[Journal]",
		TotalResults:     3,
	}
	if got := ResultList(result); !strings.Contains(got, "for: Nature[Journal]") {
		t.Errorf("header should fall back to the term expression:\n%s", got)
	}
}
