package pubmed

import (
	"encoding/xml"
	"log/slog"
	"strings"
)

// XML document types mirroring the efetch PubmedArticleSet payload. Only
// the fields the canonical Article model needs are declared; everything
// else in the payload is skipped by the decoder.

type xmlArticleSet struct {
	XMLName  xml.Name         `xml:"PubmedArticleSet"`
	Articles []xmlPubmedEntry `xml:"PubmedArticle"`
}

type xmlPubmedEntry struct {
	Citation xmlMedlineCitation `xml:"MedlineCitation"`
	Data     xmlPubmedData      `xml:"PubmedData"`
}

type xmlMedlineCitation struct {
	PMID         string           `xml:"PMID"`
	Article      xmlArticle       `xml:"Article"`
	MeshHeadings []xmlMeshHeading `xml:"MeshHeadingList>MeshHeading"`
	KeywordLists []xmlKeywordList `xml:"KeywordList"`
}

type xmlArticle struct {
	Title        xmlArticleTitle  `xml:"ArticleTitle"`
	Abstract     xmlAbstract      `xml:"Abstract"`
	Authors      []xmlAuthor      `xml:"AuthorList>Author"`
	Journal      xmlJournal       `xml:"Journal"`
	Languages    []string         `xml:"Language"`
	PubTypes     []string         `xml:"PublicationTypeList>PublicationType"`
	ELocationIDs []xmlELocationID `xml:"ELocationID"`
}

// xmlArticleTitle flattens inline markup (<i>, <sup>, ...) that NCBI
// embeds in some titles.
type xmlArticleTitle struct {
	Value string `xml:",chardata"`
	Inner string `xml:",innerxml"`
}

type xmlAbstract struct {
	Sections []xmlAbstractText `xml:"AbstractText"`
}

type xmlAbstractText struct {
	Label string `xml:"Label,attr"`
	Value string `xml:",chardata"`
}

type xmlAuthor struct {
	LastName       string   `xml:"LastName"`
	ForeName       string   `xml:"ForeName"`
	Initials       string   `xml:"Initials"`
	CollectiveName string   `xml:"CollectiveName"`
	Affiliations   []string `xml:"AffiliationInfo>Affiliation"`
}

type xmlJournal struct {
	Title           string          `xml:"Title"`
	ISOAbbreviation string          `xml:"ISOAbbreviation"`
	ISSN            string          `xml:"ISSN"`
	Issue           xmlJournalIssue `xml:"JournalIssue"`
}

type xmlJournalIssue struct {
	Volume  string     `xml:"Volume"`
	Issue   string     `xml:"Issue"`
	PubDate xmlPubDate `xml:"PubDate"`
}

type xmlPubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type xmlELocationID struct {
	Type  string `xml:"EIdType,attr"`
	Value string `xml:",chardata"`
}

type xmlMeshHeading struct {
	Descriptor xmlMeshName   `xml:"DescriptorName"`
	Qualifiers []xmlMeshName `xml:"QualifierName"`
}

type xmlMeshName struct {
	UI         string `xml:"UI,attr"`
	MajorTopic string `xml:"MajorTopicYN,attr"`
	Value      string `xml:",chardata"`
}

type xmlKeywordList struct {
	Keywords []string `xml:"Keyword"`
}

type xmlPubmedData struct {
	ArticleIDs []xmlArticleID `xml:"ArticleIdList>ArticleId"`
}

type xmlArticleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// ParseArticles decodes an efetch XML payload into canonical articles. A
// malformed payload yields an empty slice rather than an error; entries
// missing a PMID are dropped individually so one broken record never takes
// its siblings down with it.
func ParseArticles(data []byte, logger *slog.Logger) []Article {
	if logger == nil {
		logger = slog.Default()
	}

	var set xmlArticleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		logger.Warn("failed to parse article XML", "error", err)
		return []Article{}
	}

	articles := make([]Article, 0, len(set.Articles))
	for _, entry := range set.Articles {
		pmid := strings.TrimSpace(entry.Citation.PMID)
		if pmid == "" {
			logger.Warn("skipping article without PMID")
			continue
		}
		articles = append(articles, convertEntry(pmid, entry))
	}
	return articles
}

func convertEntry(pmid string, entry xmlPubmedEntry) Article {
	src := entry.Citation.Article

	a := Article{
		PMID:         pmid,
		Title:        articleTitle(src.Title),
		Abstract:     joinAbstract(src.Abstract.Sections),
		Authors:      convertAuthors(src.Authors),
		Journal:      convertJournal(src.Journal),
		PubDate:      formatPubDate(src.Journal.Issue.PubDate),
		ArticleTypes: trimAll(src.PubTypes),
		MeSHTerms:    convertMesh(entry.Citation.MeshHeadings),
		Keywords:     collectKeywords(entry.Citation.KeywordLists),
		Languages:    trimAll(src.Languages),
	}

	a.DOI, a.PMCID = articleIDs(src.ELocationIDs, entry.Data.ArticleIDs)
	return a
}

func articleTitle(t xmlArticleTitle) string {
	if v := strings.TrimSpace(t.Value); v != "" {
		return v
	}
	return strings.TrimSpace(stripTags(t.Inner))
}

// stripTags removes inline XML markup, keeping the text content.
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// joinAbstract concatenates structured abstract sections, prefixing each
// labeled section with its label ("BACKGROUND: ...").
func joinAbstract(sections []xmlAbstractText) string {
	var parts []string
	for _, s := range sections {
		text := strings.TrimSpace(s.Value)
		if text == "" {
			continue
		}
		if label := strings.TrimSpace(s.Label); label != "" {
			text = label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

func convertAuthors(src []xmlAuthor) []Author {
	var out []Author
	for _, a := range src {
		author := Author{
			LastName:  strings.TrimSpace(a.LastName),
			FirstName: strings.TrimSpace(a.ForeName),
			Initials:  strings.TrimSpace(a.Initials),
		}
		if author.LastName == "" {
			// Consortium entries carry a CollectiveName instead.
			author.LastName = strings.TrimSpace(a.CollectiveName)
		}
		if author.LastName == "" {
			continue
		}
		if len(a.Affiliations) > 0 {
			author.Affiliation = strings.TrimSpace(a.Affiliations[0])
		}
		out = append(out, author)
	}
	return out
}

func convertJournal(src xmlJournal) Journal {
	return Journal{
		Title:           strings.TrimSpace(src.Title),
		ISOAbbreviation: strings.TrimSpace(src.ISOAbbreviation),
		ISSN:            strings.TrimSpace(src.ISSN),
		Volume:          strings.TrimSpace(src.Issue.Volume),
		Issue:           strings.TrimSpace(src.Issue.Issue),
		PubDate:         formatPubDate(src.Issue.PubDate),
	}
}

// formatPubDate renders whatever date parts are present, falling back to
// the MedlineDate free-text form for season and range dates.
func formatPubDate(d xmlPubDate) string {
	if d.Year == "" {
		return strings.TrimSpace(d.MedlineDate)
	}
	parts := []string{strings.TrimSpace(d.Year)}
	if m := strings.TrimSpace(d.Month); m != "" {
		parts = append(parts, m)
		if day := strings.TrimSpace(d.Day); day != "" {
			parts = append(parts, day)
		}
	}
	return strings.Join(parts, " ")
}

func articleIDs(eloc []xmlELocationID, ids []xmlArticleID) (doi, pmcid string) {
	for _, e := range eloc {
		if strings.EqualFold(e.Type, "doi") && doi == "" {
			doi = strings.TrimSpace(e.Value)
		}
	}
	for _, id := range ids {
		switch strings.ToLower(id.Type) {
		case "doi":
			if doi == "" {
				doi = strings.TrimSpace(id.Value)
			}
		case "pmc":
			if pmcid == "" {
				pmcid = strings.TrimSpace(id.Value)
			}
		}
	}
	return doi, pmcid
}

func convertMesh(src []xmlMeshHeading) []MeSHTerm {
	var out []MeSHTerm
	for _, h := range src {
		name := strings.TrimSpace(h.Descriptor.Value)
		if name == "" {
			continue
		}
		term := MeSHTerm{
			Descriptor: name,
			MajorTopic: h.Descriptor.MajorTopic == "Y",
			UI:         strings.TrimSpace(h.Descriptor.UI),
		}
		if len(h.Qualifiers) > 0 {
			term.Qualifier = strings.TrimSpace(h.Qualifiers[0].Value)
			if h.Qualifiers[0].MajorTopic == "Y" {
				term.MajorTopic = true
			}
		}
		out = append(out, term)
	}
	return out
}

func collectKeywords(lists []xmlKeywordList) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, k := range l.Keywords {
			k = strings.TrimSpace(k)
			if k == "" || seen[strings.ToLower(k)] {
				continue
			}
			seen[strings.ToLower(k)] = true
			out = append(out, k)
		}
	}
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
