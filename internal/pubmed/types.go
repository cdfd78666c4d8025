package pubmed

// SortOrder selects the esearch result ordering.
type SortOrder string

const (
	SortRelevance       SortOrder = "relevance"
	SortPublicationDate SortOrder = "pub_date"
	SortAuthor          SortOrder = "author"
	SortJournal         SortOrder = "journal"
	SortTitle           SortOrder = "title"
)

// DateRange is a predefined publication date window.
type DateRange string

const (
	LastYear    DateRange = "1y"
	Last5Years  DateRange = "5y"
	Last10Years DateRange = "10y"
	AllTime     DateRange = "all"
)

// Author represents an article author.
type Author struct {
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name,omitempty"`
	Initials    string `json:"initials,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Journal holds journal metadata for an article.
type Journal struct {
	Title           string `json:"title"`
	ISOAbbreviation string `json:"iso_abbreviation,omitempty"`
	ISSN            string `json:"issn,omitempty"`
	Volume          string `json:"volume,omitempty"`
	Issue           string `json:"issue,omitempty"`
	PubDate         string `json:"pub_date,omitempty"`
}

// MeSHTerm is a controlled-vocabulary subject heading attached to an article.
type MeSHTerm struct {
	Descriptor string `json:"descriptor_name"`
	Qualifier  string `json:"qualifier_name,omitempty"`
	MajorTopic bool   `json:"major_topic"`
	UI         string `json:"ui,omitempty"`
}

// Article is the canonical structured record produced by the parser. Every
// downstream consumer works with this type; raw maps never travel past the
// parse boundary.
type Article struct {
	PMID         string     `json:"pmid"`
	Title        string     `json:"title"`
	Abstract     string     `json:"abstract,omitempty"`
	Authors      []Author   `json:"authors,omitempty"`
	Journal      Journal    `json:"journal"`
	PubDate      string     `json:"pub_date,omitempty"`
	DOI          string     `json:"doi,omitempty"`
	PMCID        string     `json:"pmc_id,omitempty"`
	ArticleTypes []string   `json:"article_types,omitempty"`
	MeSHTerms    []MeSHTerm `json:"mesh_terms,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Languages    []string   `json:"languages,omitempty"`
}

// SearchResult is the envelope returned by every search-style operation.
// Query echoes what the caller asked for; QueryTranslation is the full term
// expression actually sent upstream once filters are folded in.
type SearchResult struct {
	Query            string    `json:"query"`
	QueryTranslation string    `json:"query_translation,omitempty"`
	TotalResults     int       `json:"total_results"`
	ReturnedResults  int       `json:"returned_results"`
	Articles         []Article `json:"articles"`
	SearchTime       float64   `json:"search_time"`
}

// SearchOptions holds the parameter set accepted by SearchArticles. Pointer
// fields are tri-state filters: nil means "not specified" and is omitted from
// both the query and the cache key.
type SearchOptions struct {
	Query        string
	MaxResults   int
	Sort         SortOrder
	DateFrom     string
	DateTo       string
	DateRange    DateRange
	ArticleTypes []string
	Authors      []string
	Journals     []string
	MeSHTerms    []string
	Language     string
	HasAbstract  *bool
	HasFullText  *bool
	HumansOnly   *bool
}

// hasFieldFilters reports whether any field-tagged filter is set. A search
// with no free-text query is still valid when one of these is present.
func (o SearchOptions) hasFieldFilters() bool {
	return len(o.Authors) > 0 || len(o.Journals) > 0 || len(o.MeSHTerms) > 0 || len(o.ArticleTypes) > 0
}

// esearchResponse mirrors the JSON shape of the esearch endpoint. The count
// comes back as a string.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count  string   `json:"count"`
	IDList []string `json:"idlist"`
}

// elinkResponse mirrors the JSON shape of the elink endpoint.
type elinkResponse struct {
	LinkSets []elinkSet `json:"linksets"`
}

type elinkSet struct {
	LinkSetDBs []elinkSetDB `json:"linksetdbs"`
}

type elinkSetDB struct {
	LinkName string   `json:"linkname"`
	Links    []string `json:"links"`
}
