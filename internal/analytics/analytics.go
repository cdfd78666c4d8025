// Package analytics computes publication trends and topic frequencies on
// top of the PubMed client.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marco/pubmedVault/internal/pubmed"
)

// concurrentYearQueries bounds how many per-year count requests run at
// once. The client's rate limiter still spaces them out on the wire.
const concurrentYearQueries = 3

// Searcher is the slice of the PubMed client the analyzer needs.
type Searcher interface {
	CountResults(ctx context.Context, query string) (int, error)
	SearchArticles(ctx context.Context, opts pubmed.SearchOptions) (*pubmed.SearchResult, error)
}

// YearCount is the number of publications for a topic in one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// TrendReport summarizes publication volume for a topic over a year range.
type TrendReport struct {
	Topic      string      `json:"topic"`
	StartYear  int         `json:"start_year"`
	EndYear    int         `json:"end_year"`
	Years      []YearCount `json:"years"`
	Total      int         `json:"total"`
	GrowthRate float64     `json:"growth_rate"`
}

// TopicCount is a topic term with its occurrence count.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Analyzer runs trend queries against a PubMed searcher.
type Analyzer struct {
	searcher Searcher
	logger   *slog.Logger
}

func New(searcher Searcher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{searcher: searcher, logger: logger}
}

// AnalyzeTrends counts publications for the topic in each year of the range
// and derives the overall growth rate. Per-year queries run concurrently.
func (a *Analyzer) AnalyzeTrends(ctx context.Context, topic string, startYear, endYear int) (*TrendReport, error) {
	if topic == "" {
		return nil, pubmed.ErrEmptyQuery
	}
	if startYear > endYear {
		return nil, fmt.Errorf("invalid year range %d-%d", startYear, endYear)
	}

	years := make([]YearCount, endYear-startYear+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrentYearQueries)
	for i := range years {
		i := i
		year := startYear + i
		g.Go(func() error {
			query := fmt.Sprintf("%s AND (%q[Date - Publication] : %q[Date - Publication])",
				topic, fmt.Sprintf("%d/01/01", year), fmt.Sprintf("%d/12/31", year))
			count, err := a.searcher.CountResults(gctx, query)
			if err != nil {
				return fmt.Errorf("counting year %d: %w", year, err)
			}
			years[i] = YearCount{Year: year, Count: count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &TrendReport{
		Topic:     topic,
		StartYear: startYear,
		EndYear:   endYear,
		Years:     years,
	}
	for _, y := range years {
		report.Total += y.Count
	}
	report.GrowthRate = growthRate(years)

	a.logger.Debug("trend analysis complete",
		"topic", topic, "total", report.Total, "growth_rate", report.GrowthRate)
	return report, nil
}

// growthRate compares the last year against the first. A zero first year
// yields 0 rather than a division blowup.
func growthRate(years []YearCount) float64 {
	if len(years) < 2 {
		return 0
	}
	first := years[0].Count
	last := years[len(years)-1].Count
	if first == 0 {
		return 0
	}
	return float64(last-first) / float64(first)
}

// JournalReport summarizes a journal's publication activity for the
// current year.
type JournalReport struct {
	Journal        string           `json:"journal"`
	Year           int              `json:"year"`
	TotalArticles  int              `json:"total_articles"`
	SampleSize     int              `json:"sample_size"`
	ArticleTypes   []TopicCount     `json:"article_types,omitempty"`
	RecentArticles []pubmed.Article `json:"recent_articles,omitempty"`
}

// JournalMetrics samples the journal's current-year output and reports the
// volume plus the distribution of article types across the sample. With
// includeRecent the five newest sampled articles ride along.
func (a *Analyzer) JournalMetrics(ctx context.Context, journal string, includeRecent bool) (*JournalReport, error) {
	if journal == "" {
		return nil, pubmed.ErrEmptyQuery
	}

	year := time.Now().Year()
	result, err := a.searcher.SearchArticles(ctx, pubmed.SearchOptions{
		Journals:   []string{journal},
		MaxResults: 50,
		Sort:       pubmed.SortPublicationDate,
		DateFrom:   fmt.Sprintf("%d/01/01", year),
	})
	if err != nil {
		return nil, fmt.Errorf("sampling journal articles: %w", err)
	}

	report := &JournalReport{
		Journal:       journal,
		Year:          year,
		TotalArticles: result.TotalResults,
		SampleSize:    result.ReturnedResults,
	}

	typeCounts := make(map[string]int)
	for _, article := range result.Articles {
		for _, articleType := range article.ArticleTypes {
			typeCounts[articleType]++
		}
	}
	for name, n := range typeCounts {
		report.ArticleTypes = append(report.ArticleTypes, TopicCount{Topic: name, Count: n})
	}
	sort.Slice(report.ArticleTypes, func(i, j int) bool {
		if report.ArticleTypes[i].Count != report.ArticleTypes[j].Count {
			return report.ArticleTypes[i].Count > report.ArticleTypes[j].Count
		}
		return report.ArticleTypes[i].Topic < report.ArticleTypes[j].Topic
	})
	if len(report.ArticleTypes) > 5 {
		report.ArticleTypes = report.ArticleTypes[:5]
	}

	if includeRecent {
		recent := result.Articles
		if len(recent) > 5 {
			recent = recent[:5]
		}
		report.RecentArticles = recent
	}
	return report, nil
}

// TrendingTopics samples recent publications in a research area and ranks
// the keywords and major subject headings that appear most often.
func (a *Analyzer) TrendingTopics(ctx context.Context, area string, maxTopics int) ([]TopicCount, error) {
	if area == "" {
		return nil, pubmed.ErrEmptyQuery
	}
	if maxTopics <= 0 {
		maxTopics = 10
	}

	result, err := a.searcher.SearchArticles(ctx, pubmed.SearchOptions{
		Query:      area,
		MaxResults: 100,
		Sort:       pubmed.SortPublicationDate,
		DateRange:  pubmed.LastYear,
	})
	if err != nil {
		return nil, fmt.Errorf("sampling recent articles: %w", err)
	}

	counts := make(map[string]int)
	display := make(map[string]string)
	areaLower := strings.ToLower(area)

	tally := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if key == "" || key == areaLower {
			return
		}
		counts[key]++
		if _, ok := display[key]; !ok {
			display[key] = term
		}
	}

	for _, article := range result.Articles {
		for _, kw := range article.Keywords {
			tally(kw)
		}
		for _, mesh := range article.MeSHTerms {
			if mesh.MajorTopic {
				tally(mesh.Descriptor)
			}
		}
	}

	topics := make([]TopicCount, 0, len(counts))
	for key, n := range counts {
		topics = append(topics, TopicCount{Topic: display[key], Count: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics, nil
}
