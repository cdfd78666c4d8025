package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marco/pubmedVault/internal/format"
	"github.com/marco/pubmedVault/internal/pubmed"
)

func (s *Server) handle(ctx context.Context, req request) response {
	start := time.Now()
	result, err := s.dispatch(ctx, req.Tool, req.Arguments)
	if err != nil {
		s.logger.Warn("tool call failed",
			"tool", req.Tool,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return response{ID: req.ID, Error: err.Error()}
	}

	s.logger.Debug("tool call complete",
		"tool", req.Tool,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return response{ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, tool string, args json.RawMessage) (any, error) {
	switch tool {
	case "search_pubmed":
		return s.searchPubmed(ctx, args)
	case "get_article_details":
		return s.getArticleDetails(ctx, args)
	case "search_by_author":
		return s.searchByAuthor(ctx, args)
	case "find_related_articles":
		return s.findRelatedArticles(ctx, args)
	case "compare_articles":
		return s.compareArticles(ctx, args)
	case "get_journal_metrics":
		return s.getJournalMetrics(ctx, args)
	case "search_mesh_terms":
		return s.searchMeshTerms(ctx, args)
	case "search_by_journal":
		return s.searchByJournal(ctx, args)
	case "analyze_research_trends":
		return s.analyzeResearchTrends(ctx, args)
	case "get_trending_topics":
		return s.getTrendingTopics(ctx, args)
	case "get_cache_stats":
		return s.getCacheStats()
	case "clear_cache":
		return s.clearCache()
	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// searchResultPayload pairs the structured envelope with a human-readable
// rendering.
type searchResultPayload struct {
	*pubmed.SearchResult
	Formatted string `json:"formatted"`
}

func resultPayload(result *pubmed.SearchResult) searchResultPayload {
	return searchResultPayload{
		SearchResult: result,
		Formatted:    format.ResultList(result),
	}
}

type searchArgs struct {
	Query        string   `json:"query"`
	MaxResults   int      `json:"max_results"`
	Sort         string   `json:"sort"`
	DateFrom     string   `json:"date_from"`
	DateTo       string   `json:"date_to"`
	DateRange    string   `json:"date_range"`
	ArticleTypes []string `json:"article_types"`
	Authors      []string `json:"authors"`
	Journals     []string `json:"journals"`
	MeSHTerms    []string `json:"mesh_terms"`
	Language     string   `json:"language"`
	HasAbstract  *bool    `json:"has_abstract"`
	HasFullText  *bool    `json:"has_full_text"`
	HumansOnly   *bool    `json:"humans_only"`
}

func (a searchArgs) options() pubmed.SearchOptions {
	return pubmed.SearchOptions{
		Query:        a.Query,
		MaxResults:   a.MaxResults,
		Sort:         pubmed.SortOrder(a.Sort),
		DateFrom:     a.DateFrom,
		DateTo:       a.DateTo,
		DateRange:    pubmed.DateRange(a.DateRange),
		ArticleTypes: a.ArticleTypes,
		Authors:      a.Authors,
		Journals:     a.Journals,
		MeSHTerms:    a.MeSHTerms,
		Language:     a.Language,
		HasAbstract:  a.HasAbstract,
		HasFullText:  a.HasFullText,
		HumansOnly:   a.HumansOnly,
	}
}

func (s *Server) searchPubmed(ctx context.Context, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	result, err := s.client.SearchArticles(ctx, args.options())
	if err != nil {
		return nil, err
	}
	return resultPayload(result), nil
}

func (s *Server) getArticleDetails(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		PMIDs []string `json:"pmids"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	articles, err := s.client.GetArticleDetails(ctx, args.PMIDs)
	if err != nil {
		return nil, err
	}

	formatted := make([]string, len(articles))
	for i, a := range articles {
		formatted[i] = format.ArticleDetails(a)
	}
	return map[string]any{
		"articles":  articles,
		"formatted": formatted,
	}, nil
}

func (s *Server) searchByAuthor(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Author     string `json:"author"`
		MaxResults int    `json:"max_results"`
		DateRange  string `json:"date_range"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	result, err := s.client.SearchByAuthor(ctx, args.Author, args.MaxResults, pubmed.DateRange(args.DateRange))
	if err != nil {
		return nil, err
	}
	return resultPayload(result), nil
}

func (s *Server) findRelatedArticles(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		PMID       string `json:"pmid"`
		MaxResults int    `json:"max_results"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	result, err := s.client.FindRelatedArticles(ctx, args.PMID, args.MaxResults)
	if err != nil {
		return nil, err
	}
	return resultPayload(result), nil
}

func (s *Server) compareArticles(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		PMIDs            []string `json:"pmids"`
		ComparisonFields []string `json:"comparison_fields"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.PMIDs) < 2 || len(args.PMIDs) > 5 {
		return nil, fmt.Errorf("provide 2-5 PMIDs for comparison")
	}
	if len(args.ComparisonFields) == 0 {
		args.ComparisonFields = []string{"mesh_terms", "abstracts"}
	}

	articles, err := s.client.GetArticleDetails(ctx, args.PMIDs)
	if err != nil {
		return nil, err
	}
	if len(articles) < 2 {
		return nil, fmt.Errorf("not enough valid articles found for comparison")
	}

	return map[string]any{
		"articles":  articles,
		"formatted": format.Comparison(articles, args.ComparisonFields),
	}, nil
}

func (s *Server) getJournalMetrics(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Journal               string `json:"journal"`
		IncludeRecentArticles *bool  `json:"include_recent_articles"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Journal == "" {
		return nil, fmt.Errorf("journal name is required")
	}

	includeRecent := true
	if args.IncludeRecentArticles != nil {
		includeRecent = *args.IncludeRecentArticles
	}
	return s.analyzer.JournalMetrics(ctx, args.Journal, includeRecent)
}

func (s *Server) searchMeshTerms(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		MeSHTerms  []string `json:"mesh_terms"`
		Query      string   `json:"query"`
		MaxResults int      `json:"max_results"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.MeSHTerms) == 0 {
		return nil, fmt.Errorf("at least one MeSH term is required")
	}

	result, err := s.client.SearchArticles(ctx, pubmed.SearchOptions{
		Query:      args.Query,
		MaxResults: args.MaxResults,
		MeSHTerms:  args.MeSHTerms,
	})
	if err != nil {
		return nil, err
	}
	return resultPayload(result), nil
}

func (s *Server) searchByJournal(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Journal    string `json:"journal"`
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
		DateRange  string `json:"date_range"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Journal == "" {
		return nil, fmt.Errorf("journal name is required")
	}

	result, err := s.client.SearchArticles(ctx, pubmed.SearchOptions{
		Query:      args.Query,
		MaxResults: args.MaxResults,
		Journals:   []string{args.Journal},
		DateRange:  pubmed.DateRange(args.DateRange),
	})
	if err != nil {
		return nil, err
	}
	return resultPayload(result), nil
}

func (s *Server) analyzeResearchTrends(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Topic     string `json:"topic"`
		StartYear int    `json:"start_year"`
		EndYear   int    `json:"end_year"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	// Default to the last five full years.
	if args.EndYear == 0 {
		args.EndYear = time.Now().Year()
	}
	if args.StartYear == 0 {
		args.StartYear = args.EndYear - 4
	}

	return s.analyzer.AnalyzeTrends(ctx, args.Topic, args.StartYear, args.EndYear)
}

func (s *Server) getTrendingTopics(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Area      string `json:"area"`
		MaxTopics int    `json:"max_topics"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	topics, err := s.analyzer.TrendingTopics(ctx, args.Area, args.MaxTopics)
	if err != nil {
		return nil, err
	}
	return map[string]any{"area": args.Area, "topics": topics}, nil
}

func (s *Server) getCacheStats() (any, error) {
	return s.client.CacheStats(), nil
}

func (s *Server) clearCache() (any, error) {
	if err := s.client.ClearCache(); err != nil {
		return nil, err
	}
	return map[string]any{"cleared": true}, nil
}
