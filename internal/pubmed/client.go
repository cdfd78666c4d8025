package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marco/pubmedVault/internal/cache"
	"github.com/marco/pubmedVault/internal/ratelimit"
	"github.com/marco/pubmedVault/internal/retry"
)

const (
	eutilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	toolName      = "pubmedVault"

	defaultMaxResults = 20
	maxAllowedResults = 100
	// fetchBatchSize bounds a single efetch request.
	fetchBatchSize = 200
)

// Client talks to the NCBI E-utilities API. Every outbound request passes
// through the rate limiter; responses are cached when a cache is attached.
type Client struct {
	apiKey         string
	email          string
	baseURL        string
	httpClient     *http.Client
	limiter        *ratelimit.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	cache          cache.Cache
	logger         *slog.Logger
}

// ClientConfig holds configuration for the PubMed client
type ClientConfig struct {
	APIKey           string
	Email            string
	BaseURL          string
	RateLimit        float64
	MaxAttempts      int
	InitialBackoffMs int
	Cache            cache.Cache
	Logger           *slog.Logger
	HTTPClient       *http.Client
}

// NewClient creates a new PubMed API client. Without an API key NCBI allows
// 3 requests per second; with one the default rises to 10.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = eutilsBaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3.0
		if cfg.APIKey != "" {
			cfg.RateLimit = 10.0
		}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoffMs <= 0 {
		cfg.InitialBackoffMs = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:         cfg.APIKey,
		email:          cfg.Email,
		baseURL:        cfg.BaseURL,
		httpClient:     cfg.HTTPClient,
		limiter:        ratelimit.New(cfg.RateLimit),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
		cache:          cfg.Cache,
		logger:         cfg.Logger,
	}
}

// SetRateLimit adjusts the request rate at runtime.
func (c *Client) SetRateLimit(rate float64) {
	if rate > 0 {
		c.limiter.SetRate(rate)
	}
}

// CacheStats reports cache statistics, or zero stats when no cache is attached.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// ClearCache drops all cached entries. Counters survive.
func (c *Client) ClearCache() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear()
}

// buildParams returns the base query parameters every E-utilities request
// carries. The API key and email are added only when configured.
func (c *Client) buildParams() url.Values {
	params := url.Values{}
	params.Set("tool", toolName)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	return params
}

// makeRequest acquires a rate-limit token, then issues a GET against the
// given E-utilities endpoint with retry on transient failures. Non-2xx
// responses come back as a StatusError.
func (c *Client) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	var body []byte
	err := retry.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		body = data
		return nil
	}, c.maxAttempts, c.initialBackoff)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getFromCache retrieves data from cache if a cache is attached.
func (c *Client) getFromCache(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, found := c.cache.Get(key)
	c.logger.Debug("cache lookup", "key", key, "hit", found)
	return data, found
}

// setToCache stores data in cache. Failures are logged, never propagated.
func (c *Client) setToCache(key string, data []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(key, data); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// search runs an esearch query and returns the matching IDs plus the total
// hit count.
func (c *Client) search(ctx context.Context, query string, maxResults int, sort SortOrder) ([]string, int, error) {
	params := c.buildParams()
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	if sort != "" && sort != SortRelevance {
		params.Set("sort", string(sort))
	}

	body, err := c.makeRequest(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	total, _ := strconv.Atoi(resp.Result.Count)
	return resp.Result.IDList, total, nil
}

// fetchArticles retrieves full records for the given PMIDs via efetch and
// parses them into canonical articles.
func (c *Client) fetchArticles(ctx context.Context, pmids []string) ([]Article, error) {
	articles := make([]Article, 0, len(pmids))
	for start := 0; start < len(pmids); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(pmids) {
			end = len(pmids)
		}
		batch := pmids[start:end]

		params := c.buildParams()
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(batch, ","))
		params.Set("retmode", "xml")

		body, err := c.makeRequest(ctx, "efetch.fcgi", params)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
		articles = append(articles, ParseArticles(body, c.logger)...)
	}
	return articles, nil
}

func clampMaxResults(n int) int {
	if n <= 0 {
		return defaultMaxResults
	}
	if n > maxAllowedResults {
		return maxAllowedResults
	}
	return n
}

// SearchArticles searches PubMed with the given query and filters, fetches
// full records for the matching IDs and returns them in a result envelope.
func (c *Client) SearchArticles(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	if opts.Query == "" && !opts.hasFieldFilters() {
		return nil, ErrEmptyQuery
	}
	opts.MaxResults = clampMaxResults(opts.MaxResults)

	start := time.Now()
	query := buildSearchQuery(opts)

	cacheKey := cache.Key("search", map[string]any{
		"query":       query,
		"max_results": opts.MaxResults,
		"sort":        string(opts.Sort),
	})
	if data, found := c.getFromCache(cacheKey); found {
		var result SearchResult
		if err := json.Unmarshal(data, &result); err == nil {
			result.SearchTime = time.Since(start).Seconds()
			return &result, nil
		}
	}

	ids, total, err := c.search(ctx, query, opts.MaxResults, opts.Sort)
	if err != nil {
		return nil, err
	}

	articles := []Article{}
	if len(ids) > 0 {
		articles, err = c.fetchArticles(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	result := &SearchResult{
		Query:            opts.Query,
		QueryTranslation: query,
		TotalResults:     total,
		ReturnedResults:  len(articles),
		Articles:         articles,
		SearchTime:       time.Since(start).Seconds(),
	}

	if data, err := json.Marshal(result); err == nil {
		c.setToCache(cacheKey, data)
	}
	return result, nil
}

// GetArticleDetails fetches full records for the given PMIDs. Invalid
// identifiers are dropped with a warning; when none remain the result is
// empty and upstream is never contacted.
func (c *Client) GetArticleDetails(ctx context.Context, pmids []string) ([]Article, error) {
	valid, invalid := filterPMIDs(pmids)
	if len(invalid) > 0 {
		c.logger.Warn("dropping invalid PMIDs", "count", len(invalid), "pmids", invalid)
	}
	if len(valid) == 0 {
		return []Article{}, nil
	}

	cacheKey := cache.Key("details", map[string]any{"pmids": valid})
	if data, found := c.getFromCache(cacheKey); found {
		var articles []Article
		if err := json.Unmarshal(data, &articles); err == nil {
			return articles, nil
		}
	}

	articles, err := c.fetchArticles(ctx, valid)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(articles); err == nil {
		c.setToCache(cacheKey, data)
	}
	return articles, nil
}

// CountResults returns the total number of articles matching a query
// without fetching any records.
func (c *Client) CountResults(ctx context.Context, query string) (int, error) {
	if query == "" {
		return 0, ErrEmptyQuery
	}

	cacheKey := cache.Key("count", map[string]any{"query": query})
	if data, found := c.getFromCache(cacheKey); found {
		if n, err := strconv.Atoi(string(data)); err == nil {
			return n, nil
		}
	}

	_, total, err := c.search(ctx, query, 0, SortRelevance)
	if err != nil {
		return 0, err
	}

	c.setToCache(cacheKey, []byte(strconv.Itoa(total)))
	return total, nil
}

// SearchByAuthor searches for articles by author name, optionally narrowed
// to a publication date window.
func (c *Client) SearchByAuthor(ctx context.Context, author string, maxResults int, dateRange DateRange) (*SearchResult, error) {
	if author == "" {
		return nil, fmt.Errorf("%w: author name required", ErrEmptyQuery)
	}
	return c.SearchArticles(ctx, SearchOptions{
		Query:      fmt.Sprintf("%s[Author]", author),
		MaxResults: maxResults,
		Sort:       SortPublicationDate,
		DateRange:  dateRange,
	})
}

// FindRelatedArticles finds articles related to the given PMID using the
// elink endpoint, then fetches full records for the related IDs.
func (c *Client) FindRelatedArticles(ctx context.Context, pmid string, maxResults int) (*SearchResult, error) {
	if !ValidPMID(pmid) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPMID, pmid)
	}
	maxResults = clampMaxResults(maxResults)

	start := time.Now()
	cacheKey := cache.Key("related", map[string]any{
		"pmid":        pmid,
		"max_results": maxResults,
	})
	if data, found := c.getFromCache(cacheKey); found {
		var result SearchResult
		if err := json.Unmarshal(data, &result); err == nil {
			result.SearchTime = time.Since(start).Seconds()
			return &result, nil
		}
	}

	params := c.buildParams()
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("cmd", "neighbor")
	params.Set("retmode", "json")

	body, err := c.makeRequest(ctx, "elink.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("related lookup failed: %w", err)
	}

	var resp elinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode link response: %w", err)
	}

	related := relatedIDs(resp, pmid, maxResults)

	articles := []Article{}
	if len(related) > 0 {
		articles, err = c.fetchArticles(ctx, related)
		if err != nil {
			return nil, err
		}
	}

	result := &SearchResult{
		Query:           fmt.Sprintf("related:%s", pmid),
		TotalResults:    len(related),
		ReturnedResults: len(articles),
		Articles:        articles,
		SearchTime:      time.Since(start).Seconds(),
	}

	if data, err := json.Marshal(result); err == nil {
		c.setToCache(cacheKey, data)
	}
	return result, nil
}

// relatedIDs extracts the pubmed_pubmed neighbor set, dropping the source
// PMID itself and capping the list at max.
func relatedIDs(resp elinkResponse, source string, max int) []string {
	var out []string
	for _, set := range resp.LinkSets {
		for _, db := range set.LinkSetDBs {
			if db.LinkName != "pubmed_pubmed" {
				continue
			}
			for _, id := range db.Links {
				if id == source {
					continue
				}
				out = append(out, id)
				if len(out) >= max {
					return out
				}
			}
		}
	}
	return out
}
