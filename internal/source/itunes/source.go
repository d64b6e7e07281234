package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"app_radar/internal/domain"
)

const (
	SourceID   = "itunes"
	SourceName = "iTunes Search API"

	DefaultBaseURL = "https://itunes.apple.com/search"

	// A limit=1 search answers in a few KB.
	maxBodyBytes = 4 << 20
)

// Config holds iTunes source configuration.
type Config struct {
	BaseURL string
	Country string
	Limit   int
	Timeout time.Duration
}

// Source looks apps up by name through the iTunes Search API. The first
// result is taken as authoritative; the provider's own ranking decides.
type Source struct {
	httpClient *http.Client
	baseURL    string
	country    string
	limit      int
	maxBody    int64
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a new iTunes source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		country: cfg.Country,
		limit:   cfg.Limit,
		maxBody: maxBodyBytes,
		logger:  logger.With("source", SourceID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// Fetch searches for term and returns the top match.
func (s *Source) Fetch(ctx context.Context, term string) (*domain.FetchResult, error) {
	body, err := s.doRequest(ctx, term)
	if err != nil {
		return nil, err
	}

	res, err := s.parse(term, body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched app",
		"term", term,
		"identifier", res.AppIdentifier,
		"name", res.Record.Name,
	)

	return res, nil
}

func (s *Source) doRequest(ctx context.Context, term string) ([]byte, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("entity", "software")
	params.Set("limit", strconv.Itoa(s.limit))
	params.Set("country", s.country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "AppRadar/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status: %d", domain.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", domain.ErrParse, s.maxBody)
	}

	return body, nil
}

func (s *Source) parse(term string, body []byte) (*domain.FetchResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid json", domain.ErrParse)
	}

	root := gjson.ParseBytes(body)
	results := root.Get("results")
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: missing results array", domain.ErrParse)
	}

	first := results.Get("0")
	if !first.Exists() {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, term)
	}
	if !first.IsObject() {
		return nil, fmt.Errorf("%w: result is not an object", domain.ErrParse)
	}

	var c Content
	if err := json.Unmarshal([]byte(first.Raw), &c); err != nil {
		return nil, fmt.Errorf("%w: decode result: %w", domain.ErrParse, err)
	}
	if c.TrackID == 0 || c.TrackName == "" {
		return nil, fmt.Errorf("%w: result lacks trackId or trackName", domain.ErrParse)
	}

	data, _ := first.Value().(map[string]any)

	return &domain.FetchResult{
		Source:        SourceID,
		AppIdentifier: strconv.FormatInt(c.TrackID, 10),
		Timestamp:     s.now(),
		Record:        transform(c),
		Data:          data,
		Metadata: map[string]any{
			"search_term":  term,
			"result_count": root.Get("resultCount").Int(),
		},
	}, nil
}

func transform(c Content) domain.Record {
	currency := c.Currency
	if currency == "" {
		currency = "USD"
	}
	return domain.Record{
		Name:                      c.TrackName,
		Platform:                  domain.PlatformIOS,
		Developer:                 c.developer(),
		Category:                  c.PrimaryGenreName,
		Genres:                    c.Genres,
		URL:                       c.TrackViewURL,
		Rating:                    c.AverageUserRating,
		RatingCount:               c.UserRatingCount,
		Version:                   c.Version,
		Price:                     c.Price,
		Currency:                  currency,
		ReleaseDate:               c.ReleaseDate,
		CurrentVersionReleaseDate: c.CurrentVersionReleaseDate,
	}
}
