package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/types"
)

// Defaults for Dataverse-style OData endpoints.
const (
	DefaultRecordsField  = "value"
	DefaultNextLinkField = "@odata.nextLink"
	DefaultTimeout       = 60 * time.Second
)

// maxErrorBody bounds the response body quoted in an HTTPError.
const maxErrorBody = 1024

// HTTPError is returned for responses with status >= 400.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string // first KiB of the response body
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// ErrTooManyPages is wrapped when pagination exceeds MaxPages.
var ErrTooManyPages = errors.New("too many pages")

// ODataSource pages through an OData entity set by following next links.
// Each page is requested once; failures are not retried.
type ODataSource struct {
	BaseURL       string
	Entity        string
	Token         string
	PageSize      int
	MaxPages      int
	RecordsField  string
	NextLinkField string

	client *http.Client
	logger *logger.Logger
}

// NewODataSource creates an OData source for entity.
func NewODataSource(cfg config.SourceConfig, entity string, log *logger.Logger) (*ODataSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("odata source requires a url")
	}
	if entity == "" {
		return nil, fmt.Errorf("odata source requires an entity")
	}
	if log == nil {
		log = logger.NewNop()
	}

	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	s := &ODataSource{
		BaseURL:       strings.TrimRight(cfg.URL, "/"),
		Entity:        strings.TrimLeft(entity, "/"),
		Token:         cfg.Token,
		PageSize:      cfg.PageSize,
		MaxPages:      cfg.MaxPages,
		RecordsField:  cfg.RecordsField,
		NextLinkField: cfg.NextLinkField,
		client:        &http.Client{Timeout: timeout},
		logger:        log,
	}
	if s.RecordsField == "" {
		s.RecordsField = DefaultRecordsField
	}
	if s.NextLinkField == "" {
		s.NextLinkField = DefaultNextLinkField
	}
	return s, nil
}

// WithHTTPClient replaces the HTTP client.
func (s *ODataSource) WithHTTPClient(c *http.Client) *ODataSource {
	s.client = c
	return s
}

func (s *ODataSource) Name() string {
	return "odata:" + s.Entity
}

// EntityURL is the first page URL.
func (s *ODataSource) EntityURL() string {
	return s.BaseURL + "/" + s.Entity
}

// Fetch requests every page and returns all records in page order.
func (s *ODataSource) Fetch(ctx context.Context) ([]record.Mapping, *types.FetchStats, error) {
	start := time.Now()
	stats := &types.FetchStats{}
	var records []record.Mapping

	next := s.EntityURL()
	for next != "" {
		if s.MaxPages > 0 && stats.Pages >= s.MaxPages {
			return nil, stats, fmt.Errorf("%w: %s exceeded max_pages %d", ErrTooManyPages, s.Name(), s.MaxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		page, n, link, err := s.fetchPage(ctx, next)
		if err != nil {
			return nil, stats, fmt.Errorf("page %d: %w", stats.Pages+1, err)
		}
		stats.Add(len(page), n)
		records = append(records, page...)

		s.logger.Debugw("Fetched page", "source", s.Name(), "page", stats.Pages, "records", len(page), "bytes", n)

		if link != "" {
			if link, err = resolveLink(next, link); err != nil {
				return nil, stats, fmt.Errorf("page %d: %w", stats.Pages, err)
			}
		}
		next = link
	}

	stats.Duration = time.Since(start)
	return records, stats, nil
}

func (s *ODataSource) fetchPage(ctx context.Context, pageURL string) ([]record.Mapping, int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.PageSize > 0 {
		req.Header.Set("Prefer", "odata.maxpagesize="+strconv.Itoa(s.PageSize))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, 0, "", &HTTPError{StatusCode: resp.StatusCode, URL: pageURL, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("read body: %w", err)
	}

	doc, err := record.DecodeMapping(bytes.NewReader(data))
	if err != nil {
		return nil, 0, "", fmt.Errorf("parse json: %w", err)
	}

	raw, ok := doc.Get(s.RecordsField)
	if !ok {
		return nil, 0, "", fmt.Errorf("response has no %q field", s.RecordsField)
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, 0, "", fmt.Errorf("field %q is %s, not an array", s.RecordsField, record.KindOf(raw))
	}
	page, err := record.ToRecords(seq)
	if err != nil {
		return nil, 0, "", fmt.Errorf("field %q: %w", s.RecordsField, err)
	}

	var link string
	if v, ok := doc.Get(s.NextLinkField); ok && v != nil {
		if link, ok = v.(string); !ok {
			return nil, 0, "", fmt.Errorf("field %q is %s, not a string", s.NextLinkField, record.KindOf(v))
		}
	}

	return page, int64(len(data)), link, nil
}

// resolveLink resolves a next link against the page that returned it.
func resolveLink(current, link string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", link, err)
	}
	return base.ResolveReference(ref).String(), nil
}
