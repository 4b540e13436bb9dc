// Package booklookup queries the external volumes API that supplies book
// metadata (authors, publisher, publication date) by ISBN.
package booklookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when upstream has no volume for the requested ISBN.
var ErrNotFound = errors.New("booklookup: not found")

// MissingField is stored when upstream omits a metadata field.
const MissingField = "missing"

// Result contains the metadata used to enrich a book record. Fields default
// to MissingField rather than empty strings.
type Result struct {
	Authors       string
	Publisher     string
	PublishedDate string
}

// Client defines the contract for querying the upstream lookup API.
type Client interface {
	Fetch(ctx context.Context, isbn string) (*Result, error)
}

// HTTPClient implements Client over HTTP with client-side rate limiting so a
// burst of book creations cannot exhaust the upstream quota.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed lookup client. rps bounds
// outgoing requests per second; apiKey may be empty for unauthenticated
// endpoints.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, rps int, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if rps <= 0 {
		rps = 1
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse lookup url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Fetch retrieves book metadata by ISBN.
func (c *HTTPClient) Fetch(ctx context.Context, isbn string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rel := &url.URL{Path: "/volumes"}
	q := rel.Query()
	q.Set("q", "isbn:"+isbn)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode lookup response: %w", err)
		}
		if len(payload.Items) == 0 {
			return nil, ErrNotFound
		}
		return convertToResult(payload.Items[0].VolumeInfo), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Printf("booklookup: unexpected status %d for isbn %q", resp.StatusCode, isbn)
		return nil, fmt.Errorf("booklookup: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	TotalItems int        `json:"totalItems"`
	Items      []itemNode `json:"items"`
}

type itemNode struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     *string  `json:"publisher"`
	PublishedDate *string  `json:"publishedDate"`
}

func convertToResult(info volumeInfo) *Result {
	authors := MissingField
	if joined := strings.Join(nonEmpty(info.Authors), " and "); joined != "" {
		authors = joined
	}
	return &Result{
		Authors:       authors,
		Publisher:     orMissing(info.Publisher),
		PublishedDate: orMissing(info.PublishedDate),
	}
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func orMissing(ptr *string) string {
	if ptr == nil || strings.TrimSpace(*ptr) == "" {
		return MissingField
	}
	return *ptr
}
