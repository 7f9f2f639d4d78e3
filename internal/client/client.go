// Package client provides a Go client for the marketstats HTTP API.
//
// Failed requests are returned as *APIError carrying the server's failure
// kind, so callers can branch with errors.As or Kind.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/stats"
)

// =============================================================================
// Errors
// =============================================================================

// ErrClientClosed is returned for requests issued after Close.
var ErrClientClosed = errors.New("client is closed")

// APIError is a failure reported by the server.
type APIError struct {
	Status  int
	Kind    errors.Kind
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// KindOf returns the failure kind of err, KindFault for transport errors
// and KindNone for nil.
func KindOf(err error) errors.Kind {
	if err == nil {
		return errors.KindNone
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return errors.KindFault
}

func parseKind(s string) errors.Kind {
	for k := errors.KindNone; k <= errors.KindFault; k++ {
		if k.String() == s {
			return k
		}
	}
	return errors.KindFault
}

// =============================================================================
// Types
// =============================================================================

// Country is an allow-listed country.
type Country struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Market is a trading venue.
type Market struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	Country        *Country  `json:"country,omitempty"`
	ParticipantIDs []int64   `json:"participant_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Participant is a registered market participant.
type Participant struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Identification     string    `json:"identification"`
	IdentificationType string    `json:"identification_type"`
	Description        string    `json:"description"`
	MarketIDs          []int64   `json:"market_ids"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewMarket is the body of a market creation.
type NewMarket struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

// NewParticipant is the body of a participant creation.
type NewParticipant struct {
	Name               string  `json:"name"`
	Identification     string  `json:"identification"`
	IdentificationType string  `json:"identification_type"`
	Description        string  `json:"description,omitempty"`
	MarketIDs          []int64 `json:"market_ids,omitempty"`
}

// =============================================================================
// Client
// =============================================================================

// Config holds client configuration.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string

	TLSSkipVerify  bool
	RequestTimeout time.Duration

	// HTTPClient overrides the transport. Timeout settings above are
	// ignored when it is set.
	HTTPClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		RequestTimeout: 30 * time.Second,
	}
}

// Client talks to a marketstats server. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	closed chan struct{}
}

// New creates a client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLSSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		hc = &http.Client{Transport: transport, Timeout: cfg.RequestTimeout}
	}

	return &Client{base: base, http: hc, closed: make(chan struct{})}, nil
}

// Close releases idle connections. Later requests fail with ErrClientClosed.
func (c *Client) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
		c.http.CloseIdleConnections()
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Kind: parseKind(eb.Kind), Message: eb.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var v T
	err := c.do(ctx, http.MethodGet, path, nil, &v)
	return v, err
}

// =============================================================================
// Operations
// =============================================================================

// Health checks the server and its store.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Stats returns the per-country market breakdown.
func (c *Client) Stats(ctx context.Context) ([]stats.CountryStats, error) {
	return get[[]stats.CountryStats](ctx, c, "/stats")
}

// CacheMetrics returns the server's aggregate cache counters.
func (c *Client) CacheMetrics(ctx context.Context) (stats.Metrics, error) {
	return get[stats.Metrics](ctx, c, "/stats/cache")
}

// ListCountries returns all countries.
func (c *Client) ListCountries(ctx context.Context) ([]Country, error) {
	return get[[]Country](ctx, c, "/countries")
}

// CreateCountry registers an allow-listed country.
func (c *Client) CreateCountry(ctx context.Context, name string) (*Country, error) {
	var out Country
	if err := c.do(ctx, http.MethodPost, "/countries", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCountry removes a country that owns no markets.
func (c *Client) DeleteCountry(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/countries/%d", id), nil, nil)
}

// ListMarkets returns all markets.
func (c *Client) ListMarkets(ctx context.Context) ([]Market, error) {
	return get[[]Market](ctx, c, "/markets")
}

// GetMarket returns a market by id.
func (c *Client) GetMarket(ctx context.Context, id int64) (*Market, error) {
	m, err := get[Market](ctx, c, fmt.Sprintf("/markets/%d", id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMarket registers a market.
func (c *Client) CreateMarket(ctx context.Context, in NewMarket) (*Market, error) {
	var out Market
	if err := c.do(ctx, http.MethodPost, "/markets", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMarket replaces a market's description.
func (c *Client) UpdateMarket(ctx context.Context, id int64, description string) (*Market, error) {
	var out Market
	body := map[string]string{"description": description}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/markets/%d", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMarket removes a market and its memberships.
func (c *Client) DeleteMarket(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/markets/%d", id), nil, nil)
}

// ListParticipants returns all participants.
func (c *Client) ListParticipants(ctx context.Context) ([]Participant, error) {
	return get[[]Participant](ctx, c, "/participants")
}

// ListParticipantsByMarket returns the members of a market.
func (c *Client) ListParticipantsByMarket(ctx context.Context, code string) ([]Participant, error) {
	return get[[]Participant](ctx, c, "/participants/market/"+url.PathEscape(code))
}

// GetParticipant returns a participant by id.
func (c *Client) GetParticipant(ctx context.Context, id int64) (*Participant, error) {
	p, err := get[Participant](ctx, c, fmt.Sprintf("/participants/%d", id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateParticipant registers a participant.
func (c *Client) CreateParticipant(ctx context.Context, in NewParticipant) (*Participant, error) {
	var out Participant
	if err := c.do(ctx, http.MethodPost, "/participants", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteParticipant removes a participant and its memberships.
func (c *Client) DeleteParticipant(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/participants/%d", id), nil, nil)
}

// AddMembership adds a participant to the market with code.
func (c *Client) AddMembership(ctx context.Context, participantID int64, code string) error {
	return c.do(ctx, http.MethodPut, membershipPath(participantID, code), nil, nil)
}

// RemoveMembership removes a participant from the market with code.
func (c *Client) RemoveMembership(ctx context.Context, participantID int64, code string) error {
	return c.do(ctx, http.MethodDelete, membershipPath(participantID, code), nil, nil)
}

func membershipPath(participantID int64, code string) string {
	return fmt.Sprintf("/participants/%d/market/%s", participantID, url.PathEscape(code))
}
