// Package sevdesk provides access to the sevDesk contact API.
package sevdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/contact-sync/internal/resilience"
)

const (
	defaultBaseURL           = "https://my.sevdesk.de/api/v1"
	defaultTimeout           = 20 * time.Second
	defaultContactCategoryID = "3"
	defaultEmailKeyID        = "2"
)

// Client defines the sevDesk operations used by the contact sync.
type Client interface {
	ListContacts(ctx context.Context, limit, offset int) ([]Record, error)
	// GetContactByID returns nil when sevDesk answers without an object.
	GetContactByID(ctx context.Context, id string) (Record, error)
	ListContactAddresses(ctx context.Context, limit, offset int) ([]Record, error)
	ListCommunicationWays(ctx context.Context, limit, offset int) ([]Record, error)
	CreateContactPerson(ctx context.Context, firstName, lastName string) (string, error)
	CreateCommunicationEmail(ctx context.Context, contactID, email string, main bool) error
	// Ping fetches a single contact and returns how many objects came back.
	Ping(ctx context.Context) (int, error)
}

// AuthMode selects how the API token is sent.
type AuthMode string

const (
	// AuthHeader sends the token in the Authorization header.
	AuthHeader AuthMode = "header"
	// AuthQuery sends the token as the "token" query parameter.
	AuthQuery AuthMode = "query"
)

// Config holds the credentials and endpoint settings for a client.
type Config struct {
	APIKey            string
	BaseURL           string
	AuthMode          AuthMode
	Timeout           time.Duration
	ContactCategoryID string
	EmailKeyID        string
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return eris.New("sevdesk: api key is missing (CONTACTSYNC_SEVDESK_API_KEY)")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return eris.Wrapf(err, "sevdesk: invalid base url %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	switch c.AuthMode {
	case "":
		c.AuthMode = AuthHeader
	case AuthHeader, AuthQuery:
	default:
		return eris.Errorf("sevdesk: unsupported auth mode %q", c.AuthMode)
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ContactCategoryID == "" {
		c.ContactCategoryID = defaultContactCategoryID
	}
	if c.EmailKeyID == "" {
		c.EmailKeyID = defaultEmailKeyID
	}
	return nil
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry sets the retry policy for read requests. Creates are never
// retried so a timeout cannot produce a second remote contact.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient validates cfg and creates a sevDesk API client.
func NewClient(cfg Config, opts ...Option) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &httpClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.NoRetry(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *httpClient) ListContacts(ctx context.Context, limit, offset int) ([]Record, error) {
	return c.list(ctx, "/Contact", limit, offset)
}

func (c *httpClient) GetContactByID(ctx context.Context, id string) (Record, error) {
	objects, err := c.get(ctx, "/Contact/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return first(objects), nil
}

func (c *httpClient) ListContactAddresses(ctx context.Context, limit, offset int) ([]Record, error) {
	return c.list(ctx, "/ContactAddress", limit, offset)
}

func (c *httpClient) ListCommunicationWays(ctx context.Context, limit, offset int) ([]Record, error) {
	return c.list(ctx, "/CommunicationWay", limit, offset)
}

func (c *httpClient) CreateContactPerson(ctx context.Context, firstName, lastName string) (string, error) {
	form := url.Values{}
	form.Set("category[id]", c.cfg.ContactCategoryID)
	form.Set("category[objectName]", "Category")
	form.Set("surename", firstName)
	form.Set("familyname", lastName)

	objects, err := c.post(ctx, "/Contact", form)
	if err != nil {
		return "", err
	}

	id := first(objects).ID()
	if id == "" {
		return "", eris.New("sevdesk: no contact id returned after create")
	}
	return id, nil
}

func (c *httpClient) CreateCommunicationEmail(ctx context.Context, contactID, email string, main bool) error {
	form := url.Values{}
	form.Set("contact[id]", contactID)
	form.Set("contact[objectName]", "Contact")
	form.Set("type", "EMAIL")
	form.Set("value", email)
	form.Set("key[id]", c.cfg.EmailKeyID)
	form.Set("key[objectName]", "CommunicationWayKey")
	if main {
		form.Set("main", "1")
	} else {
		form.Set("main", "0")
	}

	_, err := c.post(ctx, "/CommunicationWay", form)
	return err
}

func (c *httpClient) Ping(ctx context.Context) (int, error) {
	objects, err := c.list(ctx, "/Contact", 1, 0)
	if err != nil {
		return 0, err
	}
	return len(objects), nil
}

func (c *httpClient) list(ctx context.Context, endpoint string, limit, offset int) ([]Record, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.get(ctx, endpoint, q)
}

func (c *httpClient) get(ctx context.Context, endpoint string, query url.Values) ([]Record, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("sevdesk", "GET "+endpoint)
	return resilience.Do(ctx, cfg, func(ctx context.Context) ([]Record, error) {
		return c.do(ctx, http.MethodGet, endpoint, query, nil)
	})
}

func (c *httpClient) post(ctx context.Context, endpoint string, form url.Values) ([]Record, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, form)
}

func (c *httpClient) do(ctx context.Context, method, endpoint string, query, form url.Values) ([]Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "sevdesk: rate limit")
		}
	}

	if query == nil {
		query = url.Values{}
	}
	if c.cfg.AuthMode == AuthQuery {
		query.Set("token", c.cfg.APIKey)
	}

	target := c.cfg.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, eris.Wrapf(err, "sevdesk: create request %s %s", method, endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cfg.AuthMode == AuthHeader {
		req.Header.Set("Authorization", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "sevdesk: %s %s", method, endpoint)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "sevdesk: read response %s %s", method, endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		err := eris.Errorf("sevdesk: request failed: %s %s: status %d: %s", method, endpoint, resp.StatusCode, msg)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	objects, err := decodeObjects(respBody)
	if err != nil {
		return nil, eris.Wrapf(err, "sevdesk: decode %s %s", method, endpoint)
	}
	return objects, nil
}

// decodeObjects unpacks the {"objects": ...} envelope. List endpoints return
// an array; create endpoints return a single object.
func decodeObjects(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var envelope struct {
		Objects json.RawMessage `json:"objects"`
	}
	if err := decode(data, &envelope); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(envelope.Objects)
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var items []any
		if err := decode(raw, &items); err != nil {
			return nil, err
		}
		records := make([]Record, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				records = append(records, Record(m))
			}
		}
		return records, nil
	case '{':
		var rec Record
		if err := decode(raw, &rec); err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	default:
		return nil, nil
	}
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func first(records []Record) Record {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil
	}
	return records[0]
}
