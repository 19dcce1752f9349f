package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/domain"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/validate"
)

var (
	// ErrRemoteFetchFailed covers transport errors, deadlines and non-2xx statuses.
	ErrRemoteFetchFailed = errors.New("remote fetch failed")
	// ErrMalformedResponse means the body matched neither accepted envelope.
	ErrMalformedResponse = errors.New("malformed remote response")
)

const maxBodyBytes = 16 << 20

// Client reads the commerce API. Every call runs under its own deadline.
type Client struct {
	base    *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithToken(token string) Option         { return func(c *Client) { c.token = token } }
func WithTimeout(d time.Duration) Option    { return func(c *Client) { c.timeout = d } }

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote api url %q", baseURL)
	}
	c := &Client{base: u, timeout: 15 * time.Second, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchCategories lists active categories.
func (c *Client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.get(ctx, "/categories", url.Values{"active": {"true"}})
	if err != nil {
		return nil, err
	}
	cats, err := decodeList[domain.Category](body)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if err := validate.Struct(cats[i]); err != nil {
			return nil, fmt.Errorf("%w: category %d: %v", ErrMalformedResponse, i, err)
		}
	}
	return cats, nil
}

// FetchProducts lists up to limit products of one category.
func (c *Client) FetchProducts(ctx context.Context, categoryID int64, limit int) ([]domain.Product, error) {
	q := url.Values{"categoryId": {strconv.FormatInt(categoryID, 10)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/products", q)
	if err != nil {
		return nil, err
	}
	products, err := decodeList[domain.Product](body)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if err := validate.Struct(products[i]); err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", ErrMalformedResponse, i, err)
		}
	}
	return products, nil
}

// FetchStock reads the live stock of one product. It is never cached.
func (c *Client) FetchStock(ctx context.Context, productID int64) (domain.StockLevel, error) {
	body, err := c.get(ctx, "/products/"+strconv.FormatInt(productID, 10)+"/stock", nil)
	if err != nil {
		return domain.StockLevel{}, err
	}
	lvl, err := decodeOne[domain.StockLevel](body)
	if err != nil {
		return domain.StockLevel{}, err
	}
	if lvl.ProductID == 0 {
		lvl.ProductID = productID
	}
	if err := validate.Struct(lvl); err != nil {
		return domain.StockLevel{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return lvl, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrRemoteFetchFailed, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrRemoteFetchFailed, path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRemoteFetchFailed, err)
	}
	return body, nil
}

// decodeList accepts either `[...]` or `{"data": [...]}`.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	case '{':
		var env struct {
			Data *[]T `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if env.Data == nil {
			return nil, fmt.Errorf("%w: object without data array", ErrMalformedResponse)
		}
		if *env.Data == nil {
			return []T{}, nil
		}
		return *env.Data, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedResponse, trimmed[0])
	}
}

// decodeOne accepts either a bare object or `{"data": {...}}`.
func decodeOne[T any](body []byte) (T, error) {
	var zero T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return zero, fmt.Errorf("%w: expected object", ErrMalformedResponse)
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	raw := trimmed
	if len(env.Data) > 0 && env.Data[0] == '{' {
		raw = env.Data
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
