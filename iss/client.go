package iss

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
	"github.com/moexapi/moexapi-go/internal/ctxtime"
)

// ClientOpts contains options for the ISS client.
type ClientOpts struct {
	// BaseURL defaults to MOEX_ISS_URL or https://iss.moex.com.
	BaseURL string
	Timeout time.Duration
	// RetryLimit is the number of retries after a transport error, a 429 or
	// a 5xx response.
	RetryLimit int
	RetryDelay time.Duration
	// CacheSize is the number of responses kept in memory. Negative disables
	// the memory cache.
	CacheSize int
	// CacheDir enables the on-disk cache, entries expire daily. It defaults
	// to MOEX_ISS_CACHE_DIR.
	CacheDir string
	Logger   history.Logger
}

// Client reads the MOEX Informational & Statistical Server.
type Client struct {
	opts ClientOpts
	mem  *memCache
	disk *diskCache

	do func(c *Client, req *http.Request) (*http.Response, error)
}

// NewClient creates a new ISS client using the given opts.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		if s := os.Getenv("MOEX_ISS_URL"); s != "" {
			opts.BaseURL = s
		} else {
			opts.BaseURL = "https://iss.moex.com"
		}
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.CacheDir == "" {
		opts.CacheDir = os.Getenv("MOEX_ISS_CACHE_DIR")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryLimit == 0 {
		opts.RetryLimit = 10
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 10 * time.Second
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = history.ErrorOnlyLogger()
	}
	return &Client{
		opts: opts,
		mem:  newMemCache(opts.CacheSize),
		disk: newDiskCache(opts.CacheDir, func() civil.Date { return civil.DateOf(time.Now()) }),

		do: defaultDo,
	}
}

// DefaultClient uses options from environment variables, or the defaults.
var DefaultClient = NewClient(ClientOpts{})

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func defaultDo(c *Client, req *http.Request) (*http.Response, error) {
	client := &http.Client{
		Timeout: c.opts.Timeout,
	}
	var resp *http.Response
	err := ctxtime.Retry(req.Context(), c.opts.RetryLimit, c.opts.RetryDelay, func(attempt int) (bool, error) {
		var err error
		resp, err = client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return false, err
			}
			c.opts.Logger.Warnf("iss: GET %s failed (attempt %d): %v", req.URL.Path, attempt+1, err)
			return true, err
		}
		if retryable(resp.StatusCode) {
			err = verify(resp)
			c.opts.Logger.Warnf("iss: GET %s failed (attempt %d): %v", req.URL.Path, attempt+1, err)
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	if err = verify(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) url(path string, q url.Values) (string, error) {
	u, err := url.Parse(c.opts.BaseURL + "/iss" + path)
	if err != nil {
		return "", err
	}
	v := url.Values{}
	for k, vs := range q {
		v[k] = vs
	}
	v.Set("iss.meta", "off")
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// get returns the body of path, from the caches when possible.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u, err := c.url(path, q)
	if err != nil {
		return nil, err
	}
	if body, ok := c.mem.get(u); ok {
		return body, nil
	}
	if body, ok := c.disk.get(u); ok {
		c.mem.put(u, body)
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := c.do(c, req)
	if err != nil {
		return nil, fmt.Errorf("iss: GET %s: %w", path, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("iss: GET %s: %w", path, err)
	}

	c.mem.put(u, body)
	if err := c.disk.put(u, body); err != nil {
		c.opts.Logger.Warnf("iss: cache write for %s (ignored): %v", path, err)
	}
	return body, nil
}

// getResponse fetches and decodes the document at path.
func (c *Client) getResponse(ctx context.Context, path string, q url.Values) (Response, error) {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	return decodeResponse(body)
}

// getTable fetches path and returns its block called name.
func (c *Client) getTable(ctx context.Context, path string, q url.Values, name string) (*Table, error) {
	r, err := c.getResponse(ctx, path, q)
	if err != nil {
		return nil, err
	}
	return r.Table(name)
}

// getRows returns every row of the block called name, following the
// "<name>.cursor" block the exchange adds to paginated documents.
func (c *Client) getRows(ctx context.Context, path string, q url.Values, name string) ([]Row, error) {
	var rows []Row
	start := 0
	for {
		v := url.Values{}
		for k, vs := range q {
			v[k] = vs
		}
		if start > 0 {
			v.Set("start", strconv.Itoa(start))
		}
		r, err := c.getResponse(ctx, path, v)
		if err != nil {
			return nil, err
		}
		t, err := r.Table(name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, t.Rows()...)

		cursor, ok := r[name+".cursor"]
		if !ok || len(cursor.Data) == 0 {
			return rows, nil
		}
		cur := cursor.Rows()[0]
		index, total, size := cur.Int("INDEX").ValueOrZero(), cur.Int("TOTAL").ValueOrZero(), cur.Int("PAGESIZE").ValueOrZero()
		if size <= 0 || index+size >= total || len(t.Data) == 0 {
			return rows, nil
		}
		start = int(index + size)
	}
}

// APIError is returned for a non-2xx response of the exchange.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return "HTTP " + e.Status
	}
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.Body)
}

func verify(resp *http.Response) error {
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return err
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	var (
		reader io.ReadCloser
		err    error
	)
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
	default:
		reader = resp.Body
	}
	return io.ReadAll(reader)
}
