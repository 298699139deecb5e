package iss

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moexapi/moexapi-go/history"
)

const splitsBody = `{"splits": {"columns": ["tradedate", "secid", "before", "after"], "data": [
	["2021-04-12", "PLZL", 1, 40],
	["2007-07-19", "SBER", 1, 1000],
	["2020-01-01", "BAD", 0, 10]
]}}`

func testClient(url string) *Client {
	return NewClient(ClientOpts{
		BaseURL:    url,
		RetryDelay: time.Millisecond,
		RetryLimit: 2,
		CacheSize:  -1,
		Logger:     history.NopLogger(),
	})
}

func TestDefaultDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/iss/statistics/engines/stock/splits.json", r.URL.Path)
		assert.Equal(t, "off", r.URL.Query().Get("iss.meta"))
		fmt.Fprint(w, splitsBody)
	}))
	defer server.Close()

	splits, err := testClient(server.URL).GetSplits(context.Background())
	require.NoError(t, err)
	require.Len(t, splits, 3)
	assert.Equal(t, "IRAO", splits[0].Secid)
	assert.Equal(t, history.Split{Date: civil.Date{Year: 2021, Month: 4, Day: 12}, Secid: "PLZL", Multiplier: 40}, splits[1])
	assert.Equal(t, 1000.0, splits[2].Multiplier)
}

func TestDefaultDo_EnvURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, splitsBody)
	}))
	defer server.Close()
	original := os.Getenv("MOEX_ISS_URL")
	defer func() { os.Setenv("MOEX_ISS_URL", original) }()
	require.NoError(t, os.Setenv("MOEX_ISS_URL", server.URL))

	client := NewClient(ClientOpts{})
	assert.Equal(t, server.URL, client.opts.BaseURL)
	_, err := client.GetSplits(context.Background())
	require.NoError(t, err)
}

func TestDefaultDo_Retry(t *testing.T) {
	var tries int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&tries, 1) {
		case 1:
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		case 2:
			http.Error(w, "bad gateway", http.StatusBadGateway)
		default:
			fmt.Fprint(w, splitsBody)
		}
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetSplits(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, tries)
}

func TestDefaultDo_GivesUp(t *testing.T) {
	var called int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GetSplits(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "500")
	assert.EqualValues(t, client.opts.RetryLimit+1, called) // +1 for the original request
}

func TestDefaultDo_NotFoundIsNotRetried(t *testing.T) {
	var called int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetSplits(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.EqualValues(t, 1, called)
}

func TestDefaultDo_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(ClientOpts{BaseURL: server.URL, RetryDelay: time.Hour, CacheSize: -1, Logger: history.NopLogger()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.GetSplits(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientMemoryCache(t *testing.T) {
	var called int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
		fmt.Fprint(w, splitsBody)
	}))
	defer server.Close()

	client := NewClient(ClientOpts{BaseURL: server.URL, Logger: history.NopLogger()})
	for i := 0; i < 3; i++ {
		_, err := client.GetSplits(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, called)
}

func TestClientDiskCache(t *testing.T) {
	var called int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
		fmt.Fprint(w, splitsBody)
	}))
	defer server.Close()

	dir := t.TempDir()
	newClient := func() *Client {
		return NewClient(ClientOpts{BaseURL: server.URL, CacheDir: dir, CacheSize: -1, Logger: history.NopLogger()})
	}
	first, err := newClient().GetSplits(context.Background())
	require.NoError(t, err)
	second, err := newClient().GetSplits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, called)

	t.Run("expires the next day", func(t *testing.T) {
		c := newClient()
		c.disk.today = func() civil.Date { return civil.DateOf(time.Now()).AddDays(1) }
		_, err := c.GetSplits(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 2, called)
	})
}

func TestClientGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(splitsBody))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	client := testClient("http://iss.test")
	client.do = func(c *Client, req *http.Request) (*http.Response, error) {
		assert.Equal(t, "gzip", req.Header.Get("Accept-Encoding"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Encoding": []string{"gzip"}},
			Body:       io.NopCloser(bytes.NewReader(buf.Bytes())),
		}, nil
	}
	splits, err := client.GetSplits(context.Background())
	require.NoError(t, err)
	assert.Len(t, splits, 3)
}

func mockResp(resp string) func(c *Client, req *http.Request) (*http.Response, error) {
	return func(c *Client, req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(resp)),
		}, nil
	}
}

func mockErrResp() func(c *Client, req *http.Request) (*http.Response, error) {
	return func(c *Client, req *http.Request) (*http.Response, error) {
		return nil, errors.New("fail")
	}
}

func TestGetRowsFollowsCursor(t *testing.T) {
	client := testClient("http://iss.test")
	var starts []string
	client.do = func(c *Client, req *http.Request) (*http.Response, error) {
		start := req.URL.Query().Get("start")
		starts = append(starts, start)
		body := `{"changeover": {"columns": ["action_date", "old_secid", "new_secid"], "data": [["2020-01-01", "A", "B"]]},
			"changeover.cursor": {"columns": ["INDEX", "TOTAL", "PAGESIZE"], "data": [[0, 2, 1]]}}`
		if start == "1" {
			body = `{"changeover": {"columns": ["action_date", "old_secid", "new_secid"], "data": [["2021-01-01", "B", "C"]]},
				"changeover.cursor": {"columns": ["INDEX", "TOTAL", "PAGESIZE"], "data": [[1, 2, 1]]}}`
		}
		return mockResp(body)(c, req)
	}
	cos, err := client.GetChangeovers(context.Background(), Shares)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "1"}, starts)
	require.Len(t, cos, 2)
	assert.Equal(t, "C", cos[1].NewSecid)

	t.Run("error", func(t *testing.T) {
		client.do = mockErrResp()
		_, err := client.GetChangeovers(context.Background(), Shares)
		assert.Error(t, err)
	})
}
