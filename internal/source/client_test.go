package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/tunguard/internal/budget"
	"github.com/nao1215/tunguard/internal/model"
)

const testToken = "admin-token"

// fakeAdminAPI serves totalPages pages of pageSize tunnels each. Pages in
// failPages answer with HTTP 500.
type fakeAdminAPI struct {
	totalPages int
	failPages  map[int]bool
	requests   atomic.Int32
}

func (f *fakeAdminAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	if r.Header.Get("Authorization") != testToken {
		writeJSON(w, map[string]any{"code": 401, "msg": "unauthorized"})
		return
	}
	if r.URL.Query().Get("status") != "online" {
		http.Error(w, "missing status filter", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	if f.failPages[page] {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	proxies := make([]map[string]any, 0)
	if page <= f.totalPages {
		for i := range size {
			proxies = append(proxies, map[string]any{
				"id":         (page-1)*size + i + 1,
				"username":   "user",
				"proxy_type": "http",
				"link":       fmt.Sprintf("t%d.example.net", (page-1)*size+i+1),
				"domain":     "",
				"local_port": 80,
			})
		}
	}

	writeJSON(w, map[string]any{
		"code":       200,
		"proxies":    proxies,
		"pagination": map[string]any{"pages": f.totalPages},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()

	base := []Option{WithPageDelay(0), WithLogger(discardLogger())}
	c, err := NewClient(serverURL+"/api/v1/admin/proxies?status=online", testToken, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https endpoint", url: "https://frp.example.com/api/v1/admin/proxies?status=online"},
		{name: "http endpoint", url: "http://127.0.0.1:7500/api"},
		{name: "missing scheme", url: "frp.example.com/api", wantErr: true},
		{name: "unsupported scheme", url: "ftp://frp.example.com/api", wantErr: true},
		{name: "unparsable", url: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(tt.url, testToken)
			if tt.wantErr && !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("expected ErrInvalidBaseURL, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClientPageURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient("https://frp.example.com/api/v1/admin/proxies?status=online", testToken)
	if err != nil {
		t.Fatal(err)
	}

	got := c.pageURL(3, 10)
	want := "https://frp.example.com/api/v1/admin/proxies?page=3&page_size=10&status=online"
	if got != want {
		t.Errorf("pageURL = %q, want %q", got, want)
	}
}

func TestClientFetchAll(t *testing.T) {
	t.Parallel()

	t.Run("fetches every page in order", func(t *testing.T) {
		t.Parallel()

		api := &fakeAdminAPI{totalPages: 3}
		server := httptest.NewServer(api)
		defer server.Close()

		var pages []int
		c := newTestClient(t, server.URL, WithPageSize(4), WithPageCallback(func(page, total, _ int) {
			pages = append(pages, page)
			if total != 3 {
				t.Errorf("expected 3 total pages, got %d", total)
			}
		}))

		records, err := c.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 12 {
			t.Fatalf("expected 12 records, got %d", len(records))
		}
		for i, rec := range records {
			if rec.ID.String() != strconv.Itoa(i+1) {
				t.Errorf("record %d has id %q; pages appended out of order", i, rec.ID)
			}
		}
		if len(pages) != 3 || pages[0] != 1 || pages[2] != 3 {
			t.Errorf("unexpected page callbacks %v", pages)
		}
		if api.requests.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", api.requests.Load())
		}
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			proxies := []map[string]any{}
			if r.URL.Query().Get("page") == "1" {
				proxies = append(proxies, map[string]any{"id": 1, "proxy_type": "tcp", "link": "x:1", "local_port": "22"})
			}
			// The reported page count is wrong; the empty page ends the walk.
			writeJSON(w, map[string]any{"code": 200, "proxies": proxies, "pagination": map[string]any{"pages": 99}})
		}))
		defer server.Close()

		records, err := newTestClient(t, server.URL).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
		if requests.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", requests.Load())
		}
	})

	t.Run("missing pagination means a single page", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests.Add(1)
			writeJSON(w, map[string]any{"code": 200, "proxies": []map[string]any{
				{"id": "a", "proxy_type": "http", "link": "a.example.net"},
			}})
		}))
		defer server.Close()

		records, err := newTestClient(t, server.URL).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || requests.Load() != 1 {
			t.Errorf("expected 1 record from 1 request, got %d from %d", len(records), requests.Load())
		}
	})

	t.Run("failed page 3 of 5 returns pages 1-2", func(t *testing.T) {
		t.Parallel()

		api := &fakeAdminAPI{totalPages: 5, failPages: map[int]bool{3: true}}
		server := httptest.NewServer(api)
		defer server.Close()

		b := budget.New(5)
		c := newTestClient(t, server.URL, WithPageSize(10), WithBudget(b))

		records, err := c.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 20 {
			t.Errorf("expected 20 records from pages 1-2, got %d", len(records))
		}
		if b.Count() != 1 {
			t.Errorf("expected budget count 1, got %d", b.Count())
		}
		if api.requests.Load() != 3 {
			t.Errorf("expected no request after the failed page, got %d requests", api.requests.Load())
		}
	})

	t.Run("failure that exhausts the budget returns nothing", func(t *testing.T) {
		t.Parallel()

		api := &fakeAdminAPI{totalPages: 5, failPages: map[int]bool{2: true}}
		server := httptest.NewServer(api)
		defer server.Close()

		b := budget.New(3)
		b.Record()
		b.Record()

		records, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(context.Background())
		if !errors.Is(err, budget.ErrExhausted) {
			t.Fatalf("expected ErrExhausted, got %v", err)
		}
		if records != nil {
			t.Errorf("expected no records, got %d", len(records))
		}
		if b.Count() != 3 {
			t.Errorf("expected budget count 3, got %d", b.Count())
		}
	})

	t.Run("exhausted budget issues no API calls", func(t *testing.T) {
		t.Parallel()

		api := &fakeAdminAPI{totalPages: 2}
		server := httptest.NewServer(api)
		defer server.Close()

		b := budget.New(2)
		b.Record()
		b.Record()

		_, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(context.Background())
		if !errors.Is(err, budget.ErrExhausted) {
			t.Fatalf("expected ErrExhausted, got %v", err)
		}
		if api.requests.Load() != 0 {
			t.Errorf("expected 0 requests, got %d", api.requests.Load())
		}
	})

	t.Run("api error code is a failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(&fakeAdminAPI{totalPages: 1})
		defer server.Close()

		b := budget.New(5)
		c, err := NewClient(server.URL+"/api?status=online", "wrong-token",
			WithPageDelay(0), WithLogger(discardLogger()), WithBudget(b))
		if err != nil {
			t.Fatal(err)
		}

		records, err := c.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("expected soft stop, got %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
		if b.Count() != 1 {
			t.Errorf("expected budget count 1, got %d", b.Count())
		}
	})

	t.Run("badly typed record is skipped and its neighbours kept", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, `{"code":200,"pagination":{"pages":2},"proxies":[
					{"id":1,"username":"a","proxy_type":"http","link":"a.example.net","domain":"","local_port":80},
					{"id":2,"username":"b","proxy_type":"http","link":"b.example.net","domain":7,"local_port":80},
					{"id":3,"username":"c","proxy_type":"tcp","link":"c.example.net","domain":null,"local_port":{"n":8080}}]}`)
				return
			}
			fmt.Fprint(w, `{"code":200,"pagination":{"pages":2},"proxies":[
				{"id":"4","username":"d","proxy_type":"https","link":"d.example.net","domain":"d.example.com","local_port":"443"}]}`)
		}))
		defer server.Close()

		b := budget.New(5)
		records, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 || records[0].ID != "1" || records[1].ID != "4" {
			t.Fatalf("expected records 1 and 4, got %+v", records)
		}
		if b.Count() != 2 {
			t.Errorf("expected budget count 2, got %d", b.Count())
		}
	})

	t.Run("badly typed records can exhaust the budget", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"code":200,"pagination":{"pages":1},"proxies":[
				{"id":1,"proxy_type":"http","link":"a.example.net","domain":1},
				{"id":2,"proxy_type":"http","link":"b.example.net","domain":2}]}`)
		}))
		defer server.Close()

		b := budget.New(2)
		records, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(context.Background())
		if !errors.Is(err, budget.ErrExhausted) {
			t.Fatalf("expected ErrExhausted, got %v", err)
		}
		if records != nil {
			t.Errorf("expected nil records, got %d", len(records))
		}
	})

	t.Run("invalid json is a failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html>maintenance</html>")
		}))
		defer server.Close()

		b := budget.New(5)
		records, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(context.Background())
		if err != nil || len(records) != 0 || b.Count() != 1 {
			t.Errorf("expected soft stop with 1 budget error, got records=%d err=%v count=%d", len(records), err, b.Count())
		}
	})

	t.Run("pages are spaced by the page delay", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(&fakeAdminAPI{totalPages: 3})
		defer server.Close()

		c := newTestClient(t, server.URL, WithPageDelay(50*time.Millisecond))

		start := time.Now()
		if _, err := c.FetchAll(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("expected at least two page delays, took %v", elapsed)
		}
	})

	t.Run("cancelled context stops without touching the budget", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(&fakeAdminAPI{totalPages: 3})
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := budget.New(5)
		_, err := newTestClient(t, server.URL, WithBudget(b)).FetchAll(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if b.Count() != 0 {
			t.Errorf("expected budget untouched, got %d", b.Count())
		}
	})
}

func TestClientVerify(t *testing.T) {
	t.Parallel()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		sizes := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sizes <- r.URL.Query().Get("page_size")
			writeJSON(w, map[string]any{"code": 200, "proxies": []model.TunnelRecord{}})
		}))
		defer server.Close()

		if err := newTestClient(t, server.URL).Verify(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if gotSize := <-sizes; gotSize != "1" {
			t.Errorf("expected page_size=1, got %q", gotSize)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(&fakeAdminAPI{totalPages: 1})
		defer server.Close()

		c, err := NewClient(server.URL+"/api?status=online", "nope", WithLogger(discardLogger()))
		if err != nil {
			t.Fatal(err)
		}

		err = c.Verify(context.Background())
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if !errors.Is(err, ErrAPIFailure) {
			t.Errorf("expected wrapped ErrAPIFailure, got %v", err)
		}
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		b := budget.New(1)
		err := newTestClient(t, server.URL, WithBudget(b)).Verify(context.Background())
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
		if b.Count() != 0 {
			t.Error("verification failures must not count against the budget")
		}
	})
}
