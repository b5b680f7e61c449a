package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

func TestRESTAdapterDo(t *testing.T) {
	var seen *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		w.Header().Set("X-Trace", "abc")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"subscriptionId":"sub-1"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["User-Agent"] = "carrier-billing"

	resp, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:      "post",
		URL:         server.URL + "/subscriptions",
		Headers:     map[string]string{"Content-Type": "application/json"},
		Query:       map[string]string{"dryRun": "false"},
		Body:        []byte(`{"msisdn":"96550001111"}`),
		Idempotency: "corr-1",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "sub-1") {
		t.Fatalf("body = %s", resp.Body)
	}
	if resp.Headers["X-Trace"] != "abc" {
		t.Fatalf("headers = %+v", resp.Headers)
	}
	if seen.Method != http.MethodPost {
		t.Fatalf("method = %s", seen.Method)
	}
	if seen.URL.Query().Get("dryRun") != "false" {
		t.Fatalf("query = %s", seen.URL.RawQuery)
	}
	if seen.Header.Get(IdempotencyHeader) != "corr-1" {
		t.Fatalf("idempotency header = %q", seen.Header.Get(IdempotencyHeader))
	}
	if seen.Header.Get("User-Agent") != "carrier-billing" {
		t.Fatalf("default header not applied: %q", seen.Header.Get("User-Agent"))
	}
}

func TestRESTAdapterRequestHeadersOverrideDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["User-Agent"] = "default"

	resp, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Headers: map[string]string{"User-Agent": "override"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(resp.Body) != "override" {
		t.Fatalf("body = %s", resp.Body)
	}
}

func TestRESTAdapterBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:                  server.URL,
		MaxResponseBodyBytes: 16,
	})
	if err == nil {
		t.Fatal("oversize body must fail")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.BillingErrorOperatorError {
		t.Fatalf("error = %v", err)
	}
}

func TestRESTAdapterTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("timeout must surface")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryExternal {
		t.Fatalf("error = %v", err)
	}
}

func TestRESTAdapterInvalidURL(t *testing.T) {
	adapter := NewRESTAdapter(nil)
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: "   "})
	if err == nil {
		t.Fatal("empty url must fail")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.BillingErrorMissingParameters {
		t.Fatalf("error = %v", err)
	}
}
