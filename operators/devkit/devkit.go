// Package devkit provides a scripted transport and a sandbox operator for
// tests and local development. Nothing here talks to a real network.
package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-carrier-billing/core"
	"github.com/goliatone/go-carrier-billing/normalize"
	"github.com/goliatone/go-carrier-billing/operators/generic"
)

const Code = "devkit"

type stub struct {
	status int
	body   []byte
	err    error
	delay  time.Duration
}

// Transport replays scripted responses keyed by method and path suffix and
// records every request it sees.
type Transport struct {
	mu       sync.Mutex
	stubs    map[string]stub
	fallback *stub
	calls    []core.TransportRequest
}

func NewTransport() *Transport {
	return &Transport{stubs: map[string]stub{}}
}

func (t *Transport) Kind() string { return "devkit" }

// Stub scripts the response for one method+path. Body may be a []byte, a
// string, or any JSON-encodable value.
func (t *Transport) Stub(method string, path string, status int, body any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stubs[stubKey(method, path)] = stub{status: status, body: encodeBody(body)}
}

// StubError scripts a transport-level failure (timeout, connection refused).
func (t *Transport) StubError(method string, path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stubs[stubKey(method, path)] = stub{err: err}
}

// StubLatency scripts a slow success, used by health-probe tests.
func (t *Transport) StubLatency(method string, path string, status int, body any, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stubs[stubKey(method, path)] = stub{status: status, body: encodeBody(body), delay: delay}
}

// Fallback scripts the response for any request without a dedicated stub.
func (t *Transport) Fallback(status int, body any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallback = &stub{status: status, body: encodeBody(body)}
}

func (t *Transport) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	t.mu.Lock()
	t.calls = append(t.calls, req)
	matched, ok := t.lookup(req)
	t.mu.Unlock()

	if !ok {
		return core.TransportResponse{}, fmt.Errorf("devkit: no stub for %s %s", req.Method, req.URL)
	}
	if matched.delay > 0 {
		select {
		case <-time.After(matched.delay):
		case <-ctx.Done():
			return core.TransportResponse{}, ctx.Err()
		}
	}
	if matched.err != nil {
		return core.TransportResponse{}, matched.err
	}
	return core.TransportResponse{
		StatusCode: matched.status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       matched.body,
	}, nil
}

func (t *Transport) lookup(req core.TransportRequest) (stub, bool) {
	for key, scripted := range t.stubs {
		method, path, _ := strings.Cut(key, " ")
		if strings.EqualFold(method, req.Method) && strings.HasSuffix(req.URL, path) {
			return scripted, true
		}
	}
	if t.fallback != nil {
		return *t.fallback, true
	}
	return stub{}, false
}

// Requests returns a copy of every recorded request, in order.
func (t *Transport) Requests() []core.TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.TransportRequest, len(t.calls))
	copy(out, t.calls)
	return out
}

func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
	t.stubs = map[string]stub{}
	t.fallback = nil
}

func stubKey(method string, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + path
}

func encodeBody(body any) []byte {
	switch typed := body.(type) {
	case nil:
		return nil
	case []byte:
		return typed
	case string:
		return []byte(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil
		}
		return encoded
	}
}

// Profile is the sandbox operator profile: permissive limits, default
// status family, instant endpoints.
func Profile() core.OperatorProfile {
	return core.OperatorProfile{
		Code:            Code,
		Name:            "Devkit Sandbox",
		Environment:     "sandbox",
		Endpoint:        "https://devkit.invalid",
		Currency:        "USD",
		MSISDNPattern:   `^\d{8,15}$`,
		MSISDNExample:   "15550001111",
		IdentifierMode:  core.IdentifierModeMSISDN,
		StatusFamily:    normalize.FamilyDefault,
		ProbeIdentifier: "15550001111",
		CallTimeout:     2 * time.Second,
	}
}

// Factory builds the sandbox adapter over the supplied scripted transport.
func Factory(transport *Transport, observer core.Observer) core.AdapterFactory {
	return func(profile core.OperatorProfile) (core.Adapter, error) {
		if profile.Code == "" {
			profile = Profile()
		}
		return generic.New(profile, transport, normalize.New(), observer)
	}
}

var _ core.TransportAdapter = (*Transport)(nil)
