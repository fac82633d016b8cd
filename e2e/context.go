package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pharmachain/internal/identity"
	"pharmachain/pkg/domain"
)

// Parties are the custody participants scenarios refer to by name.
var Parties = map[string]domain.Address{
	"manufacturer": domain.MustParseAddress("0x1111111111111111111111111111111111111111"),
	"distributor":  domain.MustParseAddress("0x2222222222222222222222222222222222222222"),
	"pharmacy":     domain.MustParseAddress("0x3333333333333333333333333333333333333333"),
}

// TestContext drives the HTTP API for one scenario and keeps the last
// response for assertions.
type TestContext struct {
	BaseURL string
	RunID   string
	client  *http.Client
	tokens  *identity.JWTService

	lastStatus int
	lastBody   map[string]any
}

func NewTestContext(baseURL, runID string, tokens *identity.JWTService) *TestContext {
	return &TestContext{
		BaseURL: baseURL,
		RunID:   runID,
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
}

// BatchID namespaces a scenario batch id so reruns against a long-lived
// server do not collide.
func (tc *TestContext) BatchID(name string) string {
	return name + "-" + tc.RunID
}

// TokenFor mints a bearer token for a named party.
func (tc *TestContext) TokenFor(party string) (string, error) {
	addr, ok := Parties[party]
	if !ok {
		return "", fmt.Errorf("unknown party %q", party)
	}
	return tc.tokens.Issue(addr, time.Hour)
}

func (tc *TestContext) Address(party string) (domain.Address, error) {
	addr, ok := Parties[party]
	if !ok {
		return "", fmt.Errorf("unknown party %q", party)
	}
	return addr, nil
}

// Do sends a JSON request. An empty token sends no Authorization header.
func (tc *TestContext) Do(method, path, token string, body any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode response %q: %w", raw, err)
		}
	}
	return nil
}

func (tc *TestContext) Status() int { return tc.lastStatus }

func (tc *TestContext) Field(name string) (any, error) {
	v, ok := tc.lastBody[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %v", name, tc.lastBody)
	}
	return v, nil
}
