// Package legal wraps the external legal-intelligence service (RAG over tax
// law documents) behind an injected capability, so the deterministic engine
// can run and be tested without network access.
package legal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"backend/internal/engine"
)

// Oracle returns law/jurisprudence citations for a fiscal topic. It is an
// enrichment: callers must tolerate failure and proceed without it.
type Oracle interface {
	CitationsFor(ctx context.Context, topic string) ([]string, error)
}

// HTTPOracle calls the legal advisor service over HTTP/JSON.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOracle builds an oracle client. timeout bounds each call so the
// oracle can never hold up the deterministic part of an analysis.
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type citationsRequest struct {
	Topic string `json:"topic"`
}

type citationsResponse struct {
	AppliedLawBases []string `json:"applied_law_bases"`
}

// CitationsFor queries the advisor for the given topic. Any transport or
// decoding failure is wrapped in OracleUnavailableError.
func (o *HTTPOracle) CitationsFor(ctx context.Context, topic string) ([]string, error) {
	body, err := json.Marshal(citationsRequest{Topic: topic})
	if err != nil {
		return nil, &engine.OracleUnavailableError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/citations", bytes.NewReader(body))
	if err != nil {
		return nil, &engine.OracleUnavailableError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &engine.OracleUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &engine.OracleUnavailableError{Err: fmt.Errorf("advisor returned status %d", resp.StatusCode)}
	}

	var decoded citationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &engine.OracleUnavailableError{Err: err}
	}
	return decoded.AppliedLawBases, nil
}

// NoopOracle is used when no advisor service is configured; records then
// carry deterministic citations only.
type NoopOracle struct{}

func (NoopOracle) CitationsFor(context.Context, string) ([]string, error) {
	return nil, nil
}
