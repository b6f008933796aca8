package segmenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kasemsan-k/thai-search-core/internal/dictionary"
	"github.com/kasemsan-k/thai-search-core/pkg/resilience"
)

const confRemote = 0.80

// Remote calls an external neural segmenter service over HTTP. The service
// returns surface strings only; offsets are reconstructed locally and the
// response is rejected unless it covers the input exactly. A circuit breaker
// keeps a dead service from adding its timeout to every request.
type Remote struct {
	endpoint string
	client   *http.Client
	breaker  *resilience.CircuitBreaker
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Tokens []string `json:"tokens"`
}

// NewRemote creates the remote strategy for the given endpoint.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker("remote-segmenter", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
		}),
	}
}

func (s *Remote) Name() string { return "remote" }

func (s *Remote) Segment(ctx context.Context, text string, gen *dictionary.Generation, domain string) ([]Token, error) {
	var tokens []Token
	err := s.breaker.Execute(func() error {
		var err error
		tokens, err = s.call(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *Remote) call(ctx context.Context, text string) ([]Token, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling segment request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building segment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling remote segmenter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote segmenter returned status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding segment response: %w", err)
	}

	tokens := make([]Token, 0, len(parsed.Tokens))
	offset := 0
	for _, surface := range parsed.Tokens {
		if !strings.HasPrefix(text[offset:], surface) || surface == "" {
			return nil, fmt.Errorf("remote segmenter output does not cover input at byte %d", offset)
		}
		tokens = append(tokens, Token{
			Text:       surface,
			Start:      offset,
			End:        offset + len(surface),
			Confidence: confRemote,
			Strategy:   s.Name(),
		})
		offset += len(surface)
	}
	if offset != len(text) {
		return nil, fmt.Errorf("remote segmenter output covers %d of %d bytes", offset, len(text))
	}
	return tokens, nil
}
