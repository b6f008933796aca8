package segmenter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteServer(t *testing.T, handler func(text string) []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(map[string][]string{"tokens": handler(req.Text)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteStrategy(t *testing.T) {
	t.Run("tokens with reconstructed offsets", func(t *testing.T) {
		srv := remoteServer(t, func(text string) []string {
			return []string{"สาหร่าย", "วากาเมะ"}
		})
		s := NewRemote(srv.URL, time.Second)

		text := "สาหร่ายวากาเมะ"
		tokens, err := s.Segment(context.Background(), text, nil, "")
		require.NoError(t, err)
		require.Len(t, tokens, 2)
		assert.Equal(t, 0, tokens[0].Start)
		assert.Equal(t, len("สาหร่าย"), tokens[0].End)
		assert.Equal(t, len("สาหร่าย"), tokens[1].Start)
		assert.Equal(t, len(text), tokens[1].End)
		assert.InDelta(t, confRemote, tokens[0].Confidence, 1e-9)
		assert.Equal(t, "remote", tokens[0].Strategy)
	})

	t.Run("partial coverage rejected", func(t *testing.T) {
		srv := remoteServer(t, func(text string) []string {
			return []string{"สาหร่าย"}
		})
		s := NewRemote(srv.URL, time.Second)
		_, err := s.Segment(context.Background(), "สาหร่ายวากาเมะ", nil, "")
		assert.Error(t, err)
	})

	t.Run("mismatched surface rejected", func(t *testing.T) {
		srv := remoteServer(t, func(text string) []string {
			return []string{"ต้มยำ"}
		})
		s := NewRemote(srv.URL, time.Second)
		_, err := s.Segment(context.Background(), "สาหร่าย", nil, "")
		assert.Error(t, err)
	})

	t.Run("http error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)
		s := NewRemote(srv.URL, time.Second)
		_, err := s.Segment(context.Background(), "สาหร่าย", nil, "")
		assert.Error(t, err)
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		s := NewRemote(srv.URL, time.Second)

		for i := 0; i < 10; i++ {
			_, err := s.Segment(context.Background(), "สาหร่าย", nil, "")
			require.Error(t, err)
		}
		// After the breaker trips the service stops seeing requests.
		assert.Equal(t, 5, calls)
	})
}
