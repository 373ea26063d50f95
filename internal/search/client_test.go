package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	server := httptest.NewServer(nil)
	t.Cleanup(server.Close)

	client := NewClient(
		server.URL,
		"test-token",
		logger,
		WithRetryConfig(3, time.Millisecond*10, time.Millisecond*100),
		WithHTTPClient(server.Client()),
	)
	return client, server
}

func TestClient_Search(t *testing.T) {
	client, server := setupTestClient(t)
	ctx := context.Background()

	t.Run("successful request", func(t *testing.T) {
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/gitlog/_search", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(1), body["size"])

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"hits": {"hits": [
					{"_source": {"hash": "abc"}, "sort": ["2024-01-01", "abc"]}
				]},
				"aggregations": {"count_of_uuid": {"value": 42}}
			}`))
		})

		resp, err := client.Search(ctx, "gitlog", map[string]any{"size": 1})
		require.NoError(t, err)
		require.Len(t, resp.Hits.Hits, 1)
		assert.JSONEq(t, `{"hash":"abc"}`, string(resp.Hits.Hits[0].Source))
		assert.Equal(t, []any{"2024-01-01", "abc"}, resp.Hits.Hits[0].Sort)
		assert.Equal(t, float64(42), resp.Aggregations[AggResultKey].Value)
	})

	t.Run("retries on server error", func(t *testing.T) {
		attempts := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"hits":{"hits":[]}}`))
		})

		resp, err := client.Search(ctx, "gitlog", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Empty(t, resp.Hits.Hits)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.Search(ctx, "gitlog", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exceeded")
	})

	t.Run("client error is not retried", func(t *testing.T) {
		attempts := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"parsing_exception"}`))
		})

		_, err := client.Search(ctx, "gitlog", map[string]any{})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)

		backendErr, ok := err.(*BackendError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, backendErr.StatusCode)
	})

	t.Run("empty index is rejected", func(t *testing.T) {
		_, err := client.Search(ctx, "", map[string]any{})
		assert.Error(t, err)
	})
}

func TestClient_Scroll(t *testing.T) {
	client, server := setupTestClient(t)
	ctx := context.Background()

	nextQuery := func(searchAfter []any) map[string]any {
		return MessageListQuery("tag", []string{"https://github.com/a/b.git"}, 2, nil, nil, searchAfter)
	}

	t.Run("pages until empty and threads the cursor", func(t *testing.T) {
		var cursors []any
		pages := [][]string{{"h1", "h2"}, {"h3"}, {}}
		page := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			cursors = append(cursors, body["search_after"])

			hits := make([]map[string]any, 0, len(pages[page]))
			for _, h := range pages[page] {
				hits = append(hits, map[string]any{
					"_source": map[string]any{"hash": h},
					"sort":    []any{"2024-01-01", h},
				})
			}
			page++
			json.NewEncoder(w).Encode(map[string]any{
				"hits": map[string]any{"hits": hits},
			})
		})

		var got []string
		err := client.Scroll(ctx, "gitlog", nextQuery, func(hits []Hit) error {
			for _, hit := range hits {
				var doc struct {
					Hash string `json:"hash"`
				}
				require.NoError(t, json.Unmarshal(hit.Source, &doc))
				got = append(got, doc.Hash)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"h1", "h2", "h3"}, got)

		require.Len(t, cursors, 3)
		assert.Nil(t, cursors[0])
		assert.Equal(t, []any{"2024-01-01", "h2"}, cursors[1])
		assert.Equal(t, []any{"2024-01-01", "h3"}, cursors[2])
	})

	t.Run("non-empty page without cursor is fatal", func(t *testing.T) {
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"hits":{"hits":[{"_source":{"hash":"h1"}}]}}`))
		})

		err := client.Scroll(ctx, "gitlog", nextQuery, func([]Hit) error { return nil })
		require.Error(t, err)
		assert.True(t, IsProtocolError(err))
	})

	t.Run("page ceiling stops a runaway scroll", func(t *testing.T) {
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Same cursor on every page: the backend never advances.
			w.Write([]byte(`{"hits":{"hits":[{"_source":{"hash":"h1"},"sort":["2024-01-01","h1"]}]}}`))
		})

		err := client.Scroll(ctx, "gitlog", nextQuery, func([]Hit) error { return nil })
		require.Error(t, err)
		assert.True(t, IsProtocolError(err))
	})
}
