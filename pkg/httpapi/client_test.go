package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/illmade-knight/go-callapi/pkg/httpapi"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := httpapi.NewClient("/just/a/path")
	assert.Error(t, err)

	_, err = httpapi.NewClient("://bad")
	assert.Error(t, err)
}

func TestClient_API(t *testing.T) {
	// Arrange
	var gotMethod, gotPath, gotQuery, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[1,2],"next":"c2"}`))
	}))
	t.Cleanup(server.Close)

	client, err := httpapi.NewClient(server.URL + "/v1")
	require.NoError(t, err)

	t.Run("Get with query", func(t *testing.T) {
		api := client.API(1, httpapi.Call{Path: "/feed", Query: url.Values{"cursor": {"c1"}}})

		doc, err := api.Invoke(context.Background())

		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "/v1/feed", gotPath)
		assert.Equal(t, "cursor=c1", gotQuery)
		assert.JSONEq(t, `{"items":[1,2],"next":"c2"}`, doc.String())
	})

	t.Run("Post with JSON body", func(t *testing.T) {
		api := client.API(1, httpapi.Call{Method: http.MethodPost, Path: "search", Body: document.Document{"q": "go"}})

		_, err := api.Invoke(context.Background())

		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/v1/search", gotPath)
		assert.JSONEq(t, `{"q":"go"}`, gotBody)
	})
}

func TestClient_FailuresAreNetworkErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "Server error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				var statusErr *httpapi.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusBadGateway, statusErr.Code)
				assert.Equal(t, "upstream down", statusErr.Body)
			},
		},
		{
			name: "Body is not an object",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`[1,2,3]`))
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode response")
			},
		},
		{
			name: "Slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			t.Cleanup(server.Close)
			client, err := httpapi.NewClient(server.URL, httpapi.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
			require.NoError(t, err)

			_, err = client.API(4, httpapi.Call{Path: "x"}).Invoke(context.Background())

			var netErr *callapi.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.Equal(t, 4, netErr.What)
			tt.check(t, err)
		})
	}
}

func TestClient_EmptyBodyIsNoPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	client, err := httpapi.NewClient(server.URL)
	require.NoError(t, err)

	doc, err := client.API(1, httpapi.Call{Path: "ping"}).Invoke(context.Background())

	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestClient_RouterDrivesTask(t *testing.T) {
	// Arrange
	const feedPage = 3
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []string{r.URL.Query().Get("page")}})
	}))
	t.Cleanup(server.Close)
	client, err := httpapi.NewClient(server.URL)
	require.NoError(t, err)

	listener := callapi.Listener{
		API: client.Router(map[int]httpapi.Route{
			feedPage: func(params ...any) httpapi.Call {
				return httpapi.Call{Path: "feed", Query: url.Values{"page": {params[0].(string)}}}
			},
		}),
		CacheKey: func(what int, _ callapi.CacheMode, params ...any) string { return "feed" },
		Append:   callapi.Combine(document.AppendList("items")),
	}
	backend := kvstore.NewInMemory()

	// Act
	for _, page := range []string{"p1", "p2"} {
		exec, err := callapi.Do(context.Background(), backend, listener, callapi.Request{
			What: feedPage, Params: []any{page}, CacheMode: callapi.CacheAppend,
		})
		require.NoError(t, err)
		results, errs, err := exec.Wait(context.Background())
		require.NoError(t, err)
		require.Empty(t, errs)
		require.Len(t, results, 1)
	}

	// Assert
	store, err := backend.Open(context.Background(), callapi.DefaultNamespace, callapi.DefaultVersion)
	require.NoError(t, err)
	data, err := store.Get(context.Background(), "feed")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":["p1","p2"]}`, string(data))

	t.Run("Unrouted discriminator has no API", func(t *testing.T) {
		assert.Nil(t, listener.API(99))
	})
}
