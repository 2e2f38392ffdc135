package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/illmade-knight/go-callapi/pkg/cachekey"
	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/document"
	"github.com/illmade-knight/go-callapi/pkg/httpapi"
	"github.com/spf13/cobra"
)

// keys derives the cache key for every command, so fetch and cache get agree.
var keys = cachekey.New("http")

// address identifies one cached call: its discriminator, path and query.
type address struct {
	what  int
	query []string
}

func (a *address) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&a.what, "what", "w", 0, "Call discriminator stored with the result")
	cmd.Flags().StringArrayVarP(&a.query, "query", "q", nil, "Query parameter as key=value (repeatable)")
}

func (a *address) values() (url.Values, error) {
	values := url.Values{}
	for _, kv := range a.query {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("query parameter %q is not key=value", kv)
		}
		values.Add(k, v)
	}
	return values, nil
}

func (a *address) key(mode callapi.CacheMode, path string, query url.Values) string {
	return keys.Key(a.what, mode, path, query.Encode())
}

// line is the JSON form of a notification written to stdout.
type line struct {
	What    int               `json:"what"`
	Final   bool              `json:"final"`
	Source  string            `json:"source"`
	Payload document.Document `json:"payload"`
}

func writeLine(w io.Writer, n callapi.Notification) error {
	data, err := json.Marshal(line{What: n.What, Final: n.Final, Source: n.Source.String(), Payload: n.Payload})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func (c *CLI) newFetchCmd() *cobra.Command {
	var (
		addr       address
		baseURL    string
		method     string
		strategy   string
		mode       string
		mergeField string
	)

	cmd := &cobra.Command{
		Use:   "fetch PATH",
		Short: "Call an endpoint and print every notification as a JSON line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := callapi.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			m, err := callapi.ParseCacheMode(mode)
			if err != nil {
				return err
			}
			if (m == callapi.CacheAppend || m == callapi.CachePrepend) && mergeField == "" {
				return fmt.Errorf("--merge-field is required with %s mode", m)
			}
			query, err := addr.values()
			if err != nil {
				return err
			}

			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if baseURL == "" {
				baseURL = e.cfg.HTTP.BaseURL
			}
			client, err := httpapi.NewClient(baseURL,
				httpapi.WithHTTPClient(&http.Client{Timeout: e.cfg.HTTP.Timeout}),
				httpapi.WithLogger(e.logger))
			if err != nil {
				return err
			}

			path := args[0]
			call := httpapi.Call{Method: strings.ToUpper(method), Path: path, Query: query}
			listener := callapi.Listener{
				API: func(what int, _ ...any) callapi.API { return client.API(what, call) },
				CacheKey: func(what int, mode callapi.CacheMode, _ ...any) string {
					return addr.key(mode, path, query)
				},
			}
			if mergeField != "" {
				listener.Append = callapi.Combine(document.AppendList(mergeField))
				listener.Prepend = callapi.Combine(document.PrependList(mergeField))
			}

			exec, err := callapi.Do(cmd.Context(), e.opener, listener, callapi.Request{
				What:      addr.what,
				Params:    []any{path},
				CacheMode: m,
				Strategy:  s,
			}, callapi.WithLogger(e.logger), callapi.WithNamespace(e.cfg.Cache.Namespace, e.cfg.Cache.Version))
			if err != nil {
				return err
			}

			var (
				final   callapi.Notification
				lastErr error
				outErr  error
			)
			err = exec.Dispatch(cmd.Context(),
				func(n callapi.Notification) {
					if n.Final {
						final = n
					}
					if err := writeLine(cmd.OutOrStdout(), n); err != nil && outErr == nil {
						outErr = err
					}
				},
				func(err error) {
					lastErr = err
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "network error: "+err.Error())
				},
			)
			if err != nil {
				return err
			}
			if outErr != nil {
				return outErr
			}
			if final.Payload == nil && lastErr != nil {
				return fmt.Errorf("no result available: %w", lastErr)
			}
			return nil
		},
	}

	addr.register(cmd)
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the API (defaults to http.base_url)")
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", callapi.FetchCacheThenAPI.String(), "Fetch strategy")
	cmd.Flags().StringVarP(&mode, "mode", "m", callapi.CacheReplace.String(), "Cache mode: IGNORE, REPLACE, APPEND or PREPEND")
	cmd.Flags().StringVar(&mergeField, "merge-field", "", "List field combined by APPEND and PREPEND")

	return cmd
}
