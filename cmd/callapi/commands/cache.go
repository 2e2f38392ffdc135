package commands

import (
	"errors"
	"fmt"

	"github.com/illmade-knight/go-callapi/pkg/callapi"
	"github.com/illmade-knight/go-callapi/pkg/kvstore"
	"github.com/spf13/cobra"
)

var errNotCached = errors.New("no cached payload")

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the result cache",
	}
	cmd.AddCommand(c.newCacheGetCmd())
	return cmd
}

func (c *CLI) newCacheGetCmd() *cobra.Command {
	var addr address

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Print the payload cached for a fetch of PATH",
		Long: `Print the payload cached for a fetch of PATH with the same --what and --query.

The default memory backend, and the lru and sturdyc backends, live only as long
as one process, so a separate "callapi fetch" run leaves nothing for this
command to find. Configure a persistent backend (cache.backend: redis or
firestore) to inspect results across runs.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := addr.values()
			if err != nil {
				return err
			}
			e, err := c.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := e.opener.Open(cmd.Context(), e.cfg.Cache.Namespace, e.cfg.Cache.Version)
			if err != nil {
				return err
			}
			defer store.Close()

			key := addr.key(callapi.CacheReplace, args[0], query)
			data, err := store.Get(cmd.Context(), key)
			if err != nil {
				if errors.Is(err, kvstore.ErrNotFound) {
					return fmt.Errorf("%w for key %q", errNotCached, key)
				}
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	addr.register(cmd)
	return cmd
}
