package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the token cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "evict",
		Short: "Remove expired entries from the token cache",
		Long: `Remove expired entries from the token cache. Expired entries are never
returned, so this only reclaims space. Redis expires keys itself.`,
		Args: cobra.NoArgs,
		RunE: runCacheEvict,
	})

	return cmd
}

// cacheEvictOutput is the JSON schema for `cache evict --json`.
type cacheEvictOutput struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Evicted bool   `json:"evicted"`
}

func runCacheEvict(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())

	s, err := NewSession(cmd.Context(), cc.Cfg, false, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Store.EvictExpired(cmd.Context()); err != nil {
		return fmt.Errorf("evicting expired entries: %w", err)
	}

	if cc.JSON {
		return printJSON(cc.Out, cacheEvictOutput{
			Backend: cc.Cfg.CacheBackend,
			Path:    cc.Cfg.CachePath,
			Evicted: true,
		})
	}

	cc.Statusf("Expired entries evicted from the %s cache.\n", cc.Cfg.CacheBackend)

	return nil
}
