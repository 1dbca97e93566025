package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/assetpack/internal/cache"
	"git.home.luguber.info/inful/assetpack/internal/config"
)

// CacheCmd groups transpile cache maintenance.
type CacheCmd struct {
	Stats CacheStatsCmd `cmd:"" help:"Show the number of cached transpile results"`
	Prune CachePruneCmd `cmd:"" help:"Remove cached transpile results older than a given age"`
}

// CacheStatsCmd implements 'cache stats'.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(_ context.Context, g *Global, root *CLI) error {
	tc, dir, err := openCache(root)
	if err != nil {
		return err
	}
	defer func() { _ = tc.Close() }()
	_, _ = fmt.Fprintf(g.Out, "%s: %d entries\n", dir, tc.Stats().Entries)
	return nil
}

// CachePruneCmd implements 'cache prune'.
type CachePruneCmd struct {
	OlderThan time.Duration `name:"older-than" help:"Age after which entries are removed" default:"168h"`
}

func (c *CachePruneCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	tc, dir, err := openCache(root)
	if err != nil {
		return err
	}
	defer func() { _ = tc.Close() }()
	n, err := tc.Prune(ctx, time.Now().Add(-c.OlderThan))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "%s: removed %d entries\n", dir, n)
	return nil
}

func openCache(root *CLI) (*cache.TranspileCache, string, error) {
	cfg, _, err := loadConfig(root, config.EnvFromOS(), config.Overrides{})
	if err != nil {
		return nil, "", err
	}
	dir := cfg.Cache.Directory
	if dir == "" {
		dir = config.DefaultCacheDirectory
	}
	tc, err := cache.Open(dir)
	return tc, dir, err
}
