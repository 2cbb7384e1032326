package erp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/core"
)

// Catalog serves reference lists used as filter options. Lists are cached
// briefly per ERP session, since the ERP answers with what the session may
// see; records themselves always come from the ERP.
type Catalog struct {
	client     *Client
	centers    *cache.LRUCache[[]core.CostCenter]
	categories *cache.LRUCache[[]Category]
}

// NewCatalog creates a catalog whose lists expire after ttl. The caches are
// registered with manager for periodic cleanup when it is non-nil.
func NewCatalog(client *Client, size int, ttl time.Duration, manager *cache.Manager) *Catalog {
	c := &Catalog{
		client:     client,
		centers:    cache.NewLRUCache[[]core.CostCenter](size, ttl),
		categories: cache.NewLRUCache[[]Category](size, ttl),
	}
	if manager != nil {
		manager.Register(c.centers)
		manager.Register(c.categories)
	}
	return c
}

// CostCenters returns cost centers sorted by code.
func (c *Catalog) CostCenters(ctx context.Context) ([]core.CostCenter, error) {
	return c.centers.Load(ctx, scope(ctx)+"|all", func(ctx context.Context) ([]core.CostCenter, error) {
		list, err := c.client.CostCenters.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Code < list[j].Code })
		return list, nil
	})
}

// Categories returns cashflow categories of kind ("income", "expense" or ""
// for all) sorted by name.
func (c *Catalog) Categories(ctx context.Context, kind string) ([]Category, error) {
	return c.categories.Load(ctx, scope(ctx)+"|kind:"+kind, func(ctx context.Context) ([]Category, error) {
		var q url.Values
		if kind != "" {
			q = url.Values{"type": {kind}}
		}
		list, err := c.client.Categories.List(ctx, q)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		return list, nil
	})
}

// CostCenterName resolves id against the cached list; unknown ids render as "".
func (c *Catalog) CostCenterName(ctx context.Context, id int64) string {
	centers, err := c.CostCenters(ctx)
	if err != nil {
		return ""
	}
	for _, cc := range centers {
		if cc.ID == id {
			return cc.Name
		}
	}
	return ""
}

// scope names the cache partition of the caller's ERP session. Calls made
// without a session share the service partition.
func scope(ctx context.Context) string {
	c, ok := SessionFrom(ctx)
	if !ok || c.Value == "" {
		return "service"
	}
	sum := sha256.Sum256([]byte(c.Value))
	return hex.EncodeToString(sum[:8])
}
