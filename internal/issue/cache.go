package issue

import (
	"context"
	"sync"
	"time"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/stock"
)

// cache — сквозной кэш серверной правды (остатки, лимиты, шапки заявок).
// Значения никогда не правятся локально: после каждого успешного коммита
// кэш сбрасывается целиком и перечитывается. TTL — только защита от
// залёживания между коммитами чужих сессий.
type cache struct {
	mu  sync.Mutex
	ttl time.Duration

	balances   []stock.Balance
	balancesAt time.Time

	heads   []request.Head
	headsAt time.Time

	quotas map[int64]quotaEntry
}

type quotaEntry struct {
	lines []request.QuotaLine
	at    time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{ttl: ttl, quotas: map[int64]quotaEntry{}}
}

func (c *cache) fresh(at time.Time) bool {
	return !at.IsZero() && time.Since(at) < c.ttl
}

func (c *cache) Balances(ctx context.Context, load func(context.Context) ([]stock.Balance, error)) ([]stock.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh(c.balancesAt) {
		return c.balances, nil
	}
	bals, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.balances, c.balancesAt = bals, time.Now()
	return bals, nil
}

func (c *cache) Heads(ctx context.Context, load func(context.Context) ([]request.Head, error)) ([]request.Head, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh(c.headsAt) {
		return c.heads, nil
	}
	heads, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.heads, c.headsAt = heads, time.Now()
	return heads, nil
}

func (c *cache) Quotas(ctx context.Context, requestID int64, load func(context.Context, int64) ([]request.QuotaLine, error)) ([]request.QuotaLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.quotas[requestID]; ok && c.fresh(e.at) {
		return e.lines, nil
	}
	lines, err := load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	c.quotas[requestID] = quotaEntry{lines: lines, at: time.Now()}
	return lines, nil
}

// Invalidate сбрасывает всё. Обязателен после каждого успешного коммита.
func (c *cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances, c.balancesAt = nil, time.Time{}
	c.heads, c.headsAt = nil, time.Time{}
	c.quotas = map[int64]quotaEntry{}
}
