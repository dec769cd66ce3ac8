package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
	"golang.org/x/sync/singleflight"
)

// CachingConverter puts a Cache in front of another DateConverter.
// Concurrent misses on one key share a single inner call, so each key costs
// at most one oracle round trip while its result stays cached.
type CachingConverter struct {
	inner DateConverter
	cache *Cache
	group singleflight.Group
}

// NewCachingConverter wraps inner with cache.
func NewCachingConverter(inner DateConverter, cache *Cache) *CachingConverter {
	return &CachingConverter{inner: inner, cache: cache}
}

// ToHebrew implements DateConverter.
func (c *CachingConverter) ToHebrew(ctx context.Context, g GregorianDate, afterSunset bool) (HebrewDate, error) {
	if h, ok := c.cache.getHebrew(g, afterSunset); ok {
		logCache(config.MsgCacheHit, g.String())
		return h, nil
	}

	key := fmt.Sprintf("h2:%s:%t", g, afterSunset)
	v, err := c.do(ctx, key, func(ctx context.Context) (any, error) {
		if h, ok := c.cache.getHebrew(g, afterSunset); ok {
			return h, nil
		}
		logCache(config.MsgCacheMiss, g.String())
		h, err := c.inner.ToHebrew(ctx, g, afterSunset)
		if err != nil {
			return nil, err
		}
		c.cache.putHebrew(h)
		return h, nil
	})
	if err != nil {
		return HebrewDate{}, err
	}
	return v.(HebrewDate), nil
}

// ToGregorian implements DateConverter. InvalidHebrewDate answers are
// remembered as negative entries.
func (c *CachingConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error) {
	if e, ok := c.cache.getGregorian(year, month, day); ok {
		logCache(config.MsgCacheHit, fmt.Sprintf("%d-%s-%d", year, month, day))
		return e.result(year, month, day)
	}

	key := fmt.Sprintf("g2:%d:%d:%d", year, month, day)
	v, err := c.do(ctx, key, func(ctx context.Context) (any, error) {
		if e, ok := c.cache.getGregorian(year, month, day); ok {
			return e, nil
		}
		logCache(config.MsgCacheMiss, fmt.Sprintf("%d-%s-%d", year, month, day))
		g, err := c.inner.ToGregorian(ctx, year, month, day)
		switch {
		case errors.Is(err, ErrInvalidHebrewDate):
			e := gregorianEntry{Invalid: true}
			c.cache.putGregorian(year, month, day, e)
			return e, nil
		case err != nil:
			return nil, err
		}
		e := gregorianEntry{Date: g}
		c.cache.putGregorian(year, month, day, e)
		return e, nil
	})
	if err != nil {
		return GregorianDate{}, err
	}
	return v.(gregorianEntry).result(year, month, day)
}

func (e gregorianEntry) result(year int, month calendar.Month, day int) (GregorianDate, error) {
	if e.Invalid {
		return GregorianDate{}, fmt.Errorf("%w: %d %s %d", ErrInvalidHebrewDate, day, month, year)
	}
	return e.Date, nil
}

// do runs fn once per key across concurrent callers. The shared call gets
// the initiator's values but not its cancellation, bounded by the oracle
// call timeout instead. A caller whose context ends stops waiting.
func (c *CachingConverter) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(shared, config.OracleCallTimeout)
		defer cancel()
		return fn(callCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func logCache(msg, key string) {
	slog.Debug(msg,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyKey, key,
	)
}
