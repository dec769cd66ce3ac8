package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
)

const snapshotVersion = 1

type hebrewKey struct {
	Date        GregorianDate
	AfterSunset bool
}

type gregorianKey struct {
	Year  int
	Month calendar.Month
	Day   int
}

// gregorianEntry is either a resolved date or a remembered
// InvalidHebrewDate answer.
type gregorianEntry struct {
	Date    GregorianDate
	Invalid bool
}

// Cache is the bounded conversion cache shared by every projection. Both
// directions are keyed by their exact inputs. Failures other than
// InvalidHebrewDate are never stored.
type Cache struct {
	hebrew    *lru.Cache[hebrewKey, HebrewDate]
	gregorian *lru.Cache[gregorianKey, gregorianEntry]

	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewCache returns a cache holding up to size entries per direction.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = config.DefaultCacheSize
	}
	hebrew, err := lru.New[hebrewKey, HebrewDate](size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheInit, err)
	}
	gregorian, err := lru.New[gregorianKey, gregorianEntry](size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheInit, err)
	}

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err := encOptions.EncMode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheInit, err)
	}
	decMode, err := cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheInit, err)
	}

	return &Cache{
		hebrew:    hebrew,
		gregorian: gregorian,
		encMode:   encMode,
		decMode:   decMode,
	}, nil
}

// Len returns the number of cached conversions in both directions.
func (c *Cache) Len() int {
	return c.hebrew.Len() + c.gregorian.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.hebrew.Purge()
	c.gregorian.Purge()
}

func (c *Cache) getHebrew(g GregorianDate, afterSunset bool) (HebrewDate, bool) {
	return c.hebrew.Get(hebrewKey{Date: g, AfterSunset: afterSunset})
}

func (c *Cache) putHebrew(h HebrewDate) {
	c.hebrew.Add(hebrewKey{Date: h.Gregorian, AfterSunset: h.AfterSunset}, h)
}

func (c *Cache) getGregorian(year int, month calendar.Month, day int) (gregorianEntry, bool) {
	return c.gregorian.Get(gregorianKey{Year: year, Month: month, Day: day})
}

func (c *Cache) putGregorian(year int, month calendar.Month, day int, e gregorianEntry) {
	c.gregorian.Add(gregorianKey{Year: year, Month: month, Day: day}, e)
}

type snapshot struct {
	Version   int              `cbor:"1,keyasint"`
	Hebrew    []HebrewDate     `cbor:"2,keyasint"`
	Gregorian []snapshotResult `cbor:"3,keyasint"`
}

type snapshotResult struct {
	Year    int            `cbor:"1,keyasint"`
	Month   calendar.Month `cbor:"2,keyasint"`
	Day     int            `cbor:"3,keyasint"`
	Date    GregorianDate  `cbor:"4,keyasint"`
	Invalid bool           `cbor:"5,keyasint,omitempty"`
}

// Save writes the cache content to w as deterministic CBOR, oldest entries
// first so a later Load restores the recency order.
func (c *Cache) Save(w io.Writer) error {
	snap := snapshot{Version: snapshotVersion}
	for _, k := range c.hebrew.Keys() {
		if h, ok := c.hebrew.Peek(k); ok {
			snap.Hebrew = append(snap.Hebrew, h)
		}
	}
	for _, k := range c.gregorian.Keys() {
		if e, ok := c.gregorian.Peek(k); ok {
			snap.Gregorian = append(snap.Gregorian, snapshotResult{
				Year: k.Year, Month: k.Month, Day: k.Day,
				Date: e.Date, Invalid: e.Invalid,
			})
		}
	}

	if err := c.encMode.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}
	return nil
}

// Load merges a snapshot written by Save and returns the number of entries
// read.
func (c *Cache) Load(r io.Reader) (int, error) {
	var snap snapshot
	if err := c.decMode.NewDecoder(r).Decode(&snap); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrCacheRestore, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("%s: version %d", config.ErrCacheRestore, snap.Version)
	}

	for _, h := range snap.Hebrew {
		c.putHebrew(h)
	}
	for _, e := range snap.Gregorian {
		c.putGregorian(e.Year, e.Month, e.Day, gregorianEntry{Date: e.Date, Invalid: e.Invalid})
	}
	return len(snap.Hebrew) + len(snap.Gregorian), nil
}

// SaveFile writes the snapshot to path through a temporary file so a crash
// never leaves a truncated snapshot behind.
func (c *Cache) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := c.Save(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}
	if err := os.Chmod(tmp.Name(), config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCacheSnapshot, err)
	}

	slog.Debug(config.MsgCacheSaved,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyFile, path,
		config.LogKeyEntries, c.Len(),
	)
	return nil
}

// LoadFile restores a snapshot from path. A missing file is not an error.
func (c *Cache) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug(config.MsgCacheSnapMissing,
			config.LogKeyComponent, config.CompCache,
			config.LogKeyFile, path,
		)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrCacheRestore, err)
	}
	defer func() { _ = f.Close() }()

	n, err := c.Load(f)
	if err != nil {
		return 0, err
	}
	slog.Info(config.MsgCacheLoaded,
		config.LogKeyComponent, config.CompCache,
		config.LogKeyFile, path,
		config.LogKeyEntries, n,
	)
	return n, nil
}
