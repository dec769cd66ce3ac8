package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/hebday/internal/config"
)

// feedItem stores the rendered calendar and its metadata for HTTP caching.
type feedItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
	modTime      time.Time
}

// CalendarFeed serves the latest ICS rendering of the Hebrew birthdays.
type CalendarFeed struct {
	// Reads happen on every client poll, writes only after a rebuild.
	item atomic.Pointer[feedItem]
}

// NewCalendarFeed returns an empty feed. It answers 503 until the first Update.
func NewCalendarFeed() *CalendarFeed {
	return &CalendarFeed{}
}

// Update atomically replaces the served content.
func (f *CalendarFeed) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	// Unchanged content keeps its Last-Modified so conditional requests stay valid.
	if prev := f.item.Load(); prev != nil && prev.etag == etag {
		return
	}

	now := time.Now().UTC().Truncate(time.Second)
	f.item.Store(&feedItem{
		data:         data,
		etag:         etag,
		lastModified: now.Format(http.TimeFormat),
		modTime:      now,
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// Ready reports whether a calendar has been published.
func (f *CalendarFeed) Ready() bool {
	return f.item.Load() != nil
}

// ServeHTTP serves the ICS content with HTTP caching support.
func (f *CalendarFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := f.item.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		if match == item.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	} else if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		// If-None-Match takes precedence when both are sent.
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil && !item.modTime.After(clientTime) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
