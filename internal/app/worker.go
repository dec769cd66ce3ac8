package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/store"
)

// backgroundWorker refreshes every record on a ticker and rebuilds the feed
// whenever a write is signalled through Changed.
func (a *App) backgroundWorker(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	a.performRefresh(ctx)

	var tick <-chan time.Time
	interval := a.Settings.RefreshInterval
	if interval > config.DisabledInterval {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-a.changed:
			if err := a.RebuildFeed(ctx); err != nil && ctx.Err() == nil {
				log.Error(config.MsgRefreshFailed, config.LogKeyError, err)
			}

		case <-tick:
			a.performRefresh(ctx)
		}
	}
}

// performRefresh recomputes every active record, then rebuilds the feed.
// A failed refresh still rebuilds the feed from what is stored.
func (a *App) performRefresh(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)
	log.Info(config.MsgRefreshReq, config.LogKeyManual, false)

	if _, err := a.Records.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error(config.MsgRefreshFailed, config.LogKeyError, err)
	}
	if err := a.RebuildFeed(ctx); err != nil && ctx.Err() == nil {
		log.Error(config.MsgRefreshFailed, config.LogKeyError, err)
	}
}

// ManualRefresh is the refresh requested through the API. The feed rebuild
// follows from the Changed signal the server sends afterwards.
func (a *App) ManualRefresh(ctx context.Context) (records.RefreshResult, error) {
	slog.Info(config.MsgRefreshReq,
		config.LogKeyComponent, config.CompWorker,
		config.LogKeyManual, true,
	)
	return a.Records.Refresh(ctx)
}

// RebuildFeed renders the active records into the calendar feed. Records
// whose Hebrew date is still pending are left out.
func (a *App) RebuildFeed(ctx context.Context) error {
	active, err := a.Records.Active(ctx)
	if err != nil {
		return err
	}

	res, err := a.Engine.BuildCalendar(ctx, CalendarEntries(active), a.Settings.ReminderTrigger)
	if err != nil {
		return err
	}
	a.Feed.Update(res.ICS)

	slog.Info(a.Translator.StatusToday(res.Today),
		config.LogKeyComponent, config.CompWorker,
		config.LogKeyToday, res.Today,
		config.LogKeyEvents, res.Events,
	)
	return nil
}

// CalendarEntries maps stored records onto feed entries, keyed by record ID
// so event UIDs survive renames.
func CalendarEntries(list []store.Birthday) []engine.CalendarEntry {
	entries := make([]engine.CalendarEntry, 0, len(list))
	for _, b := range list {
		if b.Derived.Hebrew.Year == 0 {
			continue
		}
		entries = append(entries, engine.CalendarEntry{
			UID:    b.ID,
			Name:   b.FullName(),
			Birth:  b.BirthDate,
			Hebrew: b.Derived.Hebrew,
		})
	}
	return entries
}
