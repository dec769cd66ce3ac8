package app_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/hebday/internal/app"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/store"
)

var clock = engine.FixedClock{At: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	dir := t.TempDir()
	return config.Settings{
		ListenAddr:        config.LocalhostBindAddr,
		Port:              config.DefaultPort,
		DatabasePath:      filepath.Join(dir, config.DatabaseFileName),
		CacheSize:         128,
		CacheSnapshot:     filepath.Join(dir, config.CacheFileName),
		ConverterMode:     config.ConverterLocal,
		OracleURL:         config.DefaultOracleURL,
		Policy:            config.PolicyObserved,
		ProjectionCount:   3,
		ProjectionCeiling: config.DefaultProjectionCeiling,
		ProjectionWorkers: 2,
		Language:          "en",
		Timezone:          "UTC",
	}
}

func openApp(t *testing.T, s config.Settings) *app.App {
	t.Helper()
	a, err := app.Open(s, clock)
	require.NoError(t, err)
	a.SigningKey = func() ([]byte, error) {
		return []byte(strings.Repeat("k", config.SessionKeyBytes)), nil
	}
	return a
}

func addDavid(t *testing.T, a *app.App) store.Birthday {
	t.Helper()
	b, err := a.Records.Create(context.Background(), records.Input{
		FirstName: "David",
		LastName:  "Levi",
		BirthDate: engine.GregorianDate{Year: 1990, Month: 3, Day: 15},
	}, "")
	require.NoError(t, err)
	return b
}

func TestNewConverter(t *testing.T) {
	tests := []struct {
		mode    string
		url     string
		want    any
		wantErr string
	}{
		{mode: config.ConverterLocal, want: engine.LocalConverter{}},
		{mode: config.ConverterOracle, url: config.DefaultOracleURL, want: &engine.OracleConverter{}},
		{mode: config.ConverterFallback, url: config.DefaultOracleURL, want: engine.FallbackConverter{}},
		{mode: config.ConverterOracle, url: "ftp://example.com", wantErr: config.ErrProtocol},
		{mode: "astrolabe", url: config.DefaultOracleURL, wantErr: config.ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.mode+tt.url, func(t *testing.T) {
			conv, err := app.NewConverter(config.Settings{ConverterMode: tt.mode, OracleURL: tt.url})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, conv)
		})
	}
}

func TestNewEngine_InvalidSettings(t *testing.T) {
	s := testSettings(t)
	s.Policy = "lenient"
	_, _, err := app.NewEngine(s, clock, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrUnknownPolicy)

	s = testSettings(t)
	s.Timezone = "Mars/Olympus"
	_, _, err = app.NewEngine(s, clock, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrTimezone)
}

func TestApp_RebuildFeed(t *testing.T) {
	a := openApp(t, testSettings(t))
	defer func() { _ = a.Close() }()

	b := addDavid(t, a)
	_, err := a.Records.Create(context.Background(), records.Input{
		FirstName: "Sarah",
		LastName:  "Katz",
		BirthDate: engine.GregorianDate{Year: 1985, Month: 10, Day: 2},
	}, "")
	require.NoError(t, err)

	assert.False(t, a.Feed.Ready())
	require.NoError(t, a.RebuildFeed(context.Background()))
	require.True(t, a.Feed.Ready())

	w := httptest.NewRecorder()
	a.Feed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteCalendar, nil))
	require.Equal(t, http.StatusOK, w.Code)

	ics := w.Body.String()
	assert.Equal(t, 6, strings.Count(ics, "BEGIN:VEVENT"), "three occurrences per record")
	assert.Contains(t, ics, "UID:"+b.ID+"-5785@"+config.ICalDomain)
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250318")
}

func TestApp_RebuildFeedEmpty(t *testing.T) {
	a := openApp(t, testSettings(t))
	defer func() { _ = a.Close() }()

	require.NoError(t, a.RebuildFeed(context.Background()))

	w := httptest.NewRecorder()
	a.Feed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteCalendar, nil))
	assert.Equal(t, config.StubVCalendar, w.Body.String())
}

func TestCalendarEntries(t *testing.T) {
	ready := store.Birthday{ID: "a", FirstName: "A", LastName: "B"}
	ready.Derived.Hebrew = engine.HebrewDate{Year: 5750, Day: 18}
	pending := store.Birthday{ID: "p", FirstName: "P", LastName: "Q"}
	pending.Derived.Pending = true

	entries := app.CalendarEntries([]store.Birthday{ready, pending})
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].UID)
	assert.Equal(t, "A B", entries[0].Name)
}

func TestApp_CacheSnapshot(t *testing.T) {
	s := testSettings(t)

	a := openApp(t, s)
	addDavid(t, a)
	require.Positive(t, a.Cache.Len())
	require.NoError(t, a.Close())
	assert.FileExists(t, s.CacheSnapshot)

	again := openApp(t, s)
	defer func() { _ = again.Close() }()
	assert.Positive(t, again.Cache.Len(), "snapshot is restored on open")
}

func TestApp_Auth(t *testing.T) {
	a := openApp(t, testSettings(t))
	defer func() { _ = a.Close() }()

	first, err := a.Auth()
	require.NoError(t, err)
	second, err := a.Auth()
	require.NoError(t, err)
	assert.Same(t, first, second)

	broken := openApp(t, testSettings(t))
	defer func() { _ = broken.Close() }()
	broken.SigningKey = func() ([]byte, error) { return nil, errors.New(config.ErrSecretAccess) }

	_, err = broken.Auth()
	require.Error(t, err)
	_, err = broken.NewServer()
	assert.ErrorContains(t, err, config.ErrSecretAccess)
}

func TestApp_Serve(t *testing.T) {
	ln, err := net.Listen("tcp", config.LocalhostBindAddr+config.AddrSeparator+"0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	s := testSettings(t)
	s.Port = port
	a := openApp(t, s)
	defer func() { _ = a.Close() }()
	addDavid(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- a.Serve(ctx) }()

	url := "http://" + s.Addr() + config.RouteCalendar
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "feed never became ready")

	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VEVENT")

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestApp_ChangedRebuildsFeed(t *testing.T) {
	ln, err := net.Listen("tcp", config.LocalhostBindAddr+config.AddrSeparator+"0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	s := testSettings(t)
	s.Port = port
	a := openApp(t, s)
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Serve(ctx) }()

	require.Eventually(t, a.Feed.Ready, 5*time.Second, 20*time.Millisecond)

	addDavid(t, a)
	a.Changed()
	a.Changed()

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		a.Feed.ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteCalendar, nil))
		return strings.Contains(w.Body.String(), "BEGIN:VEVENT")
	}, 5*time.Second, 20*time.Millisecond)
}
