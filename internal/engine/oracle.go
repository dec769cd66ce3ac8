package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// oracleMonthCodes are the hm values accepted by the hebcal converter.
var oracleMonthCodes = map[calendar.Month]string{
	calendar.Nisan:    "Nisan",
	calendar.Iyyar:    "Iyyar",
	calendar.Sivan:    "Sivan",
	calendar.Tamuz:    "Tamuz",
	calendar.Av:       "Av",
	calendar.Elul:     "Elul",
	calendar.Tishrei:  "Tishrei",
	calendar.Cheshvan: "Cheshvan",
	calendar.Kislev:   "Kislev",
	calendar.Tevet:    "Tevet",
	calendar.Shvat:    "Shvat",
	calendar.Adar:     "Adar",
	calendar.AdarI:    "Adar1",
	calendar.AdarII:   "Adar2",
}

// OracleOptions configures an OracleConverter. Unset timeouts, limits and
// breaker values fall back to the defaults in internal/config; RetryMax is
// used as given.
type OracleOptions struct {
	BaseURL         string
	CallTimeout     time.Duration
	RatePerSecond   float64
	Burst           int
	RetryMax        int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// OracleConverter implements DateConverter on top of the hebcal.com converter
// API. Each call gets its own timeout, goes through a rate limiter and a
// circuit breaker, and transient HTTP failures are retried once.
type OracleConverter struct {
	baseURL *url.URL
	safeURL string
	client  *retryablehttp.Client
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewOracleConverter validates the endpoint and builds the HTTP stack.
func NewOracleConverter(opts OracleOptions) (*OracleConverter, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultOracleURL
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	// Security check: ensure strictly HTTP or HTTPS.
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	if opts.CallTimeout <= 0 {
		opts.CallTimeout = config.OracleCallTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = config.OracleRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = config.OracleRetryWaitMax
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = config.DefaultBreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = config.BreakerCooldown
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = config.DefaultOracleBurst
	}

	// Query parameters are stripped from logs.
	safeURL := u.Scheme + "://" + u.Host + u.Path
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompOracle),
		slog.String(config.LogKeyURL, safeURL),
	)

	client := retryablehttp.NewClient()
	client.Logger = log
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    config.OracleBreakerName,
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A caller walking away says nothing about the oracle's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(config.MsgBreakerState,
				config.LogKeyOld, from.String(),
				config.LogKeyNew, to.String(),
			)
		},
	})

	return &OracleConverter{
		baseURL: u,
		safeURL: safeURL,
		client:  client,
		timeout: opts.CallTimeout,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
	}, nil
}

// ToHebrew implements DateConverter using the g2h endpoint.
func (o *OracleConverter) ToHebrew(ctx context.Context, g GregorianDate, afterSunset bool) (HebrewDate, error) {
	if !g.Valid() {
		return HebrewDate{}, fmt.Errorf("%w: %s: %v", ErrConversionUnavailable, config.ErrInvalidGregorian, g)
	}

	sunset := config.OracleValueOff
	if afterSunset {
		sunset = config.OracleValueOn
	}
	q := url.Values{}
	q.Set(config.OracleParamCfg, config.OracleValueJSON)
	q.Set(config.OracleParamDate, g.String())
	q.Set(config.OracleParamG2H, config.OracleValueTrue)
	q.Set(config.OracleParamStrict, config.OracleValueTrue)
	q.Set(config.OracleParamSunset, sunset)

	body, err := o.call(ctx, q)
	if err != nil {
		return HebrewDate{}, err
	}

	res := gjson.ParseBytes(body)
	if e := res.Get(config.OracleFieldError); e.Exists() {
		return HebrewDate{}, fmt.Errorf("%w: %s: %s", ErrConversionUnavailable, config.ErrOracleRejected, e.String())
	}

	month, err := calendar.ParseMonth(res.Get(config.OracleFieldHM).String())
	if err != nil {
		return HebrewDate{}, fmt.Errorf("%w: %s: %w", ErrConversionUnavailable, config.ErrOracleMalform, err)
	}
	h := calendar.Date{
		Year:  int(res.Get(config.OracleFieldHY).Int()),
		Month: month,
		Day:   int(res.Get(config.OracleFieldHD).Int()),
	}
	if err := h.Validate(); err != nil {
		return HebrewDate{}, fmt.Errorf("%w: %s: %w", ErrConversionUnavailable, config.ErrOracleMalform, err)
	}

	display := res.Get(config.OracleFieldHebrew).String()
	if display == "" {
		display = calendar.FormatHebrew(h)
	}

	return HebrewDate{
		Gregorian:   g,
		AfterSunset: afterSunset,
		Year:        h.Year,
		Month:       h.Month,
		Day:         h.Day,
		Display:     display,
	}, nil
}

// ToGregorian implements DateConverter using the h2g endpoint. Month
// existence is checked before any request is made.
func (o *OracleConverter) ToGregorian(ctx context.Context, year int, month calendar.Month, day int) (GregorianDate, error) {
	if err := (calendar.Date{Year: year, Month: month, Day: day}).Validate(); err != nil {
		return GregorianDate{}, fmt.Errorf("%w: %w", ErrInvalidHebrewDate, err)
	}

	q := url.Values{}
	q.Set(config.OracleParamCfg, config.OracleValueJSON)
	q.Set(config.OracleParamHY, strconv.Itoa(year))
	q.Set(config.OracleParamHM, oracleMonthCodes[month])
	q.Set(config.OracleParamHD, strconv.Itoa(day))
	q.Set(config.OracleParamH2G, config.OracleValueTrue)
	q.Set(config.OracleParamStrict, config.OracleValueTrue)

	body, err := o.call(ctx, q)
	if err != nil {
		return GregorianDate{}, err
	}

	res := gjson.ParseBytes(body)
	if e := res.Get(config.OracleFieldError); e.Exists() {
		return GregorianDate{}, fmt.Errorf("%w: %s: %s", ErrConversionUnavailable, config.ErrOracleRejected, e.String())
	}

	g := GregorianDate{
		Year:  int(res.Get(config.OracleFieldGY).Int()),
		Month: time.Month(res.Get(config.OracleFieldGM).Int()),
		Day:   int(res.Get(config.OracleFieldGD).Int()),
	}
	if !g.Valid() {
		return GregorianDate{}, fmt.Errorf("%w: %s: %s", ErrConversionUnavailable, config.ErrOracleMalform, string(body))
	}
	return g, nil
}

// call performs one bounded oracle round trip and returns the JSON body.
func (o *OracleConverter) call(ctx context.Context, q url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionUnavailable, err)
	}

	res, err := o.breaker.Execute(func() (interface{}, error) {
		return o.fetch(ctx, q)
	})
	if err != nil {
		slog.Debug(config.MsgOracleFailed,
			config.LogKeyComponent, config.CompOracle,
			config.LogKeyURL, o.safeURL,
			config.LogKeyError, err,
		)
		return nil, fmt.Errorf("%w: %w", ErrConversionUnavailable, err)
	}
	return res.([]byte), nil
}

func (o *OracleConverter) fetch(ctx context.Context, q url.Values) ([]byte, error) {
	u := *o.baseURL
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOracleRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)

	slog.Debug(config.MsgOracleCall,
		config.LogKeyComponent, config.CompOracle,
		config.LogKeyURL, o.safeURL,
	)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOracleRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn(config.ErrOracleStatus,
			config.LogKeyComponent, config.CompOracle,
			config.LogKeyURL, o.safeURL,
			config.LogKeyStatus, resp.StatusCode,
		)
		return nil, fmt.Errorf("%s: %d %s", config.ErrOracleStatus, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxOracleResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrOracleRequest, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: %q", config.ErrOracleMalform, body)
	}
	return body, nil
}
