package records

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tartampluch/hebday/internal/config"
)

// Fetcher retrieves an import file from a remote address.
// This interface allows for mocking in tests and decoupling from the network layer.
type Fetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements Fetcher for plain HTTP(S) and WebDAV/CardDAV
// exports, with one retry on transient failures.
type HTTPFetcher struct {
	Client *retryablehttp.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = config.FetchTimeout
	client.RetryMax = config.DefaultOracleRetryMax
	client.RetryWaitMin = config.OracleRetryWaitMin
	client.RetryWaitMax = config.OracleRetryWaitMax
	client.Logger = slog.With(config.LogKeyComponent, config.CompFetcher)
	return &HTTPFetcher{Client: client}
}

// Fetch downloads targetURL. Query parameters are stripped from logs since
// they often carry tokens. The body is capped at MaxImportSize.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}

	// Security check: ensure strictly HTTP or HTTPS using config constants.
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	safeURL := u.Scheme + "://" + u.Host + u.Path
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close() // Ensure we don't leak resources on error.
		log.Warn(config.ErrFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %d %s", config.ErrFetchStatus, resp.StatusCode, resp.Status)
	}

	log.Info(config.MsgFetchStarted, slog.Int64(config.LogKeySizeBytes, resp.ContentLength))

	return &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, config.MaxImportSize),
		Closer: resp.Body,
	}, nil
}

// limitedReadCloser keeps the network body closable while limiting reads.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}
