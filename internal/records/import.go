package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/tartampluch/hebday/internal/config"
)

// Format is an import file format.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatVCard
)

// DetectFormat picks the format from a file name or URL path extension.
func DetectFormat(name string) (Format, error) {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = path.Base(u.Path)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case config.ExtCSV:
		return FormatCSV, nil
	case config.ExtVCF, config.ExtVCard:
		return FormatVCard, nil
	}
	return 0, fmt.Errorf("%s: %q", config.ErrUnknownFormat, name)
}

// ImportResult counts what an import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import parses r in the given format and creates one record per valid
// entry. Invalid entries are skipped, not fatal.
func (s *Service) Import(ctx context.Context, r io.Reader, format Format, createdBy string) (ImportResult, error) {
	var (
		inputs  []Input
		skipped int
		err     error
	)
	switch format {
	case FormatCSV:
		inputs, skipped, err = ParseCSV(r)
	case FormatVCard:
		inputs, skipped, err = ParseVCards(r)
	default:
		err = errors.New(config.ErrUnknownFormat)
	}
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Skipped: skipped}
	for _, in := range inputs {
		if _, err := s.Create(ctx, in, createdBy); err != nil {
			if errors.Is(err, ErrInvalidRecord) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Imported++
	}

	slog.Info(config.MsgRecordsImported,
		config.LogKeyComponent, config.CompRecords,
		config.LogKeyCount, res.Imported,
		config.LogKeySkipped, res.Skipped,
	)
	return res, nil
}

// ImportURL downloads an export through f and imports it. The format comes
// from the URL path.
func (s *Service) ImportURL(ctx context.Context, f Fetcher, target, user, pass, createdBy string) (ImportResult, error) {
	format, err := DetectFormat(target)
	if err != nil {
		return ImportResult{}, err
	}
	body, err := f.Fetch(ctx, target, user, pass)
	if err != nil {
		if ctx.Err() != nil {
			return ImportResult{}, ctx.Err()
		}
		return ImportResult{}, err
	}
	// Best effort close. Errors in Close() for read-only bodies are rarely actionable here.
	defer func() { _ = body.Close() }()

	return s.Import(ctx, body, format, createdBy)
}
