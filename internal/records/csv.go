package records

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/store"
)

// csvHeader is the column order of an export.
var csvHeader = []string{
	config.CSVColID,
	config.CSVColFirstName,
	config.CSVColLastName,
	config.CSVColBirthday,
	config.CSVColAfterSunset,
	config.CSVColGender,
	config.CSVColHebrewDate,
	config.CSVColNextBirthday,
	config.CSVColAge,
	config.CSVColPlus2,
	config.CSVColPlus3,
	config.CSVColPlus4,
	config.CSVColPlus5,
	config.CSVColArchived,
	config.CSVColExportDate,
}

var requiredColumns = []string{config.CSVColFirstName, config.CSVColLastName, config.CSVColBirthday}

// ExportCSV writes records as UTF-8 CSV with a byte order mark so that
// spreadsheet applications detect the encoding of Hebrew text.
func ExportCSV(w io.Writer, all []store.Birthday, now time.Time) error {
	if _, err := io.WriteString(w, config.CSVBOM); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVWrite, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVWrite, err)
	}

	exported := now.Format(config.DateTimeFormatCSV)
	for _, b := range all {
		occ := b.Derived.Projection.Dates()
		row := []string{
			b.ID,
			b.FirstName,
			b.LastName,
			csvDate(b.BirthDate),
			yesNo(b.AfterSunset),
			b.Gender,
			b.Derived.Hebrew.Display,
			csvDate(b.Derived.NextBirthday),
			strconv.Itoa(b.Derived.GregorianAge),
			csvDate(nth(occ, 1)),
			csvDate(nth(occ, 2)),
			csvDate(nth(occ, 3)),
			csvDate(nth(occ, 4)),
			yesNo(b.Archived),
			exported,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%s: %w", config.ErrCSVWrite, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVWrite, err)
	}
	return nil
}

// ParseCSV reads import rows. Only First Name, Last Name and Birthday are
// required; Birthday accepts dd/MM/yyyy or yyyy-MM-dd. Rows that cannot be
// turned into a valid Input are skipped and counted.
func ParseCSV(r io.Reader) ([]Input, int, error) {
	br := bufio.NewReader(io.LimitReader(r, config.MaxImportSize))
	if bom, err := br.Peek(len(config.CSVBOM)); err == nil && string(bom) == config.CSVBOM {
		_, _ = br.Discard(len(config.CSVBOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%s: %s", config.ErrCSVHeader, strings.Join(requiredColumns, ", "))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrCSVRead, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("%s: %s", config.ErrCSVHeader, strings.Join(missing, ", "))
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		out     []Input
		skipped int
		line    = 1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", config.ErrCSVRead, err)
		}

		in := Input{
			FirstName:   field(row, config.CSVColFirstName),
			LastName:    field(row, config.CSVColLastName),
			AfterSunset: strings.EqualFold(field(row, config.CSVColAfterSunset), config.CSVYes),
			Gender:      parseGender(field(row, config.CSVColGender)),
		}
		birth, err := parseImportDate(field(row, config.CSVColBirthday))
		if err == nil {
			in.BirthDate = birth
			err = in.Validate()
		}
		if err != nil {
			skipped++
			slog.Debug(config.MsgSkippedRow,
				config.LogKeyComponent, config.CompRecords,
				config.LogKeyLine, line,
				config.LogKeyError, err,
			)
			continue
		}
		out = append(out, in)
	}
	return out, skipped, nil
}

// parseImportDate accepts the export format first, then ISO dates.
func parseImportDate(s string) (engine.GregorianDate, error) {
	for _, layout := range []string{config.DateFormatCSV, config.DateFormatISO} {
		if t, err := time.Parse(layout, s); err == nil {
			return engine.DateOf(t), nil
		}
	}
	return engine.GregorianDate{}, fmt.Errorf("%s: %q", config.ErrDateParse, s)
}

func parseGender(s string) string {
	switch strings.ToLower(s) {
	case config.GenderMale, "m":
		return config.GenderMale
	case config.GenderFemale, "f":
		return config.GenderFemale
	}
	return ""
}

func csvDate(d engine.GregorianDate) string {
	if d.IsZero() {
		return ""
	}
	return d.Time(time.UTC).Format(config.DateFormatCSV)
}

func yesNo(b bool) string {
	if b {
		return config.CSVYes
	}
	return config.CSVNo
}

func nth(dates []engine.GregorianDate, i int) engine.GregorianDate {
	if i < len(dates) {
		return dates[i]
	}
	return engine.GregorianDate{}
}
