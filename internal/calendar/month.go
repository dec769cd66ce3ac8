package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// Month names a Hebrew month.
// Adar is the single Adar of a common year; AdarI and AdarII only exist in
// leap years. A Month value is therefore only meaningful together with a year.
type Month int

const (
	Nisan Month = iota + 1
	Iyyar
	Sivan
	Tamuz
	Av
	Elul
	Tishrei
	Cheshvan
	Kislev
	Tevet
	Shvat
	Adar
	AdarII
	AdarI
)

// ErrUnknownMonth is returned by ParseMonth for unrecognised names.
var ErrUnknownMonth = errors.New("unknown hebrew month")

// Transliterations follow the hebcal.com converter so oracle responses and
// locally computed dates compare equal.
var monthNames = map[Month]string{
	Nisan:    "Nisan",
	Iyyar:    "Iyyar",
	Sivan:    "Sivan",
	Tamuz:    "Tamuz",
	Av:       "Av",
	Elul:     "Elul",
	Tishrei:  "Tishrei",
	Cheshvan: "Cheshvan",
	Kislev:   "Kislev",
	Tevet:    "Tevet",
	Shvat:    "Sh'vat",
	Adar:     "Adar",
	AdarI:    "Adar I",
	AdarII:   "Adar II",
}

var hebrewMonthNames = map[Month]string{
	Nisan:    "ניסן",
	Iyyar:    "אייר",
	Sivan:    "סיון",
	Tamuz:    "תמוז",
	Av:       "אב",
	Elul:     "אלול",
	Tishrei:  "תשרי",
	Cheshvan: "חשון",
	Kislev:   "כסלו",
	Tevet:    "טבת",
	Shvat:    "שבט",
	Adar:     "אדר",
	AdarI:    "אדר א׳",
	AdarII:   "אדר ב׳",
}

// Accepted spellings, keyed by the lower-cased name with spaces, dashes and
// apostrophes removed.
var monthAliases = map[string]Month{
	"nisan":       Nisan,
	"nissan":      Nisan,
	"iyyar":       Iyyar,
	"iyar":        Iyyar,
	"sivan":       Sivan,
	"tamuz":       Tamuz,
	"tammuz":      Tamuz,
	"av":          Av,
	"elul":        Elul,
	"tishrei":     Tishrei,
	"tishri":      Tishrei,
	"cheshvan":    Cheshvan,
	"heshvan":     Cheshvan,
	"marcheshvan": Cheshvan,
	"kislev":      Kislev,
	"tevet":       Tevet,
	"teves":       Tevet,
	"shvat":       Shvat,
	"shevat":      Shvat,
	"adar":        Adar,
	"adari":       AdarI,
	"adar1":       AdarI,
	"adarii":      AdarII,
	"adar2":       AdarII,
}

// String returns the transliterated month name.
func (m Month) String() string {
	if name, ok := monthNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Month(%d)", int(m))
}

// Hebrew returns the month name in Hebrew script.
func (m Month) Hebrew() string {
	return hebrewMonthNames[m]
}

// Valid reports whether m is one of the named months.
func (m Month) Valid() bool {
	return m >= Nisan && m <= AdarI
}

// ExistsIn reports whether the month occurs in the given Hebrew year.
func (m Month) ExistsIn(year int) bool {
	switch m {
	case Adar:
		return !IsLeapYear(year)
	case AdarI, AdarII:
		return IsLeapYear(year)
	default:
		return m.Valid()
	}
}

// MarshalText encodes the month as its transliterated name. The zero Month
// encodes as an empty string.
func (m Month) MarshalText() ([]byte, error) {
	if m == 0 {
		return []byte{}, nil
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMonth, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts any spelling understood by ParseMonth, or empty text
// for the zero Month.
func (m *Month) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = 0
		return nil
	}
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMonth resolves a month name. It is lenient about case, spacing and
// apostrophes ("Sh'vat", "Adar 1", "ADAR-II").
func ParseMonth(name string) (Month, error) {
	key := strings.ToLower(name)
	key = strings.NewReplacer(" ", "", "-", "", "'", "", "’", "", "_", "").Replace(key)
	if m, ok := monthAliases[key]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
}

// ordinal maps a month onto the Nisan-based numbering used by the
// arithmetic (Nisan = 1 ... Adar/Adar I = 12, Adar II = 13).
func (m Month) ordinal() int {
	if m == AdarI {
		return int(Adar)
	}
	return int(m)
}

// monthAt is the inverse of ordinal for a given year.
func monthAt(year, ordinal int) Month {
	if ordinal == int(Adar) && IsLeapYear(year) {
		return AdarI
	}
	return Month(ordinal)
}

// NextMonth returns the month following m in year's civil order, which
// starts at Tishrei. After Elul comes Tishrei of the next year, reported with
// yearDelta 1.
func NextMonth(year int, m Month) (next Month, yearDelta int) {
	months := Months(year)
	for i, candidate := range months {
		if candidate == m && i+1 < len(months) {
			return months[i+1], 0
		}
	}
	return Tishrei, 1
}
