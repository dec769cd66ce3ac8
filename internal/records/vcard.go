package records

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
)

// vcardDateLayouts are the BDAY forms that carry a year. Year-less
// birthdays (--MMDD) cannot be converted to a Hebrew date.
var vcardDateLayouts = []string{
	config.DateFormatISO,
	config.DateFormatFullBasic,
	config.DateFormatRFC3339,
	config.DateFormatFullT,
}

// ParseVCards reads a vCard stream and returns one Input per card with a
// usable name and a full birth date. Other cards are skipped and counted.
func ParseVCards(r io.Reader) ([]Input, int, error) {
	br := bufio.NewReader(io.LimitReader(r, config.MaxImportSize))
	if err := expectVCard(br); err != nil {
		return nil, 0, err
	}
	decoder := vcard.NewDecoder(br)

	var (
		out     []Input
		skipped int
	)
	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken card leaves the decoder unusable.
			if len(out) == 0 && skipped == 0 {
				return nil, 0, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompRecords,
				config.LogKeyError, err)
			skipped++
			break
		}

		bday := card.Get(vcard.FieldBirthday)
		if bday == nil || bday.Value == "" {
			skipped++
			continue
		}
		birth, ok := parseVCardDate(bday.Value)
		if !ok {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompRecords,
				config.LogKeyValue, bday.Value)
			skipped++
			continue
		}

		first, last := cardName(card)
		in := Input{FirstName: first, LastName: last, BirthDate: birth, Gender: cardGender(card)}
		if err := in.Validate(); err != nil {
			skipped++
			continue
		}
		out = append(out, in)
	}
	return out, skipped, nil
}

// expectVCard rejects a non-empty stream that does not open with
// BEGIN:VCARD. The decoder reports such input as an empty stream.
func expectVCard(br *bufio.Reader) error {
	head, err := br.Peek(config.VCardPeekBytes)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) == 0 {
		return nil
	}
	if len(head) < len(config.VCardBegin) || !bytes.EqualFold(head[:len(config.VCardBegin)], []byte(config.VCardBegin)) {
		return fmt.Errorf("%s: missing %s", config.ErrVCardParse, config.VCardBegin)
	}
	return nil
}

func parseVCardDate(value string) (engine.GregorianDate, bool) {
	for _, layout := range vcardDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return engine.DateOf(t), true
		}
	}
	return engine.GregorianDate{}, false
}

// cardName prefers the structured N property and falls back to splitting
// FN on its last space.
func cardName(card vcard.Card) (first, last string) {
	if n := card.Name(); n != nil && (n.GivenName != "" || n.FamilyName != "") {
		return n.GivenName, n.FamilyName
	}
	fn := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	if i := strings.LastIndex(fn, " "); i > 0 {
		return fn[:i], fn[i+1:]
	}
	return fn, ""
}

func cardGender(card vcard.Card) string {
	sex, _ := card.Gender()
	switch sex {
	case vcard.SexMale:
		return config.GenderMale
	case vcard.SexFemale:
		return config.GenderFemale
	}
	return ""
}
