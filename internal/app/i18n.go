package app

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders the user-facing strings of the calendar feed and the
// calendar links in the configured language.
type Translator struct {
	Languages []string
	Tag       language.Tag

	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// NewTranslator loads every embedded locale and selects lang. Unknown
// languages fall back to English.
func NewTranslator(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.Languages = append(t.Languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	t.SetLanguage(lang)
	return t
}

// SetLanguage switches the active language.
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	t.Tag = tag
	t.localizer = i18n.NewLocalizer(t.bundle, lang, config.DefaultLanguage)
}

// Msg translates key, returning the key itself when it is missing.
func (t *Translator) Msg(key string) string {
	msg, err := t.localize(&i18n.LocalizeConfig{MessageID: key})
	if err != nil {
		return key
	}
	return msg
}

func (t *Translator) localize(lc *i18n.LocalizeConfig) (string, error) {
	if t == nil || t.localizer == nil {
		return "", errors.New(config.ErrLocNotInit)
	}
	msg, err := t.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err,
		)
		return "", err
	}
	return msg, nil
}

// Summary is the title of a feed event. Age 0 is the birth itself.
func (t *Translator) Summary(name, hebrew string, age int) string {
	data := map[string]any{"Name": name, "Hebrew": hebrew, "Age": age}
	key := config.TKeyEvtSummaryAge
	if age == 0 {
		key = config.TKeyEvtSummaryBirth
	}
	if msg, err := t.localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data}); err == nil && msg != "" {
		return msg
	}
	if age == 0 {
		return fmt.Sprintf(config.FallbackSummaryBirth, name, hebrew)
	}
	return fmt.Sprintf(config.FallbackSummaryAge, name, hebrew, age)
}

// Description is the body of a feed event.
func (t *Translator) Description(hebrew string, birth engine.GregorianDate) string {
	data := map[string]any{"Hebrew": hebrew, "Birth": birth.String()}
	if msg, err := t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyEvtDescription, TemplateData: data}); err == nil {
		return msg
	}
	return fmt.Sprintf(config.FallbackDescription, hebrew, birth)
}

// StatusToday describes how many Hebrew birthdays fall today.
func (t *Translator) StatusToday(count int) string {
	if count == 0 {
		if msg, err := t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyStatusTodayZero}); err == nil {
			return msg
		}
		return fmt.Sprintf(config.FallbackStatus, 0)
	}
	msg, err := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyStatusToday,
		TemplateData: map[string]any{"Count": count},
		PluralCount:  count,
	})
	if err != nil {
		return fmt.Sprintf(config.FallbackStatus, count)
	}
	return msg
}

// Pending is shown in place of dates that could not be computed.
func (t *Translator) Pending() string {
	if msg := t.Msg(config.TKeyPending); msg != config.TKeyPending {
		return msg
	}
	return config.FallbackPending
}

// LinkLabels returns the titles used in Google Calendar links.
func (t *Translator) LinkLabels() records.LinkLabels {
	labels := records.LinkLabels{
		Hebrew:    t.Msg(config.TKeyLinkHebrew),
		Gregorian: t.Msg(config.TKeyLinkGregorian),
	}
	if labels.Hebrew == config.TKeyLinkHebrew {
		labels.Hebrew = config.FallbackLinkHebrew
	}
	if labels.Gregorian == config.TKeyLinkGregorian {
		labels.Gregorian = config.FallbackLinkGreg
	}
	return labels
}
