package app_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/hebday/internal/app"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
)

// TestI18nIntegrity ensures every translation key used by the code exists in
// each locale file.
func TestI18nIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyEvtSummaryAge,
		config.TKeyEvtSummaryBirth,
		config.TKeyEvtDescription,
		config.TKeyLinkHebrew,
		config.TKeyLinkGregorian,
		config.TKeyPending,
		config.TKeyStatusToday,
		config.TKeyStatusTodayZero,
	}

	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err)

			var messages map[string]any
			require.NoError(t, json.Unmarshal(content, &messages), "JSON must be valid")

			for _, k := range keys {
				assert.Containsf(t, messages, k, "key %q missing in %s", k, lang)
			}
			for k := range messages {
				if strings.HasPrefix(k, "_") {
					continue
				}
				assert.Containsf(t, keys, k, "key %q in %s is never used", k, lang)
			}
		})
	}
}

func TestTranslator_Languages(t *testing.T) {
	tr := app.NewTranslator("")
	assert.ElementsMatch(t, config.SupportedLanguages, tr.Languages)
	assert.Equal(t, "en", tr.Tag.String())
}

func TestTranslator_Messages(t *testing.T) {
	birth := engine.GregorianDate{Year: 1990, Month: 3, Day: 15}

	tests := []struct {
		lang        string
		summary     string
		birthSum    string
		description string
		zero        string
		one         string
		many        string
		labels      [2]string
	}{
		{
			lang:        "en",
			summary:     "David Levi's Hebrew birthday (18 Adar II 5784, 34)",
			birthSum:    "David Levi is born (18 Adar 5750)",
			description: "Born on 18 Adar 5750 (1990-03-15)",
			zero:        "No Hebrew birthday today",
			one:         "1 Hebrew birthday today",
			many:        "3 Hebrew birthdays today",
			labels:      [2]string{"Hebrew birthday", "Birthday"},
		},
		{
			lang:        "he",
			summary:     "יום הולדת עברי של David Levi (18 Adar II 5784, 34)",
			birthSum:    "David Levi נולד/ה (18 Adar 5750)",
			description: "נולד/ה ב־18 Adar 5750 (1990-03-15)",
			zero:        "אין ימי הולדת עבריים היום",
			one:         "יום הולדת עברי אחד היום",
			many:        "3 ימי הולדת עבריים היום",
			labels:      [2]string{config.FallbackLinkHebrew, config.FallbackLinkGreg},
		},
		{
			// Unknown languages fall back to English.
			lang:        "xx",
			summary:     "David Levi's Hebrew birthday (18 Adar II 5784, 34)",
			birthSum:    "David Levi is born (18 Adar 5750)",
			description: "Born on 18 Adar 5750 (1990-03-15)",
			zero:        "No Hebrew birthday today",
			one:         "1 Hebrew birthday today",
			many:        "3 Hebrew birthdays today",
			labels:      [2]string{"Hebrew birthday", "Birthday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			tr := app.NewTranslator(tt.lang)

			assert.Equal(t, tt.summary, tr.Summary("David Levi", "18 Adar II 5784", 34))
			assert.Equal(t, tt.birthSum, tr.Summary("David Levi", "18 Adar 5750", 0))
			assert.Equal(t, tt.description, tr.Description("18 Adar 5750", birth))
			assert.Equal(t, tt.zero, tr.StatusToday(0))
			assert.Equal(t, tt.one, tr.StatusToday(1))
			assert.Equal(t, tt.many, tr.StatusToday(3))

			labels := tr.LinkLabels()
			assert.Equal(t, tt.labels[0], labels.Hebrew)
			assert.Equal(t, tt.labels[1], labels.Gregorian)
			assert.NotEqual(t, config.TKeyPending, tr.Pending())
		})
	}
}

func TestTranslator_MissingKey(t *testing.T) {
	tr := app.NewTranslator("en")
	assert.Equal(t, "no_such_key", tr.Msg("no_such_key"))

	var empty *app.Translator
	assert.Equal(t, "Hebrew birthday: A (x, 3)", empty.Summary("A", "x", 3))
	assert.Equal(t, "Hebrew birthday: A (x, birth)", empty.Summary("A", "x", 0))
	assert.Equal(t, config.FallbackPending, empty.Pending())
}
