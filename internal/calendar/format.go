package calendar

import "strings"

const (
	geresh    = '׳'
	gershayim = '״'
)

var (
	gematriaOnes     = []rune{0, 'א', 'ב', 'ג', 'ד', 'ה', 'ו', 'ז', 'ח', 'ט'}
	gematriaTens     = []rune{0, 'י', 'כ', 'ל', 'מ', 'נ', 'ס', 'ע', 'פ', 'צ'}
	gematriaHundreds = []rune{0, 'ק', 'ר', 'ש'}

	finalForms = map[rune]rune{'כ': 'ך', 'מ': 'ם', 'נ': 'ן', 'פ': 'ף', 'צ': 'ץ'}
)

// Gematria renders 1..999 in Hebrew numerals with geresh/gershayim.
// 15 and 16 are written ט״ו and ט״ז. When final is set the last letter
// takes its final form, as is customary for years.
func Gematria(n int, final bool) string {
	if n <= 0 {
		return ""
	}
	n %= 1000

	var letters []rune
	for n >= 400 {
		letters = append(letters, 'ת')
		n -= 400
	}
	if n >= 100 {
		letters = append(letters, gematriaHundreds[n/100])
		n %= 100
	}
	switch n {
	case 15:
		letters = append(letters, 'ט', 'ו')
	case 16:
		letters = append(letters, 'ט', 'ז')
	default:
		if n >= 10 {
			letters = append(letters, gematriaTens[n/10])
			n %= 10
		}
		if n > 0 {
			letters = append(letters, gematriaOnes[n])
		}
	}

	if final && len(letters) > 1 {
		last := len(letters) - 1
		if f, ok := finalForms[letters[last]]; ok {
			letters[last] = f
		}
	}

	var b strings.Builder
	if len(letters) == 1 {
		b.WriteRune(letters[0])
		b.WriteRune(geresh)
		return b.String()
	}
	b.WriteString(string(letters[:len(letters)-1]))
	b.WriteRune(gershayim)
	b.WriteRune(letters[len(letters)-1])
	return b.String()
}

// FormatHebrew renders a date in Hebrew script, e.g. "י״ח אדר תש״ן".
func FormatHebrew(d Date) string {
	return Gematria(d.Day, false) + " " + d.Month.Hebrew() + " " + Gematria(d.Year, true)
}
