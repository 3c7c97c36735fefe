package numbers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Token is a number found in text or in a json document.
type Token struct {
	// Text is the token as it appeared.
	Text  string          `json:"text"`
	Value decimal.Decimal `json:"value"`
	// Percent is set when the token was directly followed by a percent sign.
	Percent bool `json:"percent,omitempty"`
	// Path is the gjson path of the value the token was found in, empty for
	// plain text.
	Path string `json:"path,omitempty"`
}

func (t Token) String() string {
	s := t.Value.String()
	if t.Percent {
		s += "%"
	}
	if t.Path != "" {
		return fmt.Sprintf("%s=%s", t.Path, s)
	}
	return s
}

// grouped thousands ("1 234,5", "1.234.567", "12,345.6") or plain numbers ("-0.25", "3,512")
var numberRegex = regexp.MustCompile(
	`[-+\x{2212}]?(?:\d{1,3}(?:[ \x{00a0}\x{202f}.,']\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)(\s?%)?`,
)

// FromText returns the numeric tokens of s in order of appearance. Numbers
// glued to letters ("3M", "EUR3") are not tokens. A lone comma is read as a
// decimal separator.
func FromText(s string) []Token {
	var out []Token
	for _, loc := range numberRegex.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[0], loc[1]
		percent := loc[2] >= 0
		numEnd := end
		if percent {
			numEnd = loc[2]
		}

		// a sign glued to a word is a separator: "2024-01-31" is three
		// numbers and "EUR-3.5" is a positive 3.5
		if r, size := utf8.DecodeRuneInString(s[start:]); isSign(r) && start > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(prev) {
				start += size
			}
		}
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && isWordRune(r) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(s[numEnd:]); !percent && numEnd < len(s) && unicode.IsLetter(r) {
			continue
		}

		text := s[start:numEnd]

		value, err := Parse(text)
		if err != nil {
			continue
		}
		out = append(out, Token{
			Text:    strings.TrimSpace(s[start:end]),
			Value:   value,
			Percent: percent,
		})
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isSign(r rune) bool {
	return r == '-' || r == '+' || r == '−'
}

// Parse normalises a number written with any common grouping and decimal
// separator. When both ',' and '.' appear the last one is the decimal
// separator, a separator that appears more than once is grouping.
func Parse(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse number %q: %w", text, err)
	}
	return value, nil
}

// FromJSON walks a json document and returns every numeric leaf and every
// number found inside string leaves, each tagged with its gjson path.
func FromJSON(body []byte) ([]Token, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("numbers: invalid json")
	}
	var out []Token
	walk(gjson.ParseBytes(body), "", &out)
	return out, nil
}

func walk(node gjson.Result, path string, out *[]Token) {
	switch node.Type {
	case gjson.Number:
		value, err := decimal.NewFromString(node.Raw)
		if err != nil {
			value = decimal.NewFromFloat(node.Float())
		}
		*out = append(*out, Token{Text: node.Raw, Value: value, Path: path})
	case gjson.String:
		for _, tok := range FromText(node.Str) {
			tok.Path = path
			*out = append(*out, tok)
		}
	case gjson.JSON:
		if node.IsArray() {
			for i, child := range node.Array() {
				walk(child, joinPath(path, fmt.Sprint(i)), out)
			}
			return
		}
		node.ForEach(func(key, value gjson.Result) bool {
			walk(value, joinPath(path, escapeKey(key.String())), out)
			return true
		})
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

var pathEscaper = strings.NewReplacer(
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
)

func escapeKey(key string) string {
	return pathEscaper.Replace(key)
}
