package tokenizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Options tune the normalisation applied after splitting.
type Options struct {
	// Stem reduces word tokens with the Snowball English stemmer so that
	// "running shoes" and "running shoe" collapse into one phrase.
	Stem bool `yaml:"stem" json:"stem"`
}

// Tokenizer splits search text into lowercase word tokens following
// Penn Treebank conventions. The zero value is ready to use.
type Tokenizer struct {
	opts Options
}

func New(opts Options) *Tokenizer {
	return &Tokenizer{opts: opts}
}

// Tokenize splits text with the default options.
func Tokenize(text string) []string {
	return (&Tokenizer{}).Tokenize(text)
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

func r(pattern, repl string) rule {
	return rule{re: regexp.MustCompile(pattern), repl: repl}
}

var (
	startingQuotes = []rule{
		r("([«“‘„]|`+)", " $1 "),
		r(`^"`, "``"),
		r("(``)", " $1 "),
		r(`([ (\[{<])("|'')`, "$1 `` "),
	}

	punctuation = []rule{
		r(`([^.])(\.)([\])}>"']*)\s*$`, "$1 $2 $3 "),
		r(`([:,])([^\d])`, " $1 $2"),
		r(`([:,])$`, " $1 "),
		r(`\.{2,}`, " $0 "),
		r(`[;@#$%&]`, " $0 "),
		r(`[?!]`, " $0 "),
		r(`([^'])' `, "$1 ' "),
		r(`[*]`, " $0 "),
	}

	parensBrackets = r(`[\][(){}<>]`, " $0 ")
	doubleDashes   = r(`--`, " -- ")

	endingQuotes = []rule{
		r(`([»”’])`, " $1 "),
		r(`''`, " '' "),
		r(`"`, " '' "),
		r(`([^' ])('[sS]|'[mM]|'[dD]|') `, "$1 $2 "),
		r(`([^' ])('ll|'LL|'re|'RE|'ve|'VE|n't|N'T) `, "$1 $2 "),
	}

	contractions = []rule{
		r(`(?i)\b(can)(not)\b`, " $1 $2 "),
		r(`(?i)\b(d)('ye)\b`, " $1 $2 "),
		r(`(?i)\b(gim)(me)\b`, " $1 $2 "),
		r(`(?i)\b(gon)(na)\b`, " $1 $2 "),
		r(`(?i)\b(got)(ta)\b`, " $1 $2 "),
		r(`(?i)\b(lem)(me)\b`, " $1 $2 "),
		r(`(?i)\b(more)('n)\b`, " $1 $2 "),
		r(`(?i)\b(wan)(na)\s`, " $1 $2 "),
		r(`(?i) ('t)(is)\b`, " $1 $2 "),
		r(`(?i) ('t)(was)\b`, " $1 $2 "),
	}
)

func apply(text string, rules ...rule) string {
	for _, rl := range rules {
		text = rl.re.ReplaceAllString(text, rl.repl)
	}
	return text
}

var sentenceBreak = regexp.MustCompile(`\.\s+`)

// sentences splits text after a period that is followed by whitespace and
// more text. Words with an inner period ("u.s.") and single letters
// ("j. crew") are treated as abbreviations and do not end a sentence.
func sentences(text string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		if m[1] == len(text) {
			break
		}
		fields := strings.Fields(text[start:m[0]])
		if len(fields) == 0 {
			continue
		}
		last := fields[len(fields)-1]
		if strings.Contains(last, ".") || utf8.RuneCountInString(last) < 2 {
			continue
		}
		out = append(out, text[start:m[0]+1])
		start = m[1]
	}
	return append(out, text[start:])
}

func words(text string) []string {
	text = apply(text, startingQuotes...)
	text = apply(text, punctuation...)
	text = apply(text, parensBrackets, doubleDashes)
	text = " " + text + " "
	text = apply(text, endingQuotes...)
	text = apply(text, contractions...)
	return strings.Fields(text)
}

// Tokenize returns the ordered tokens of text. Punctuation tokens are kept.
func (t *Tokenizer) Tokenize(text string) []string {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	lower := cases.Lower(language.Und)
	out := []string{}
	for _, sent := range sentences(text) {
		for _, f := range words(sent) {
			tok := lower.String(f)
			if t.opts.Stem && hasLetter(tok) {
				tok = snowballeng.Stem(tok, false)
			}
			out = append(out, tok)
		}
	}
	return out
}

func hasLetter(s string) bool {
	for _, c := range s {
		if unicode.IsLetter(c) {
			return true
		}
	}
	return false
}

// Coerce renders an arbitrary source value as text. A nil value is empty text.
func Coerce(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat keeps a trailing ".0" on whole numbers and switches to an
// exponent at or above 1e16 and below 1e-4: "3.0", "1e+16", "1e-05".
func formatFloat(x float64, bits int) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	if abs := math.Abs(x); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(x, 'e', -1, bits)
	}
	s := strconv.FormatFloat(x, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
