// Package textnorm expands chat abbreviations in message bodies.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultAbbreviations is the built-in lookup. Keys are lower case.
var DefaultAbbreviations = map[string]string{
	"aka":  "also known as",
	"bc":   "because",
	"brb":  "be right back",
	"btw":  "by the way",
	"idc":  "I don't care",
	"idk":  "I don't know",
	"ikr":  "I know right",
	"ily":  "I love you",
	"imo":  "in my opinion",
	"jk":   "just kidding",
	"lmao": "haha",
	"lol":  "haha",
	"nvm":  "never mind",
	"omg":  "oh my god",
	"pls":  "please",
	"rn":   "right now",
	"smh":  "shaking my head",
	"tbh":  "to be honest",
	"thx":  "thanks",
	"ttyl": "talk to you later",
	"u":    "you",
	"ur":   "your",
}

// Normalizer rewrites message bodies. Safe for concurrent use; the table is
// never mutated after New.
type Normalizer struct {
	table map[string]string
}

// New builds a Normalizer from the default table with overrides applied on
// top. Override keys are case-folded; an empty expansion removes the entry.
func New(overrides map[string]string) *Normalizer {
	table := make(map[string]string, len(DefaultAbbreviations)+len(overrides))
	for k, v := range DefaultAbbreviations {
		table[k] = v
	}
	for k, v := range overrides {
		k = strings.ToLower(k)
		if v == "" {
			delete(table, k)
			continue
		}
		table[k] = v
	}
	return &Normalizer{table: table}
}

// Normalize replaces every token whose lower-cased form is in the table.
// Tokens are runs of non-whitespace in the unicode.IsSpace sense, so NBSP and
// ideographic spaces separate words. Punctuation stays glued to the word
// ("lol!" is not expanded) and separators are preserved verbatim.
func (n *Normalizer) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for len(text) > 0 {
		i := spanEnd(text, true)
		b.WriteString(text[:i])
		text = text[i:]
		j := spanEnd(text, false)
		tok := text[:j]
		if exp, ok := n.table[strings.ToLower(tok)]; ok {
			tok = exp
		}
		b.WriteString(tok)
		text = text[j:]
	}
	return b.String()
}

// spanEnd returns the byte length of the leading run of runes whose
// unicode.IsSpace result equals space.
func spanEnd(s string, space bool) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) != space {
			return i
		}
		i += size
	}
	return len(s)
}

// Len reports the number of table entries.
func (n *Normalizer) Len() int { return len(n.table) }
