package ai

import (
	"strings"
	"unicode"
)

// abbreviations whose trailing period does not end a sentence, lowercased
// and without the final period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "mt": {}, "vs": {}, "etc": {}, "no": {}, "vol": {}, "rev": {},
	"fig": {}, "al": {}, "inc": {}, "ltd": {}, "co": {}, "corp": {}, "dept": {},
	"est": {}, "approx": {}, "p": {}, "pp": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {},
	"sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
	"a.m": {}, "p.m": {}, "e.g": {}, "i.e": {}, "u.s": {}, "u.k": {}, "u.s.a": {},
}

// SplitSentences breaks text into sentences at ., ! or ? followed by
// whitespace and an uppercase letter, a digit or an opening quote. Periods
// of abbreviations, initials, decimals and ellipses never split. Whitespace
// runs inside a sentence are preserved.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	begin := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && isNonTerminalPeriod(runes, i) {
			continue
		}
		end, ok := sentenceEnd(runes, i)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(string(runes[begin:end])); s != "" {
			sentences = append(sentences, s)
		}
		begin = end
	}
	if begin < len(runes) {
		if s := strings.TrimSpace(string(runes[begin:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isNonTerminalPeriod(runes []rune, i int) bool {
	// ellipsis
	if (i > 0 && runes[i-1] == '.') || (i+1 < len(runes) && runes[i+1] == '.') {
		return true
	}
	// decimal number
	if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
		return true
	}

	token := wordBefore(runes, i)
	if token == "" {
		return false
	}
	if r := []rune(token); len(r) == 1 && unicode.IsLetter(r[0]) {
		return true
	}
	_, ok := abbreviations[strings.ToLower(token)]
	return ok
}

// wordBefore returns the word ending at i. Apostrophes stay inside the word.
func wordBefore(runes []rune, i int) string {
	j := i - 1
	for j >= 0 && inWord(runes[j]) {
		j--
	}
	return string(runes[j+1 : i])
}

func inWord(r rune) bool {
	switch {
	case unicode.IsSpace(r):
		return false
	case r == '\'' || r == '’':
		return true
	}
	return !isOpener(r) && !isCloser(r)
}

// sentenceEnd reports whether the punctuation at i closes a sentence and,
// if so, where the sentence ends (after any closing quotes or brackets).
func sentenceEnd(runes []rune, i int) (int, bool) {
	end := i + 1
	for end < len(runes) && isCloser(runes[end]) {
		end++
	}
	if end >= len(runes) {
		return end, true
	}
	if !unicode.IsSpace(runes[end]) {
		return 0, false
	}
	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return end, true
	}
	return end, startsSentence(runes[next:])
}

func startsSentence(runes []rune) bool {
	for _, r := range runes {
		if isOpener(r) {
			continue
		}
		return unicode.IsUpper(r) || unicode.IsDigit(r)
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '“', '‘':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’':
		return true
	}
	return false
}
