package segmenter

import (
	"unicode"
	"unicode/utf8"
)

// Thai codepoint classes used for orthographic cluster boundaries. A cluster
// is the smallest unit that can stand alone: leading vowels attach to the
// consonant that follows them, and combining vowels, tone marks, and
// thanthakhat never start a unit.

func isThai(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// isLeadingVowel reports the five vowels written before their consonant
// (เ แ โ ใ ไ).
func isLeadingVowel(r rune) bool {
	return r >= 0x0E40 && r <= 0x0E44
}

// isCombining reports marks that attach to the preceding consonant: upper
// and lower vowels, sara am, tone marks, thanthakhat, nikhahit, yamakkan.
func isCombining(r rune) bool {
	switch {
	case r == 0x0E31: // mai han-akat
		return true
	case r >= 0x0E33 && r <= 0x0E3A: // sara am..phinthu
		return true
	case r >= 0x0E47 && r <= 0x0E4E: // maitaikhu..yamakkan
		return true
	}
	return false
}

// nextCluster returns the byte offset one past the Thai orthographic cluster
// starting at offset. The caller guarantees text[offset] starts a Thai rune.
func nextCluster(text string, offset int) int {
	i := offset
	// Leading vowels bind to the next consonant cluster.
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLeadingVowel(r) {
			break
		}
		i += size
	}
	// Base character.
	if i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isThai(r) && !isCombining(r) {
			i += size
		}
	}
	// Trailing combining marks.
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isCombining(r) {
			break
		}
		i += size
	}
	if i == offset {
		// Defensive: never loop forever on unexpected input such as a
		// stray combining mark at the start of a run.
		_, size := utf8.DecodeRuneInString(text[offset:])
		return offset + size
	}
	return i
}

// scanRun returns the end offset of a maximal run starting at offset for
// which class(r) holds.
func scanRun(text string, offset int, class func(rune) bool) int {
	i := offset
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !class(r) {
			break
		}
		i += size
	}
	return i
}

func isLatinOrDigit(r rune) bool {
	return !isThai(r) && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// isOther matches punctuation and symbols that belong to no other class.
func isOther(r rune) bool {
	return !isThai(r) && !isLatinOrDigit(r) && !unicode.IsSpace(r)
}

func firstRuneAt(text string, i int) (rune, int) {
	r, size := utf8.DecodeRuneInString(text[i:])
	return r, size
}
