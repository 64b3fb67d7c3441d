// Package moderation masks censored words in message bodies before
// they are persisted or fanned out, so every copy of a message is
// already clean. Matching is resilient to casing, punctuation noise,
// and common leet substitutions.
package moderation

import (
	"bufio"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed words/*
var wordFiles embed.FS

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// forms of the censored words.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word), nil)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// NewDefaultModerator loads the embedded word lists.
func NewDefaultModerator(replacement rune) (*Moderator, error) {
	words, err := loadEmbeddedWords()
	if err != nil {
		return nil, err
	}
	return NewModerator(words, replacement)
}

// Censor replaces the characters of every forbidden match with the
// replacement rune, preserving spacing and punctuation around it.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	origIdx := make([]int, 0, len(origRunes))
	normalized := normalize(origRunes, func(i int) {
		origIdx = append(origIdx, i)
	})
	if len(normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(origIdx) {
			continue
		}
		// Mask the full original range covered by the match, noise
		// characters included.
		for i := origIdx[normStart]; i <= origIdx[normEnd-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes)
}

// normalize lowercases, undoes leet substitutions, and drops noise
// runes. The keep callback receives the original index of every rune
// that survives, letting Censor map matches back onto the input.
func normalize(input []rune, keep func(origIdx int)) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		clean := unleet(r)
		if unicode.IsPunct(clean) || unicode.IsSpace(clean) || unicode.IsSymbol(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
		if keep != nil {
			keep(i)
		}
	}
	return out
}

// unleet maps common leet-speak characters back to their letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func loadEmbeddedWords() ([]string, error) {
	entries, err := wordFiles.ReadDir("words")
	if err != nil {
		return nil, err
	}
	var words []string
	for _, entry := range entries {
		f, err := wordFiles.Open("words/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if word := strings.TrimSpace(scanner.Text()); word != "" {
				words = append(words, word)
			}
		}
		if err := scanner.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}
		_ = f.Close()
	}
	return words, nil
}
