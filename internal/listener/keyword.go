package listener

import (
	"SimBot/internal/core/domain"
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MatchMode selects how a keyword is compared with the event text.
type MatchMode int

const (
	MatchEquals MatchMode = iota
	MatchEqualsIgnoreCase
	MatchStartsWith
	MatchEndsWith
	MatchContains
	// MatchRegex requires the whole text to match the pattern.
	MatchRegex
	// MatchRegexContains requires the pattern to occur anywhere in the text.
	MatchRegexContains
)

// Keyword matches the text content of an event.
type Keyword struct {
	mode  MatchMode
	text  string
	regex *regexp.Regexp
}

// NewKeyword compiles a keyword. Regex modes fail on invalid patterns.
func NewKeyword(mode MatchMode, text string) (*Keyword, error) {
	k := &Keyword{mode: mode, text: text}
	switch mode {
	case MatchRegex:
		re, err := regexp.Compile(`^(?:` + text + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword pattern %q: %w", text, err)
		}
		k.regex = re
	case MatchRegexContains:
		re, err := regexp.Compile(text)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword pattern %q: %w", text, err)
		}
		k.regex = re
	}
	return k, nil
}

// MustKeyword is NewKeyword that panics on invalid patterns.
func MustKeyword(mode MatchMode, text string) *Keyword {
	k, err := NewKeyword(mode, text)
	if err != nil {
		panic(err)
	}
	return k
}

// Match reports whether s satisfies the keyword.
func (k *Keyword) Match(s string) bool {
	switch k.mode {
	case MatchEquals:
		return s == k.text
	case MatchEqualsIgnoreCase:
		return strings.EqualFold(s, k.text)
	case MatchStartsWith:
		return strings.HasPrefix(s, k.text)
	case MatchEndsWith:
		return strings.HasSuffix(s, k.text)
	case MatchContains:
		return strings.Contains(s, k.text)
	case MatchRegex, MatchRegexContains:
		return k.regex.MatchString(s)
	default:
		return false
	}
}

// WithKeyword filters on the derived text content. Events without text
// never match.
func WithKeyword(k *Keyword) Option {
	return WithFilter(func(_ context.Context, pctx *domain.ProcessingContext) bool {
		text, ok := pctx.TextContent()
		return ok && k.Match(strings.TrimSpace(text))
	})
}

// WithCommand filters message events carrying the given bot command.
func WithCommand(command string) Option {
	return WithFilter(func(_ context.Context, pctx *domain.ProcessingContext) bool {
		msg, ok := pctx.Event().(*domain.MessageEvent)
		return ok && msg.Command == command
	})
}
