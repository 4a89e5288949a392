// Package parser turns raw alert text into canonical signals. Each
// parser implements a fixed line-oriented grammar for one alert feed;
// none of them keeps state between calls.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/topgrade691028/binkiller/internal/signal"
)

// ErrNotRecognized reports that the text is not in this parser's grammar
// at all, so another parser may still claim it.
var ErrNotRecognized = errors.New("message not recognized")

// ParseError reports a mandatory field that is absent or malformed in a
// message the parser otherwise recognized.
type ParseError struct {
	Parser string
	Field  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parser: %s missing or malformed", e.Parser, e.Field)
}

// Parser converts one alert format into a Signal.
type Parser interface {
	Name() string
	Parse(text string) (*signal.Signal, error)
}

// Parse runs the text through each parser in order and returns the first
// successful result. ErrNotRecognized from a parser moves on to the
// next; any other error is final.
func Parse(text string, parsers ...Parser) (*signal.Signal, error) {
	for _, p := range parsers {
		sig, err := p.Parse(text)
		if errors.Is(err, ErrNotRecognized) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return sig, nil
	}
	return nil, ErrNotRecognized
}

// findLine returns the remainder of the first line starting with key,
// with commas stripped and whitespace trimmed. ok is false when no line
// carries the key.
func findLine(lines []string, key string) (string, bool) {
	for _, line := range lines {
		if strings.HasPrefix(line, key) {
			value := strings.TrimPrefix(line, key)
			value = strings.ReplaceAll(value, ",", "")
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// splitValues parses a dash-separated list of floats ("85.50 - 86.5 - 88").
func splitValues(value string) []float64 {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "-")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func parsePrice(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// stripOnce removes the first occurrence of each token from s.
func stripOnce(s string, tokens ...string) string {
	for _, tok := range tokens {
		s = strings.Replace(s, tok, "", 1)
	}
	return s
}
