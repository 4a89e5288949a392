package parser

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/topgrade691028/binkiller/internal/signal"
)

// Cornix parses the follower-bot alert format: no signal id, a flat
// TARGETS list, and a single leverage line.
//
//	COIN: $BTC/USDT
//	Direction: LONG
//	Exchange: Binance Futures
//	Leverage: 5x
//	ENTRY: 41,180 - 42,221 - 42,900
//	TARGETS: 43,200 - 43,600 - 44,100 - 44,800 - 45,800
//	STOP LOSS: 39,358
type Cornix struct{}

// Name identifies the parser in logs and metrics.
func (Cornix) Name() string { return "cornix" }

// Parse extracts a Signal, generating a fresh id since this feed does
// not number its alerts.
func (p Cornix) Parse(text string) (*signal.Signal, error) {
	lines := strings.Split(text, "\n")

	coinValue, ok := findLine(lines, "COIN:")
	if !ok {
		return nil, ErrNotRecognized
	}
	symbol := stripOnce(coinValue, "$", "/")
	if symbol == "" {
		return nil, &ParseError{Parser: p.Name(), Field: "coin"}
	}

	direction, ok := findLine(lines, "Direction:")
	if !ok || direction == "" {
		return nil, &ParseError{Parser: p.Name(), Field: "direction"}
	}

	leverage := p.parseLeverage(lines)

	entryValue, ok := findLine(lines, "ENTRY:")
	if !ok {
		return nil, &ParseError{Parser: p.Name(), Field: "entry"}
	}
	entry := splitValues(entryValue)
	if len(entry) == 0 {
		return nil, &ParseError{Parser: p.Name(), Field: "entry"}
	}

	targets := p.parseTargets(lines)
	if len(targets.All()) == 0 {
		return nil, &ParseError{Parser: p.Name(), Field: "targets"}
	}

	stopValue, ok := findLine(lines, "STOP LOSS:")
	if !ok {
		return nil, &ParseError{Parser: p.Name(), Field: "stop loss"}
	}
	stopLoss, err := parsePrice(stopValue)
	if err != nil {
		return nil, &ParseError{Parser: p.Name(), Field: "stop loss"}
	}

	// A 3-value entry band carries its optimum in the middle; pull it
	// out and keep the outer bounds. Otherwise the optimum is the
	// midpoint of the band.
	ote := (entry[0] + entry[len(entry)-1]) / 2
	if len(entry) == 3 {
		ote = entry[1]
		entry = []float64{entry[0], entry[2]}
	}

	return &signal.Signal{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Direction:    direction,
		Leverage:     leverage,
		Entry:        entry,
		OptimalEntry: ote,
		Targets:      targets,
		StopLoss:     stopLoss,
		CreatedAt:    time.Now(),
	}, nil
}

// parseLeverage reads "Leverage: 5x" into {5}. A missing line defaults
// to {1}. This feed advertises 3x alerts as tradable up to 5x, so 3
// expands to {3,5}.
func (p Cornix) parseLeverage(lines []string) []float64 {
	value, ok := findLine(lines, "Leverage:")
	if !ok {
		return []float64{1}
	}
	lev, err := parsePrice(strings.Replace(value, "x", "", 1))
	if err != nil || lev <= 0 {
		return []float64{1}
	}
	leverage := []float64{lev}
	if lev == 3 {
		leverage = append(leverage, 5)
	}
	return leverage
}

// parseTargets prefers the flat TARGETS line, splitting it into five
// short-term values and the remainder as mid term; labeled tier lines
// are the fallback. The long tier is never populated by this feed.
func (p Cornix) parseTargets(lines []string) signal.Targets {
	if flat, ok := findLine(lines, "TARGETS:"); ok {
		values := splitValues(flat)
		if len(values) > 0 {
			split := len(values)
			if split > 5 {
				split = 5
			}
			return signal.Targets{Short: values[:split], Mid: values[split:]}
		}
	}

	short, _ := findLine(lines, "Short Term:")
	mid, _ := findLine(lines, "Mid Term:")
	return signal.Targets{
		Short: splitValues(short),
		Mid:   splitValues(mid),
	}
}
