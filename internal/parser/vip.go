package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/topgrade691028/binkiller/internal/signal"
)

const vipIDKey = "SIGNAL ID:"

// VIP parses the pinned-header alert format: a numeric signal id line,
// a COIN line carrying an optional leverage range, an explicit OTE, and
// three labeled target tiers.
//
//	📍SIGNAL ID: 0424📍
//	COIN: $FIL/USDT (3-5x)
//	Direction: LONG
//	ENTRY: 81 - 84.5
//	OTE: 82.77
//	Short Term: 85.50 - 86.5 - 88 - 90
//	Mid Term: 94 - 100 - 110 - 120
//	Long Term: 135 - 150
//	STOP LOSS: 75.67
type VIP struct{}

// Name identifies the parser in logs and metrics.
func (VIP) Name() string { return "vip" }

// Parse extracts a Signal or fails with ParseError on a recognized but
// incomplete message.
func (p VIP) Parse(text string) (*signal.Signal, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 || !strings.Contains(lines[0], vipIDKey) {
		return nil, ErrNotRecognized
	}

	id, err := p.parseID(lines[0])
	if err != nil {
		return nil, err
	}
	symbol, leverage, err := p.parseCoin(lines[1])
	if err != nil {
		return nil, err
	}

	direction, ok := findLine(lines, "Direction:")
	if !ok || direction == "" {
		return nil, &ParseError{Parser: p.Name(), Field: "direction"}
	}
	entryValue, ok := findLine(lines, "ENTRY:")
	if !ok {
		return nil, &ParseError{Parser: p.Name(), Field: "entry"}
	}
	entry := splitValues(entryValue)
	if len(entry) == 0 {
		return nil, &ParseError{Parser: p.Name(), Field: "entry"}
	}
	oteValue, ok := findLine(lines, "OTE:")
	if !ok {
		return nil, &ParseError{Parser: p.Name(), Field: "ote"}
	}
	ote, err := parsePrice(oteValue)
	if err != nil {
		return nil, &ParseError{Parser: p.Name(), Field: "ote"}
	}
	stopValue, ok := findLine(lines, "STOP LOSS:")
	if !ok {
		return nil, &ParseError{Parser: p.Name(), Field: "stop loss"}
	}
	stopLoss, err := parsePrice(stopValue)
	if err != nil {
		return nil, &ParseError{Parser: p.Name(), Field: "stop loss"}
	}

	targets := p.parseTargets(lines)
	if len(targets.All()) == 0 {
		return nil, &ParseError{Parser: p.Name(), Field: "targets"}
	}

	// The published OTE is never trusted above the middle of the band.
	var sum float64
	for _, v := range entry {
		sum += v
	}
	if mean := sum / float64(len(entry)); ote > mean {
		ote = mean
	}

	return &signal.Signal{
		ID:           id,
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

// parseID reads the numeric id out of "📍SIGNAL ID: 0424📍".
func (p VIP) parseID(line string) (string, error) {
	value := strings.ReplaceAll(line, "📍", "")
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, vipIDKey)
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return "", &ParseError{Parser: p.Name(), Field: "signal id"}
	}
	return strconv.Itoa(id), nil
}

// parseCoin reads "COIN: $FIL/USDT (3-5x)" into FILUSDT and {3,5}.
// A missing leverage group defaults to {1}.
func (p VIP) parseCoin(line string) (string, []float64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "COIN:" {
		return "", nil, &ParseError{Parser: p.Name(), Field: "coin"}
	}
	symbol := stripOnce(fields[1], "$", "/")

	leverage := []float64{1}
	if len(fields) >= 3 {
		if values := splitValues(stripOnce(fields[2], "(", "x", ")")); len(values) > 0 {
			leverage = values
		}
	}
	return symbol, leverage, nil
}

func (p VIP) parseTargets(lines []string) signal.Targets {
	short, _ := findLine(lines, "Short Term:")
	mid, _ := findLine(lines, "Mid Term:")
	long, _ := findLine(lines, "Long Term:")
	return signal.Targets{
		Short: splitValues(short),
		Mid:   splitValues(mid),
		Long:  splitValues(long),
	}
}
