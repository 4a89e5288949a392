package exchange

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const binanceMiniTickerURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"

type binanceMiniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
}

// collectBinance keeps the price cache fed from the all-market
// mini-ticker stream, reconnecting with backoff on failure.
func (f *Feed) collectBinance(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.consumeBinanceStream(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, binanceMiniTickerURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Msg("connected market data feed")

	conn.SetReadLimit(1 << 22)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var tickers []binanceMiniTicker
		if err := json.Unmarshal(message, &tickers); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}

		for _, tk := range tickers {
			px, err := strconv.ParseFloat(tk.Close, 64)
			if err != nil || px <= 0 {
				continue
			}
			open, err := strconv.ParseFloat(tk.Open, 64)
			changePct := 0.0
			if err == nil && open > 0 {
				changePct = (px - open) / open * 100
			}
			f.setPrice(tk.Symbol, px, changePct)
		}
	}
}
