package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/shopspring/decimal"
	"github.com/tidemark/skimmer/service"
	"github.com/tidemark/skimmer/shared"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	interval, err := shared.ParseInterval(cfg.Interval)
	if err != nil {
		log.Printf("parsing interval: %v", err)
		return
	}

	buyNotional, err := decimal.NewFromString(cfg.BuyNotional)
	if err != nil {
		log.Printf("parsing buy notional: %v", err)
		return
	}

	skimNotional, err := decimal.NewFromString(cfg.SkimNotional)
	if err != nil {
		log.Printf("parsing skim notional: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.TraderConfig{
		APIKey:           cfg.APIKey,
		SecretKey:        cfg.SecretKey,
		ExchangeURL:      cfg.ExchangeURL,
		QuoteAsset:       cfg.QuoteAsset,
		Markets:          cfg.Markets,
		Strategy:         cfg.Strategy,
		Interval:         interval,
		BuyNotional:      buyNotional,
		SkimNotional:     skimNotional,
		WebhookURL:       cfg.WebhookURL,
		DatabaseEndpoint: cfg.DatabaseEndpoint,
		DatabaseUser:     cfg.DatabaseUser,
		DatabasePass:     cfg.DatabasePass,
		Cancel:           cancel,
	}
	trader, err := service.NewTrader(ctx, &traderCfg)
	if err != nil {
		log.Printf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
