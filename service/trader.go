package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/shopspring/decimal"
	"github.com/tidemark/skimmer/database"
	"github.com/tidemark/skimmer/execution"
	"github.com/tidemark/skimmer/fetch"
	"github.com/tidemark/skimmer/indicator"
	"github.com/tidemark/skimmer/notify"
	"github.com/tidemark/skimmer/position"
	"github.com/tidemark/skimmer/shared"
	"github.com/tidemark/skimmer/strategy"
)

const (
	// defaultCycleInterval is the wait between full polling passes.
	defaultCycleInterval = time.Minute * 5
	// defaultSymbolDelay is the fixed spacing between symbols within a cycle,
	// as rate limit courtesy.
	defaultSymbolDelay = time.Second * 2
	// candleFetchLimit is the candle history requested per trading interval fetch.
	candleFetchLimit = 250
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// APIKey is the exchange API key.
	APIKey string
	// SecretKey is the exchange secret key used for request signing.
	SecretKey string
	// ExchangeURL is the exchange REST endpoint.
	ExchangeURL string
	// QuoteAsset is the stablecoin quote asset traded against.
	QuoteAsset string
	// Markets optionally restricts trading to the provided markets. All
	// tradable markets are used when empty.
	Markets []string
	// Strategy is the name of the signal policy to trade with.
	Strategy string
	// Interval is the trading candle interval.
	Interval shared.Interval
	// BuyNotional is the quote notional used for entry buys.
	BuyNotional decimal.Decimal
	// SkimNotional is the quote notional of the skim sell placed after a buy.
	SkimNotional decimal.Decimal
	// WebhookURL is the notification webhook endpoint, optional.
	WebhookURL string
	// DatabaseEndpoint is the trade journal endpoint, optional.
	DatabaseEndpoint string
	// DatabaseUser is the trade journal user.
	DatabaseUser string
	// DatabasePass is the trade journal user pass.
	DatabasePass string
	// CycleInterval is the wait between full polling passes.
	CycleInterval time.Duration
	// SymbolDelay is the fixed spacing between symbols within a cycle.
	SymbolDelay time.Duration
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("exchange api key cannot be an empty string"))
	}
	if cfg.SecretKey == "" {
		errs = errors.Join(errs, fmt.Errorf("exchange secret key cannot be an empty string"))
	}
	if cfg.ExchangeURL == "" {
		errs = errors.Join(errs, fmt.Errorf("exchange url cannot be an empty string"))
	}
	if cfg.QuoteAsset == "" {
		errs = errors.Join(errs, fmt.Errorf("quote asset cannot be an empty string"))
	}
	if !cfg.BuyNotional.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("buy notional must be positive"))
	}
	if !cfg.SkimNotional.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("skim notional must be positive"))
	}
	if cfg.SkimNotional.GreaterThanOrEqual(cfg.BuyNotional) {
		errs = errors.Join(errs, fmt.Errorf("skim notional must be smaller than the buy notional"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Trader represents the polling trading service.
type Trader struct {
	cfg          *TraderConfig
	exchange     *fetch.ExchangeClient
	fetcher      shared.MarketFetcher
	policy       strategy.Policy
	positions    *position.Store
	engine       *execution.Engine
	notifier     *notify.Notifier
	symbols      []shared.Symbol
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewTrader initializes a new trader service.
func NewTrader(ctx context.Context, cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.CycleInterval == 0 {
		cfg.CycleInterval = defaultCycleInterval
	}
	if cfg.SymbolDelay == 0 {
		cfg.SymbolDelay = defaultSymbolDelay
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "trader").Logger()

	exchangeLogger := logger.With().Str("component", "exchange").Logger()
	exchange, err := fetch.NewExchangeClient(&fetch.ExchangeConfig{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		BaseURL:    cfg.ExchangeURL,
		QuoteAsset: cfg.QuoteAsset,
		Logger:     &exchangeLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating exchange client: %w", err)
	}

	policyLogger := logger.With().Str("component", "strategy").Logger()
	policy, err := strategy.NewPolicy(cfg.Strategy, &policyLogger)
	if err != nil {
		return nil, fmt.Errorf("creating signal policy: %w", err)
	}

	var notifier *notify.Notifier
	var notifyFunc func(market string, message string)
	if cfg.WebhookURL != "" {
		notifierLogger := logger.With().Str("component", "notifier").Logger()
		notifier = notify.NewNotifier(&notify.NotifierConfig{
			WebhookURL: cfg.WebhookURL,
			Logger:     &notifierLogger,
		})
		notifyFunc = notifier.Send
	}

	var persistTradeFunc func(ctx context.Context, trade *execution.Trade) error
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating trade journal: %w", err)
		}
		persistTradeFunc = db.PersistTrade
	}

	positions := position.NewStore()

	engineLogger := logger.With().Str("component", "execution").Logger()
	engine := execution.NewEngine(&execution.EngineConfig{
		Fetcher:      exchange,
		Placer:       exchange,
		Positions:    positions,
		Notify:       notifyFunc,
		PersistTrade: persistTradeFunc,
		BuyNotional:  cfg.BuyNotional,
		SkimNotional: cfg.SkimNotional,
		Logger:       &engineLogger,
	})

	trader := &Trader{
		cfg:          cfg,
		exchange:     exchange,
		fetcher:      exchange,
		policy:       policy,
		positions:    positions,
		engine:       engine,
		notifier:     notifier,
		jobScheduler: gocron.NewScheduler(time.UTC),
		logger:       &logger,
	}

	return trader, nil
}

// loadSymbols fetches the tradable symbol universe, restricted to the
// configured markets when provided. The universe is loaded once at startup.
func (t *Trader) loadSymbols(ctx context.Context) error {
	symbols, err := t.exchange.FetchSymbols(ctx)
	if err != nil {
		return err
	}

	if len(t.cfg.Markets) > 0 {
		tracked := make(map[string]bool, len(t.cfg.Markets))
		for _, market := range t.cfg.Markets {
			tracked[market] = true
		}

		filtered := symbols[:0]
		for idx := range symbols {
			if tracked[symbols[idx].Name] {
				filtered = append(filtered, symbols[idx])
			}
		}
		symbols = filtered
	}

	if len(symbols) == 0 {
		return fmt.Errorf("no tradable symbols found for quote asset %s", t.cfg.QuoteAsset)
	}

	t.symbols = symbols
	t.logger.Info().Msgf("tracking %d symbols with the %s policy", len(t.symbols), t.policy.Name())

	return nil
}

// warnExistingBalances logs symbols holding a base asset balance at startup.
// Position state is in-memory only and is not reconciled against the
// exchange, so balances from a previous run need operator attention.
func (t *Trader) warnExistingBalances(ctx context.Context) {
	for idx := range t.symbols {
		sym := &t.symbols[idx]
		balance := t.fetcher.FetchFreeBalance(ctx, sym.Base)
		if balance.IsPositive() {
			t.logger.Warn().Msgf("found existing %s balance of %s, it is not tracked as a position",
				sym.Base, balance.String())
		}
	}
}

// processSymbol runs one polling pass for the provided symbol: fetch candle
// data, evaluate the signal policy and hand any signal to the execution
// engine. Any failure skips the symbol for the cycle.
func (t *Trader) processSymbol(ctx context.Context, sym *shared.Symbol) {
	series, err := t.fetcher.FetchCandles(ctx, sym.Name, t.cfg.Interval, candleFetchLimit)
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientData) {
			t.logger.Debug().Msgf("skipping %s: %v", sym.Name, err)
			return
		}

		t.logger.Error().Msgf("fetching candles for %s: %v", sym.Name, err)
		return
	}

	data := &strategy.MarketData{Series: series}
	if t.policy.RequiresSwingData() {
		swing, err := t.fetcher.FetchCandles(ctx, sym.Name, shared.OneDay, indicator.SwingWindow)
		if err != nil {
			if errors.Is(err, shared.ErrInsufficientData) {
				t.logger.Debug().Msgf("skipping %s: %v", sym.Name, err)
				return
			}

			t.logger.Error().Msgf("fetching swing data for %s: %v", sym.Name, err)
			return
		}

		data.Swing = swing
	}

	signal, err := t.policy.Evaluate(data, t.positions.Open(sym.Name))
	if err != nil {
		t.logger.Error().Msgf("evaluating %s: %v", sym.Name, err)
		return
	}

	if signal.Action != shared.None {
		t.logger.Info().Msgf("%s signal for %s: %s", signal.Action.String(), sym.Name, signal.Trigger)
	}

	t.engine.HandleSignal(ctx, sym, signal)
}

// cycle runs one full polling pass over the tracked symbols. Symbols are
// processed strictly sequentially with a fixed delay between them.
func (t *Trader) cycle(ctx context.Context) {
	for idx := range t.symbols {
		if ctx.Err() != nil {
			return
		}

		t.processSymbol(ctx, &t.symbols[idx])

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.cfg.SymbolDelay):
		}
	}
}

// Run manages the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	err := t.loadSymbols(ctx)
	if err != nil {
		t.logger.Error().Msgf("loading symbols: %v", err)
		t.cfg.Cancel()
		return
	}

	t.warnExistingBalances(ctx)

	if t.notifier != nil {
		t.wg.Add(1)
		go func() {
			t.notifier.Run(ctx)
			t.wg.Done()
		}()
	}

	_, err = t.jobScheduler.Every(t.cfg.CycleInterval).SingletonMode().StartImmediately().
		Do(t.cycle, ctx)
	if err != nil {
		t.logger.Error().Msgf("scheduling polling cycle: %v", err)
		t.cfg.Cancel()
		return
	}

	t.jobScheduler.StartAsync()

	<-ctx.Done()
	t.jobScheduler.Stop()
	t.wg.Wait()
}
