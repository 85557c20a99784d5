package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// APIKey is the exchange API key.
	APIKey string
	// SecretKey is the exchange secret key used for request signing.
	SecretKey string
	// ExchangeURL is the exchange REST endpoint.
	ExchangeURL string
	// QuoteAsset is the stablecoin quote asset traded against.
	QuoteAsset string
	// Markets optionally restricts trading to the provided markets.
	Markets []string
	// Strategy is the name of the signal policy to trade with.
	Strategy string
	// Interval is the trading candle interval.
	Interval string
	// BuyNotional is the quote notional used for entry buys.
	BuyNotional string
	// SkimNotional is the quote notional of the skim sell placed after a buy.
	SkimNotional string
	// WebhookURL is the notification webhook endpoint.
	WebhookURL string
	// DatabaseEndpoint is the trade journal endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the trade journal user.
	DatabaseUser string
	// DatabasePass is the trade journal user pass.
	DatabasePass string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
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
	if cfg.Strategy == "" {
		errs = errors.Join(errs, fmt.Errorf("strategy cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("apikey", &cfg.APIKey, "the exchange api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("secretkey", &cfg.SecretKey, "the exchange secret key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("exchangeurl", &cfg.ExchangeURL, "the exchange rest endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("quoteasset", &cfg.QuoteAsset, "the quote asset traded against")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("markets", &cfg.Markets, "the tracked markets")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("strategy", &cfg.Strategy, "the signal policy to trade with")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("interval", &cfg.Interval, "the trading candle interval")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("buynotional", &cfg.BuyNotional, "the entry buy notional")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("skimnotional", &cfg.SkimNotional, "the skim sell notional")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("webhookurl", &cfg.WebhookURL, "the notification webhook url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DatabaseEndpoint, "the trade journal endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DatabaseUser, "the trade journal user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DatabasePass, "the trade journal pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
