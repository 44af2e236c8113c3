package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rangeTrader/internal/engine"
	"rangeTrader/internal/model"
)

const (
	DefaultRPCURL     = "https://polygon-rpc.com"
	DefaultRouter     = "0xE592427A0AEce92De3Edee1F18E0157C05861564"
	DefaultBaseToken  = "0x7324452980a5CeaD3EaDf1FA92c759390751cA13"
	DefaultQuoteToken = "0xc2132D05D31c914a87C6611C10748AEb04B58e8F"
)

// legacyEnv maps config keys to the plain environment names older deployments
// use. The TRADER_ prefixed name always wins.
var legacyEnv = map[string][]string{
	"rpc":         {"RPC_URL"},
	"private-key": {"PRIVATE_KEY"},
	"pool":        {"POOL_ADDRESS"},
	"router":      {"UNISWAP_ROUTER_ADDRESS"},
	"base-token":  {"BASE_TOKEN_ADDRESS", "TVA_TOKEN_ADDRESS"},
	"quote-token": {"QUOTE_TOKEN_ADDRESS", "USDT_TOKEN_ADDRESS"},
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	PrivateKey   string
	Pool         string
	Router       string
	BaseToken    string
	QuoteToken   string
	Fee          uint32
	SellTrigger  string
	BuyTrigger   string
	TargetLow    string
	TargetHigh   string
	AmountMin    int64
	AmountMax    int64
	IntervalMin  time.Duration
	IntervalMax  time.Duration
	SwapDeadline time.Duration
	GasLimit     uint64
	MaxRetries   int
	RetryBackoff time.Duration
	Journal      string
	PGDSN        string
	DryRun       bool
	LogLevel     string
}

// Load merges a dotenv file, config file, environment variables, and flags
// into Config. An empty envFile loads ./.env when present.
func Load(cfgFile, envFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envKey := "TRADER_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("router", DefaultRouter)
	v.SetDefault("base-token", DefaultBaseToken)
	v.SetDefault("quote-token", DefaultQuoteToken)
	v.SetDefault("fee", 0)
	v.SetDefault("sell-trigger", "0.054")
	v.SetDefault("buy-trigger", "0.047")
	v.SetDefault("target-low", "0.049")
	v.SetDefault("target-high", "0.051")
	v.SetDefault("amount-min", 100)
	v.SetDefault("amount-max", 1000)
	v.SetDefault("interval-min", 30*time.Second)
	v.SetDefault("interval-max", 90*time.Second)
	v.SetDefault("swap-deadline", 10*time.Minute)
	v.SetDefault("gas-limit", uint64(500000))
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:       strings.TrimSpace(v.GetString("rpc")),
		PrivateKey:   strings.TrimSpace(v.GetString("private-key")),
		Pool:         strings.TrimSpace(v.GetString("pool")),
		Router:       strings.TrimSpace(v.GetString("router")),
		BaseToken:    strings.TrimSpace(v.GetString("base-token")),
		QuoteToken:   strings.TrimSpace(v.GetString("quote-token")),
		Fee:          v.GetUint32("fee"),
		SellTrigger:  v.GetString("sell-trigger"),
		BuyTrigger:   v.GetString("buy-trigger"),
		TargetLow:    v.GetString("target-low"),
		TargetHigh:   v.GetString("target-high"),
		AmountMin:    v.GetInt64("amount-min"),
		AmountMax:    v.GetInt64("amount-max"),
		IntervalMin:  v.GetDuration("interval-min"),
		IntervalMax:  v.GetDuration("interval-max"),
		SwapDeadline: v.GetDuration("swap-deadline"),
		GasLimit:     v.GetUint64("gas-limit"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Journal:      v.GetString("journal"),
		PGDSN:        v.GetString("pg-dsn"),
		DryRun:       v.GetBool("dry-run"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

func loadDotenv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Settings is the validated, typed form of Config.
type Settings struct {
	RPCURL       string
	Pool         common.Address
	Router       common.Address
	BaseToken    common.Address
	QuoteToken   common.Address
	Fee          uint32
	Engine       engine.Config
	IntervalMin  time.Duration
	IntervalMax  time.Duration
	SwapDeadline time.Duration
	GasLimit     uint64
	MaxRetries   int
	RetryBackoff time.Duration
	DryRun       bool
}

// Resolve validates the loaded values. Every failure is a ConfigurationError.
// The private key is parsed separately so that read-only commands do not need it.
func (c Config) Resolve() (Settings, error) {
	if c.RPCURL == "" {
		return Settings{}, model.NewConfigurationError("rpc url is required")
	}
	if c.Pool == "" {
		return Settings{}, model.NewConfigurationError("pool address is required")
	}

	addrs, err := ParseAddresses(map[string]string{
		"pool":        c.Pool,
		"router":      c.Router,
		"base-token":  c.BaseToken,
		"quote-token": c.QuoteToken,
	})
	if err != nil {
		return Settings{}, err
	}
	if addrs["base-token"] == addrs["quote-token"] {
		return Settings{}, model.NewConfigurationError("base and quote token must differ")
	}

	thresholds, err := parseDecimals(map[string]string{
		"sell-trigger": c.SellTrigger,
		"buy-trigger":  c.BuyTrigger,
		"target-low":   c.TargetLow,
		"target-high":  c.TargetHigh,
	})
	if err != nil {
		return Settings{}, err
	}

	engineCfg := engine.Config{
		SellTrigger: thresholds["sell-trigger"],
		BuyTrigger:  thresholds["buy-trigger"],
		TargetLow:   thresholds["target-low"],
		TargetHigh:  thresholds["target-high"],
		AmountMin:   c.AmountMin,
		AmountMax:   c.AmountMax,
	}
	if err := engineCfg.Validate(); err != nil {
		return Settings{}, err
	}

	if c.IntervalMin <= 0 {
		return Settings{}, model.NewConfigurationError("interval-min must be positive, got %s", c.IntervalMin)
	}
	if c.IntervalMax < c.IntervalMin {
		return Settings{}, model.NewConfigurationError("interval-max %s below interval-min %s", c.IntervalMax, c.IntervalMin)
	}
	if c.SwapDeadline <= 0 {
		return Settings{}, model.NewConfigurationError("swap-deadline must be positive, got %s", c.SwapDeadline)
	}
	if c.GasLimit == 0 {
		return Settings{}, model.NewConfigurationError("gas-limit must be positive")
	}
	if c.MaxRetries < 0 {
		return Settings{}, model.NewConfigurationError("max-retries must not be negative, got %d", c.MaxRetries)
	}

	return Settings{
		RPCURL:       c.RPCURL,
		Pool:         addrs["pool"],
		Router:       addrs["router"],
		BaseToken:    addrs["base-token"],
		QuoteToken:   addrs["quote-token"],
		Fee:          c.Fee,
		Engine:       engineCfg,
		IntervalMin:  c.IntervalMin,
		IntervalMax:  c.IntervalMax,
		SwapDeadline: c.SwapDeadline,
		GasLimit:     c.GasLimit,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		DryRun:       c.DryRun,
	}, nil
}

// ParseAddresses converts named hex addresses into common.Address, rejecting
// malformed and zero addresses.
func ParseAddresses(inputs map[string]string) (map[string]common.Address, error) {
	out := make(map[string]common.Address, len(inputs))
	for name, input := range inputs {
		input = strings.TrimSpace(input)
		if !common.IsHexAddress(input) {
			return nil, model.NewConfigurationError("invalid %s address: %q", name, input)
		}
		addr := common.HexToAddress(input)
		if addr == (common.Address{}) {
			return nil, model.NewConfigurationError("%s address must not be zero", name)
		}
		out[name] = addr
	}
	return out, nil
}

func parseDecimals(inputs map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(inputs))
	for name, input := range inputs {
		d, err := decimal.NewFromString(strings.TrimSpace(input))
		if err != nil {
			return nil, model.NewConfigurationError("invalid %s %q: %v", name, input, err)
		}
		out[name] = d
	}
	return out, nil
}
