package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"rangeTrader/internal/model"
)

const testPool = "0x45dDa9cb7c25131DF268515131f647d726f50608"

func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		prev, ok := os.LookupEnv(name)
		os.Unsetenv(name)
		t.Cleanup(func() {
			if ok {
				os.Setenv(name, prev)
			} else {
				os.Unsetenv(name)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "RPC_URL", "POOL_ADDRESS", "UNISWAP_ROUTER_ADDRESS", "TRADER_RPC", "TRADER_POOL")

	cfg, err := Load("", "", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != DefaultRPCURL || cfg.Router != DefaultRouter {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
	if cfg.SellTrigger != "0.054" || cfg.BuyTrigger != "0.047" || cfg.TargetLow != "0.049" || cfg.TargetHigh != "0.051" {
		t.Fatalf("threshold defaults mismatch: %+v", cfg)
	}
	if cfg.AmountMin != 100 || cfg.AmountMax != 1000 {
		t.Fatalf("amount defaults mismatch: %d-%d", cfg.AmountMin, cfg.AmountMax)
	}
	if cfg.SwapDeadline != 10*time.Minute || cfg.GasLimit != 500000 {
		t.Fatalf("swap defaults mismatch: %s %d", cfg.SwapDeadline, cfg.GasLimit)
	}
}

func TestLoadPrecedence(t *testing.T) {
	unsetEnv(t, "RPC_URL", "POOL_ADDRESS", "TRADER_RPC", "TRADER_POOL", "TRADER_AMOUNT_MAX")
	t.Setenv("RPC_URL", "https://legacy.example")
	t.Setenv("POOL_ADDRESS", testPool)
	t.Setenv("TRADER_AMOUNT_MAX", "700")

	cfgFile := filepath.Join(t.TempDir(), "trader.yaml")
	if err := os.WriteFile(cfgFile, []byte("amount-min: 200\nsell-trigger: \"0.06\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sell-trigger", "0.054", "")
	flags.Bool("dry-run", false, "")
	if err := flags.Parse([]string{"--dry-run"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cfgFile, "", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://legacy.example" || cfg.Pool != testPool {
		t.Fatalf("legacy env not honored: %+v", cfg)
	}
	if cfg.AmountMin != 200 || cfg.AmountMax != 700 {
		t.Fatalf("amount mismatch: %d-%d", cfg.AmountMin, cfg.AmountMax)
	}
	if cfg.SellTrigger != "0.06" {
		t.Fatalf("config file should beat unset flag default, got %s", cfg.SellTrigger)
	}
	if !cfg.DryRun {
		t.Fatalf("explicit flag not applied")
	}

	t.Setenv("TRADER_RPC", "https://prefixed.example")
	cfg, err = Load(cfgFile, "", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://prefixed.example" {
		t.Fatalf("prefixed env should win over legacy name, got %s", cfg.RPCURL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	unsetEnv(t, "POOL_ADDRESS", "TRADER_POOL", "PRIVATE_KEY", "TRADER_PRIVATE_KEY")

	envFile := filepath.Join(t.TempDir(), "trader.env")
	content := "POOL_ADDRESS=" + testPool + "\nPRIVATE_KEY=0xabc\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load("", envFile, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool != testPool || cfg.PrivateKey != "0xabc" {
		t.Fatalf("env file not applied: pool=%s key=%s", cfg.Pool, cfg.PrivateKey)
	}

	if _, err := Load("", filepath.Join(t.TempDir(), "missing.env"), nil); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func validConfig() Config {
	return Config{
		RPCURL:       DefaultRPCURL,
		Pool:         testPool,
		Router:       DefaultRouter,
		BaseToken:    DefaultBaseToken,
		QuoteToken:   DefaultQuoteToken,
		SellTrigger:  "0.054",
		BuyTrigger:   "0.047",
		TargetLow:    "0.049",
		TargetHigh:   "0.051",
		AmountMin:    100,
		AmountMax:    1000,
		IntervalMin:  time.Second,
		IntervalMax:  2 * time.Second,
		SwapDeadline: 10 * time.Minute,
		GasLimit:     500000,
		MaxRetries:   3,
	}
}

func TestResolve(t *testing.T) {
	settings, err := validConfig().Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings.Pool != common.HexToAddress(testPool) || settings.BaseToken != common.HexToAddress(DefaultBaseToken) {
		t.Fatalf("addresses mismatch: %+v", settings)
	}
	if !settings.Engine.SellTrigger.Equal(decimal.RequireFromString("0.054")) {
		t.Fatalf("sell trigger mismatch: %s", settings.Engine.SellTrigger)
	}
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing pool", func(c *Config) { c.Pool = "" }},
		{"short pool", func(c *Config) { c.Pool = "0x41e30899FBd500102E5CA0F58C7D9d3955e74b9" }},
		{"zero router", func(c *Config) { c.Router = "0x0000000000000000000000000000000000000000" }},
		{"same tokens", func(c *Config) { c.QuoteToken = c.BaseToken }},
		{"bad decimal", func(c *Config) { c.TargetLow = "abc" }},
		{"band inverted", func(c *Config) { c.TargetLow, c.TargetHigh = "0.051", "0.049" }},
		{"sell inside band", func(c *Config) { c.SellTrigger = "0.05" }},
		{"amount range", func(c *Config) { c.AmountMax = 10 }},
		{"interval range", func(c *Config) { c.IntervalMax = 0 }},
		{"zero interval", func(c *Config) { c.IntervalMin = 0 }},
		{"zero gas", func(c *Config) { c.GasLimit = 0 }},
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := cfg.Resolve()
			var cfgErr *model.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
