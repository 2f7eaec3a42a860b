// Package config resolves the watcher's CLI flags and environment
// variables into a validated Config. Validation problems are
// accumulated so a misconfigured process reports everything wrong at
// once instead of failing one flag at a time.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"arbwatch/internal/models"
)

// OutputFormat selects the formatter's rendering mode.
type OutputFormat string

const (
	OutputTable   OutputFormat = "table"
	OutputJSON    OutputFormat = "json"
	OutputCompact OutputFormat = "compact"
)

// Config is the fully validated configuration for one watcher
// process.
type Config struct {
	Pair            models.TradingPair
	ThresholdPct    float64
	MaxPriceAgeMs   int
	MinPrice        float64
	MaxPrice        float64
	CexWSURL        string
	DexProviders    []string
	OutputFormat    OutputFormat
	ShutdownTimeout time.Duration
}

// ValidationError accumulates every configuration problem found so
// they can be reported together.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration invalid: %s", strings.Join(e.Errors, "; "))
}

// Load parses the given args (normally os.Args[1:]) and the process
// environment into a validated Config. On validation failure it
// returns a *ValidationError carrying every accumulated problem.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("arbwatch", flag.ContinueOnError)

	pairFlag := fs.String("pair", "", "trading pair: sol-usdt or sol-usdc (required)")
	thresholdFlag := fs.Float64("threshold", 0.1, "minimum profit percentage to report, [0,100]")
	maxAgeFlag := fs.Int("max-price-age-ms", 5000, "maximum price observation age in milliseconds, [100,60000]")
	minPriceFlag := fs.Float64("min-price", 10, "minimum sane price")
	maxPriceFlag := fs.Float64("max-price", 1000, "maximum sane price")
	rpcURLFlag := fs.String("rpc-url", "", "override the DEX provider list with a single RPC URL")
	outputFlag := fs.String("output-format", "table", "output format: table, json or compact")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var errs []string

	pair, err := models.ParseTradingPair(*pairFlag)
	if err != nil {
		errs = append(errs, err.Error())
	}

	if *thresholdFlag < 0 || *thresholdFlag > 100 {
		errs = append(errs, fmt.Sprintf("--threshold %v out of [0,100]", *thresholdFlag))
	}

	if *maxAgeFlag < 100 || *maxAgeFlag > 60000 {
		errs = append(errs, fmt.Sprintf("--max-price-age-ms %d out of [100,60000]", *maxAgeFlag))
	}

	if *minPriceFlag <= 0 || *maxPriceFlag <= *minPriceFlag {
		errs = append(errs, fmt.Sprintf("--min-price/--max-price must satisfy 0 < min < max, got min=%v max=%v", *minPriceFlag, *maxPriceFlag))
	}

	output := OutputFormat(*outputFlag)
	switch output {
	case OutputTable, OutputJSON, OutputCompact:
	default:
		errs = append(errs, fmt.Sprintf("--output-format %q must be table, json or compact", *outputFlag))
	}

	cexURL := getEnv("CEX_WS_URL", "")
	if cexURL == "" {
		errs = append(errs, "CEX_WS_URL environment variable is required")
	}

	providers := resolveDexProviders(*rpcURLFlag)
	if len(providers) == 0 {
		errs = append(errs, "at least one DEX RPC endpoint is required (--rpc-url or DEX_RPC_URL)")
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &Config{
		Pair:            pair,
		ThresholdPct:    *thresholdFlag,
		MaxPriceAgeMs:   *maxAgeFlag,
		MinPrice:        *minPriceFlag,
		MaxPrice:        *maxPriceFlag,
		CexWSURL:        cexURL,
		DexProviders:    providers,
		OutputFormat:    output,
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}, nil
}

// resolveDexProviders prefers an explicit --rpc-url override, then
// falls back to the comma-separated DEX_RPC_URL environment variable.
func resolveDexProviders(rpcURLFlag string) []string {
	if rpcURLFlag != "" {
		return []string{rpcURLFlag}
	}
	raw := getEnv("DEX_RPC_URL", "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	providers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, p)
		}
	}
	return providers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
