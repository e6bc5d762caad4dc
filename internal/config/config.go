package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModePoll      = "poll"
	ModeSubscribe = "subscribe"

	// MaxSupportedHops bounds the route table depth.
	MaxSupportedHops = 4
)

// TokenConfig is a token entry of the registry file.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Mint     string `mapstructure:"mint"`
	Decimals uint8  `mapstructure:"decimals"`
}

// PoolConfig is a pool entry of the registry file.
type PoolConfig struct {
	ID       string   `mapstructure:"id"`
	Kind     string   `mapstructure:"kind"`
	Fee      string   `mapstructure:"fee"`
	TokenA   string   `mapstructure:"token_a"`
	TokenB   string   `mapstructure:"token_b"`
	Accounts []string `mapstructure:"accounts"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	WSURL        string
	Commitment   string
	Mode         string
	PollInterval time.Duration
	ScanInterval time.Duration
	PoolTimeout  time.Duration
	MaxQuoteAge  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MinProfitPct decimal.Decimal
	TradeSize    decimal.Decimal
	Cooldown     time.Duration

	Base    string
	MaxHops int
	Routes  map[int][][]string
	Tokens  []TokenConfig
	Pools   []PoolConfig

	SignalsOut      string
	CyclesOut       string
	DecodeErrorsOut string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisChannel    string
	PGDSN           string
	StateFile       string
	MetricsAddr     string
	LogLevel        string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POOLARB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("commitment", "confirmed")
	v.SetDefault("mode", ModePoll)
	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("scan-interval", time.Second)
	v.SetDefault("pool-timeout", 3*time.Second)
	v.SetDefault("max-quote-age", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("min-profit-pct", "0.001")
	v.SetDefault("trade-size", "1")
	v.SetDefault("cooldown", time.Duration(0))
	v.SetDefault("max-hops", MaxSupportedHops)
	v.SetDefault("redis-channel", "poolarb:signals")
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

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	minProfit, err := parseDecimal(v.GetString("min-profit-pct"))
	if err != nil {
		return Config{}, &ConfigError{Field: "min-profit-pct", Reason: err.Error()}
	}
	tradeSize, err := parseDecimal(v.GetString("trade-size"))
	if err != nil {
		return Config{}, &ConfigError{Field: "trade-size", Reason: err.Error()}
	}

	var tokens []TokenConfig
	if err := v.UnmarshalKey("tokens", &tokens); err != nil {
		return Config{}, fmt.Errorf("decode tokens: %w", err)
	}
	var pools []PoolConfig
	if err := v.UnmarshalKey("pools", &pools); err != nil {
		return Config{}, fmt.Errorf("decode pools: %w", err)
	}
	routes, err := getRouteTable(v, "routes")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		WSURL:           v.GetString("ws"),
		Commitment:      v.GetString("commitment"),
		Mode:            strings.ToLower(v.GetString("mode")),
		PollInterval:    v.GetDuration("poll-interval"),
		ScanInterval:    v.GetDuration("scan-interval"),
		PoolTimeout:     v.GetDuration("pool-timeout"),
		MaxQuoteAge:     v.GetDuration("max-quote-age"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		MinProfitPct:    minProfit,
		TradeSize:       tradeSize,
		Cooldown:        v.GetDuration("cooldown"),
		Base:            v.GetString("base"),
		MaxHops:         v.GetInt("max-hops"),
		Routes:          routes,
		Tokens:          tokens,
		Pools:           pools,
		SignalsOut:      v.GetString("signals-out"),
		CyclesOut:       v.GetString("cycles-out"),
		DecodeErrorsOut: v.GetString("decode-errors-out"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		RedisChannel:    v.GetString("redis-channel"),
		PGDSN:           v.GetString("pg-dsn"),
		StateFile:       v.GetString("state-file"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate reports the first invalid setting as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.RPCURL == "":
		return &ConfigError{Field: "rpc", Reason: "rpc url is required"}
	case c.Mode != ModePoll && c.Mode != ModeSubscribe:
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unsupported mode %q", c.Mode)}
	case c.Mode == ModeSubscribe && c.WSURL == "":
		return &ConfigError{Field: "ws", Reason: "websocket url is required in subscribe mode"}
	case c.PollInterval <= 0:
		return &ConfigError{Field: "poll-interval", Reason: "must be positive"}
	case c.ScanInterval <= 0:
		return &ConfigError{Field: "scan-interval", Reason: "must be positive"}
	case c.PoolTimeout <= 0:
		return &ConfigError{Field: "pool-timeout", Reason: "must be positive"}
	case c.MaxQuoteAge <= 0:
		return &ConfigError{Field: "max-quote-age", Reason: "must be positive"}
	case c.Cooldown < 0:
		return &ConfigError{Field: "cooldown", Reason: "must not be negative"}
	case c.MinProfitPct.LessThanOrEqual(decimal.NewFromInt(-100)):
		return &ConfigError{Field: "min-profit-pct", Reason: "must be greater than -100"}
	case !c.TradeSize.IsPositive():
		return &ConfigError{Field: "trade-size", Reason: "must be positive"}
	}
	return c.ValidateRoutes()
}

// ValidateRoutes checks the route table without requiring network settings.
func (c Config) ValidateRoutes() error {
	if strings.TrimSpace(c.Base) == "" {
		return &ConfigError{Field: "base", Reason: "base token is required"}
	}
	if c.MaxHops < 1 || c.MaxHops > MaxSupportedHops {
		return &ConfigError{Field: "max-hops", Reason: fmt.Sprintf("must be between 1 and %d", MaxSupportedHops)}
	}
	if len(c.Pools) == 0 {
		return &ConfigError{Field: "pools", Reason: "at least one pool is required"}
	}
	if len(c.Routes) == 0 {
		return &ConfigError{Field: "routes", Reason: "route table is empty"}
	}
	for depth, seqs := range c.Routes {
		for _, seq := range seqs {
			if len(seq) != depth {
				return &ConfigError{Field: "routes", Reason: fmt.Sprintf("depth %d entry %v has %d tokens", depth, seq, len(seq))}
			}
		}
	}
	return nil
}

func parseDecimal(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(input)
}

func getRouteTable(v *viper.Viper, key string) (map[int][][]string, error) {
	out := make(map[int][][]string)
	if !v.IsSet(key) {
		return out, nil
	}

	raw := make(map[string]interface{})
	switch typed := v.Get(key).(type) {
	case map[string]interface{}:
		raw = typed
	case map[interface{}]interface{}:
		for k, val := range typed {
			raw[fmt.Sprintf("%v", k)] = val
		}
	default:
		return nil, &ConfigError{Field: key, Reason: "must map depth to token sequences"}
	}
	for depthKey, value := range raw {
		depth, err := strconv.Atoi(strings.TrimSpace(depthKey))
		if err != nil || depth < 1 || depth > MaxSupportedHops {
			return nil, &ConfigError{Field: key, Reason: fmt.Sprintf("invalid depth %q", depthKey)}
		}
		entries, ok := value.([]interface{})
		if !ok {
			return nil, &ConfigError{Field: key, Reason: fmt.Sprintf("depth %d must be a list", depth)}
		}
		for _, entry := range entries {
			seq := tokenSequence(entry)
			if len(seq) == 0 {
				continue
			}
			out[depth] = append(out[depth], seq)
		}
	}
	return out, nil
}

func tokenSequence(val interface{}) []string {
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
