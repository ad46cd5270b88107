package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/chains"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/constants"
)

type AppSettings struct {
	Name         string `mapstructure:"name"`
	AutoConnect  bool   `mapstructure:"autoConnect"`
	WatchAddress string `mapstructure:"watchAddress"`
	PreferredRPC string `mapstructure:"preferredRPC"`
}

type ServerSettings struct {
	LocalHost      string   `mapstructure:"localHost"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type PoolSettings struct {
	ContractAddress string `mapstructure:"contractAddress"`
	FunctionName    string `mapstructure:"functionName"`
	TokenSymbol     string `mapstructure:"tokenSymbol"`
	// ABIPath overrides the embedded DonationPool artifact.
	ABIPath string `mapstructure:"abiPath"`
}

type QuerySettings struct {
	CacheTTL        time.Duration `mapstructure:"cacheTTL"`
	RefetchInterval time.Duration `mapstructure:"refetchInterval"`
}

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type SessionSettings struct {
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redisAddr"`
	RedisPassword string        `mapstructure:"redisPassword"`
	RedisDB       int           `mapstructure:"redisDB"`
	RedisKey      string        `mapstructure:"redisKey"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type Config struct {
	App      AppSettings            `mapstructure:"app"`
	Server   ServerSettings         `mapstructure:"server"`
	Networks []chains.NetworkConfig `mapstructure:"networks"`
	Pool     PoolSettings           `mapstructure:"pool"`
	Query    QuerySettings          `mapstructure:"query"`
	Session  SessionSettings        `mapstructure:"session"`
}

// ApplyDefaults fills zero values left by a partial config file.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = constants.DashboardTitle
	}
	if c.Server.LocalHost == "" {
		c.Server.LocalHost = "127.0.0.1"
	}
	if c.Server.Port == "" {
		c.Server.Port = "6140"
	}
	if c.Pool.ContractAddress == "" {
		c.Pool.ContractAddress = constants.DonationPoolAddr
	}
	if c.Pool.FunctionName == "" {
		c.Pool.FunctionName = constants.PoolBalancesFunction
	}
	if c.Pool.TokenSymbol == "" {
		c.Pool.TokenSymbol = "USDC"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionBackendFile
	}
}

// Validate rejects configurations the dashboard cannot start with. Network
// entries are validated by chains.ConfigureNetwork.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("config: no networks configured")
	}

	addr := strings.TrimSpace(c.Pool.ContractAddress)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("config: pool.contractAddress %q is not a hex address", c.Pool.ContractAddress)
	}
	if strings.TrimSpace(c.Pool.FunctionName) == "" {
		return fmt.Errorf("config: pool.functionName is empty")
	}

	if w := strings.TrimSpace(c.App.WatchAddress); w != "" && !common.IsHexAddress(w) {
		return fmt.Errorf("config: app.watchAddress %q is not a hex address", c.App.WatchAddress)
	}

	backends := []string{SessionBackendFile, SessionBackendRedis, SessionBackendMemory}
	if !lo.Contains(backends, c.Session.Backend) {
		return fmt.Errorf("config: session.backend %q (allowed: %s)", c.Session.Backend, strings.Join(backends, ", "))
	}
	if c.Session.Backend == SessionBackendRedis && strings.TrimSpace(c.Session.RedisAddr) == "" {
		return fmt.Errorf("config: session.redisAddr is required for the redis backend")
	}

	if c.Query.CacheTTL < 0 || c.Query.RefetchInterval < 0 {
		return fmt.Errorf("config: query durations must not be negative")
	}
	return nil
}

func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Pool.ContractAddress))
}

func (c *Config) ListenAddr() string {
	return c.Server.LocalHost + ":" + c.Server.Port
}
