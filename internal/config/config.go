package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/Mohsinsiddi/greeter/internal/ens"
)

const (
	defaultNetwork   = "sepolia"
	defaultAlgorithm = "fastest"
	defaultPollMS    = 2000
	defaultLogLevel  = "info"
	defaultLogFormat = "text"

	configFile  = "config.json"
	yamlFile    = "config.yaml"
	walletsFile = "wallets.json"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	// ErrUnknownKey is returned by Set and Get for keys that do not exist.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidContract is returned for a contract_address that is neither
	// a 20-byte hex address nor an ENS name.
	ErrInvalidContract = errors.New("contract_address must be a 20-byte hex address or an ENS name")
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.greeter.
// config.yaml is preferred over config.json when both exist.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".greeter")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	for _, f := range []struct {
		name   string
		format string
		decode func([]byte, any) error
	}{
		{yamlFile, formatYAML, yaml.Unmarshal},
		{configFile, formatJSON, json.Unmarshal},
	} {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.name, err)
		}
		if err := f.decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}
		cfg.format = f.format
		break
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config back in the format it was loaded from (JSON for a
// fresh directory).
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	if c.format == formatYAML {
		data, err := yaml.Marshal(c)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(c.configDir, yamlFile), data, 0o600)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// Path returns the file Save writes to.
func (c *Config) Path() string {
	if c.format == formatYAML {
		return filepath.Join(c.configDir, yamlFile)
	}
	return filepath.Join(c.configDir, configFile)
}

// WalletsPath returns the wallet store location.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// RPCs returns the candidate endpoints for network: the rpc_url override
// alone if set, otherwise custom RPCs followed by builtin ones.
func (c *Config) RPCs(network string, builtin []string) []string {
	if c.RPCURL != "" {
		return []string{c.RPCURL}
	}
	out := append([]string(nil), c.CustomRPCs[network]...)
	for _, u := range builtin {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// --- key/value access for `config show|set` ---

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"network": {
		get: func(c *Config) string { return c.Network },
		set: func(c *Config, v string) error { c.Network = strings.ToLower(v); return nil },
	},
	"contract_address": {
		get: func(c *Config) string { return c.ContractAddress },
		set: func(c *Config, v string) error {
			if err := ValidateContract(v); err != nil {
				return err
			}
			c.ContractAddress = v
			return nil
		},
	},
	"rpc_url": {
		get: func(c *Config) string { return c.RPCURL },
		set: func(c *Config, v string) error { c.RPCURL = v; return nil },
	},
	"rpc_algorithm": {
		get: func(c *Config) string { return c.RPCAlgorithm },
		set: oneOf(func(c *Config) *string { return &c.RPCAlgorithm }, "fastest", "round-robin", "failover"),
	},
	"default_wallet": {
		get: func(c *Config) string { return c.DefaultWallet },
		set: func(c *Config, v string) error { c.DefaultWallet = v; return nil },
	},
	"confirm_timeout": {
		get: func(c *Config) string { return strconv.Itoa(c.ConfirmTimeout) },
		set: nonNegative(func(c *Config) *int { return &c.ConfirmTimeout }),
	},
	"poll_interval_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.PollIntervalMS) },
		set: nonNegative(func(c *Config) *int { return &c.PollIntervalMS }),
	},
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: oneOf(func(c *Config) *string { return &c.LogLevel }, "debug", "info", "warn", "error"),
	},
	"log_format": {
		get: func(c *Config) string { return c.LogFormat },
		set: oneOf(func(c *Config) *string { return &c.LogFormat }, "text", "json"),
	},
	"metrics_addr": {
		get: func(c *Config) string { return c.MetricsAddr },
		set: func(c *Config, v string) error { c.MetricsAddr = v; return nil },
	},
	"deployments_url": {
		get: func(c *Config) string { return c.DeploymentsURL },
		set: func(c *Config, v string) error { c.DeploymentsURL = v; return nil },
	},
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set validates and assigns value to key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.set(c, strings.TrimSpace(value))
}

// ValidateContract accepts a full hex address or an ENS name. Shorter hex
// would be silently padded by common.HexToAddress.
func ValidateContract(v string) error {
	if common.IsHexAddress(v) || ens.IsName(v) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidContract, v)
}

func oneOf(ptr func(*Config) *string, allowed ...string) func(*Config, string) error {
	return func(c *Config, v string) error {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("invalid value %q (want one of %s)", v, strings.Join(allowed, ", "))
		}
		*ptr(c) = v
		return nil
	}
}

func nonNegative(ptr func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value %q (want a non-negative integer)", v)
		}
		*ptr(c) = n
		return nil
	}
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:         defaultNetwork,
		ContractAddress: DefaultContractAddress,
		RPCAlgorithm:    defaultAlgorithm,
		ConfirmTimeout:  int(TxConfirmTimeout.Seconds()),
		PollIntervalMS:  defaultPollMS,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		CustomRPCs:      make(map[string][]string),
		configDir:       dir,
		format:          formatJSON,
	}
}
