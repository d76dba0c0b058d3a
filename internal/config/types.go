package config

import "time"

// Config holds all greeter configuration.
type Config struct {
	Network         string              `json:"network"                    yaml:"network"`
	ContractAddress string              `json:"contract_address"           yaml:"contract_address"`
	RPCURL          string              `json:"rpc_url,omitempty"          yaml:"rpc_url,omitempty"`       // overrides network RPCs
	RPCAlgorithm    string              `json:"rpc_algorithm"              yaml:"rpc_algorithm"`           // "fastest" | "round-robin" | "failover"
	DefaultWallet   string              `json:"default_wallet,omitempty"   yaml:"default_wallet,omitempty"`
	ConfirmTimeout  int                 `json:"confirm_timeout"            yaml:"confirm_timeout"`         // seconds, 0 = no limit
	PollIntervalMS  int                 `json:"poll_interval_ms"           yaml:"poll_interval_ms"`
	LogLevel        string              `json:"log_level"                  yaml:"log_level"`               // debug | info | warn | error
	LogFormat       string              `json:"log_format"                 yaml:"log_format"`              // text | json
	MetricsAddr     string              `json:"metrics_addr,omitempty"     yaml:"metrics_addr,omitempty"`
	DeploymentsURL  string              `json:"deployments_url,omitempty"  yaml:"deployments_url,omitempty"`   // manifest for `config sync`
	CustomRPCs      map[string][]string `json:"custom_rpcs,omitempty"      yaml:"custom_rpcs,omitempty"`

	// internal: where Save writes and in which format
	configDir string
	format    string
}

// ConfirmTimeoutDuration returns the confirmation wait limit, 0 for none.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	if c.ConfirmTimeout <= 0 {
		return 0
	}
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// PollInterval returns how often receipts are polled.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Duration(defaultPollMS) * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
