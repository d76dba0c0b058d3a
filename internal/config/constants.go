package config

import "time"

// DefaultContractAddress is the Greeter deployment the app was built against.
const DefaultContractAddress = "0x693F885F0CF1adDDD801a252B909AB91Bfd23B4f"

// GasLimitContractCall is the EstimateGas fallback for a setGreeting call.
// setGreeting stores a dynamic string, so long greetings cost more; this is
// a conservative upper bound for typical lengths.
const GasLimitContractCall = uint64(200_000)

// Timeouts.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark before dialing
	TxConfirmTimeout = 3 * time.Minute  // default confirmation wait
)
