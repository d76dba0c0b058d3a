package contract

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/crypto/sha3"

	"github.com/Mohsinsiddi/greeter/internal/config"
)

//go:embed Greeter.abi
var greeterABIJSON []byte

// DefaultAddress is the Greeter deployment the app was built against.
const DefaultAddress = config.DefaultContractAddress

const (
	methodGreet       = "greet"
	methodSetGreeting = "setGreeting"
)

var greeterABI = mustParseABI(greeterABIJSON)

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic("contract: invalid embedded Greeter ABI: " + err.Error())
	}
	return parsed
}

// ABIJSON returns the embedded Greeter ABI.
func ABIJSON() string {
	return string(greeterABIJSON)
}

// Method describes one ABI function.
type Method struct {
	Name       string
	Signature  string // e.g. "setGreeting(string)"
	Selector   string // 4-byte selector, 0x-prefixed
	Mutability string
	Outputs    []string
}

// Methods lists the Greeter functions sorted by name.
func Methods() []Method {
	out := make([]Method, 0, len(greeterABI.Methods))
	for _, m := range greeterABI.Methods {
		outputs := make([]string, len(m.Outputs))
		for i, o := range m.Outputs {
			outputs[i] = o.Type.String()
		}
		out = append(out, Method{
			Name:       m.Name,
			Signature:  m.Sig,
			Selector:   Selector(m.Sig),
			Mutability: m.StateMutability,
			Outputs:    outputs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Selector computes the 4-byte function selector of a canonical signature.
func Selector(sig string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ReplaceAll(sig, " ", "")))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}
