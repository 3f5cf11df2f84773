package abi

import (
	"fmt"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Descriptor identifies a single event signature: which contract emits it,
// its ABI definition (for unpacking non-indexed data), and its topic0.
type Descriptor struct {
	Contract ContractName
	Event    ethabi.Event
	Topic0   common.Hash
}

// registry maps topic0 to its descriptor. Built once at package init from
// the six contracts' ABI JSON, mirroring the teacher's pattern of parsing a
// literal ABI string with abi.JSON (see geth-edu module 09's erc20ABI).
var registry = map[common.Hash]Descriptor{}

// byContractAndName supports decode.go looking up a specific event without
// needing the caller to have its topic0 handy.
var byContractAndName = map[ContractName]map[string]ethabi.Event{}

func mustParse(name ContractName, raw string) {
	parsed, err := ethabi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("abi: invalid ABI for %s: %v", name, err))
	}
	byContractAndName[name] = map[string]ethabi.Event{}
	for _, ev := range parsed.Events {
		ev := ev
		registry[ev.ID] = Descriptor{Contract: name, Event: ev, Topic0: ev.ID}
		byContractAndName[name][ev.Name] = ev
	}
}

func init() {
	mustParse(GhostCore, ghostCoreABI)
	mustParse(TraceScan, traceScanABI)
	mustParse(DeadPool, deadPoolABI)
	mustParse(DataToken, dataTokenABI)
	mustParse(FeeRouter, feeRouterABI)
	mustParse(RewardsDistributor, rewardsDistributorABI)
}

// Lookup returns the descriptor for a topic0, if the registry knows it.
func Lookup(topic0 common.Hash) (Descriptor, bool) {
	d, ok := registry[topic0]
	return d, ok
}

// EventByName returns the parsed ABI event for a (contract, event name)
// pair. Used by tests and by encode-side tooling that needs a topic0
// without a log to decode.
func EventByName(contract ContractName, name string) (ethabi.Event, bool) {
	m, ok := byContractAndName[contract]
	if !ok {
		return ethabi.Event{}, false
	}
	ev, ok := m[name]
	return ev, ok
}

// Count returns how many signatures the registry holds, for sanity checks
// in tests.
func Count() int { return len(registry) }
