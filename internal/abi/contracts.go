// Package abi holds the six contracts' event ABI definitions and the
// topic0 -> (contract, event) registry the router uses for dispatch,
// following the teacher's pattern of a literal ABI JSON string parsed with
// go-ethereum's abi.JSON (see geth-edu's erc20ABI const in module 09).
package abi

// ContractName enumerates the six contracts this indexer understands.
type ContractName string

const (
	GhostCore           ContractName = "GhostCore"
	TraceScan           ContractName = "TraceScan"
	DeadPool            ContractName = "DeadPool"
	DataToken           ContractName = "DataToken"
	FeeRouter           ContractName = "FeeRouter"
	RewardsDistributor  ContractName = "RewardsDistributor"
)

// ghostCoreABI declares the ten GhostCore events this indexer decodes.
const ghostCoreABI = `[
  {"anonymous":false,"name":"JackedIn","type":"event","inputs":[
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"},
    {"indexed":false,"name":"level","type":"uint8"},
    {"indexed":false,"name":"newTotal","type":"uint256"}
  ]},
  {"anonymous":false,"name":"StakeAdded","type":"event","inputs":[
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"},
    {"indexed":false,"name":"newTotal","type":"uint256"}
  ]},
  {"anonymous":false,"name":"Extracted","type":"event","inputs":[
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"},
    {"indexed":false,"name":"rewards","type":"uint256"}
  ]},
  {"anonymous":false,"name":"BoostApplied","type":"event","inputs":[
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"boostType","type":"uint8"},
    {"indexed":false,"name":"valueBps","type":"uint16"},
    {"indexed":false,"name":"expiry","type":"uint64"}
  ]},
  {"anonymous":false,"name":"PositionCulled","type":"event","inputs":[
    {"indexed":true,"name":"victim","type":"address"},
    {"indexed":false,"name":"penaltyAmount","type":"uint256"},
    {"indexed":false,"name":"returnedAmount","type":"uint256"},
    {"indexed":false,"name":"newEntrant","type":"address"}
  ]},
  {"anonymous":false,"name":"DeathsProcessed","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":false,"name":"count","type":"uint256"},
    {"indexed":false,"name":"totalDead","type":"uint256"},
    {"indexed":false,"name":"burned","type":"uint256"},
    {"indexed":false,"name":"distributed","type":"uint256"}
  ]},
  {"anonymous":false,"name":"SurvivorsUpdated","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":false,"name":"count","type":"uint256"}
  ]},
  {"anonymous":false,"name":"CascadeDistributed","type":"event","inputs":[
    {"indexed":true,"name":"sourceLevel","type":"uint8"},
    {"indexed":false,"name":"sameLevelAmount","type":"uint256"},
    {"indexed":false,"name":"upstreamAmount","type":"uint256"},
    {"indexed":false,"name":"burnAmount","type":"uint256"},
    {"indexed":false,"name":"protocolAmount","type":"uint256"}
  ]},
  {"anonymous":false,"name":"EmissionsAdded","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]},
  {"anonymous":false,"name":"SystemResetTriggered","type":"event","inputs":[
    {"indexed":false,"name":"totalPenalty","type":"uint256"},
    {"indexed":true,"name":"jackpotWinner","type":"address"},
    {"indexed":false,"name":"jackpotAmount","type":"uint256"}
  ]}
]`

// traceScanABI declares the three TraceScan events.
const traceScanABI = `[
  {"anonymous":false,"name":"ScanExecuted","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":true,"name":"scanId","type":"uint256"},
    {"indexed":false,"name":"seed","type":"uint256"},
    {"indexed":false,"name":"executedAt","type":"uint64"}
  ]},
  {"anonymous":false,"name":"DeathsSubmitted","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":true,"name":"scanId","type":"uint256"},
    {"indexed":false,"name":"count","type":"uint256"},
    {"indexed":false,"name":"totalDead","type":"uint256"},
    {"indexed":false,"name":"submitter","type":"address"}
  ]},
  {"anonymous":false,"name":"ScanFinalized","type":"event","inputs":[
    {"indexed":true,"name":"level","type":"uint8"},
    {"indexed":true,"name":"scanId","type":"uint256"},
    {"indexed":false,"name":"deathCount","type":"uint256"},
    {"indexed":false,"name":"totalDead","type":"uint256"},
    {"indexed":false,"name":"finalizedAt","type":"uint64"}
  ]}
]`

// deadPoolABI declares the four DeadPool prediction-market events.
const deadPoolABI = `[
  {"anonymous":false,"name":"RoundCreated","type":"event","inputs":[
    {"indexed":true,"name":"roundId","type":"uint256"},
    {"indexed":false,"name":"roundType","type":"uint8"},
    {"indexed":false,"name":"targetLevel","type":"uint8"},
    {"indexed":false,"name":"line","type":"uint256"},
    {"indexed":false,"name":"deadline","type":"uint64"}
  ]},
  {"anonymous":false,"name":"BetPlaced","type":"event","inputs":[
    {"indexed":true,"name":"roundId","type":"uint256"},
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"isOver","type":"bool"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]},
  {"anonymous":false,"name":"RoundResolved","type":"event","inputs":[
    {"indexed":true,"name":"roundId","type":"uint256"},
    {"indexed":false,"name":"outcome","type":"bool"},
    {"indexed":false,"name":"totalPot","type":"uint256"},
    {"indexed":false,"name":"burned","type":"uint256"}
  ]},
  {"anonymous":false,"name":"WinningsClaimed","type":"event","inputs":[
    {"indexed":true,"name":"roundId","type":"uint256"},
    {"indexed":true,"name":"user","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]}
]`

// dataTokenABI declares the four DataToken (ERC20-derived) events.
const dataTokenABI = `[
  {"anonymous":false,"name":"Transfer","type":"event","inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":true,"name":"to","type":"address"},
    {"indexed":false,"name":"value","type":"uint256"}
  ]},
  {"anonymous":false,"name":"TaxBurned","type":"event","inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]},
  {"anonymous":false,"name":"TaxCollected","type":"event","inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]},
  {"anonymous":false,"name":"TaxExclusionSet","type":"event","inputs":[
    {"indexed":true,"name":"account","type":"address"},
    {"indexed":false,"name":"excluded","type":"bool"}
  ]}
]`

// feeRouterABI declares the three FeeRouter events.
const feeRouterABI = `[
  {"anonymous":false,"name":"TollCollected","type":"event","inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"},
    {"indexed":false,"name":"reason","type":"bytes32"}
  ]},
  {"anonymous":false,"name":"BuybackExecuted","type":"event","inputs":[
    {"indexed":false,"name":"ethSpent","type":"uint256"},
    {"indexed":false,"name":"dataReceived","type":"uint256"},
    {"indexed":false,"name":"dataBurned","type":"uint256"}
  ]},
  {"anonymous":false,"name":"OperationsWithdrawn","type":"event","inputs":[
    {"indexed":true,"name":"to","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]}
]`

// rewardsDistributorABI declares the three RewardsDistributor events.
const rewardsDistributorABI = `[
  {"anonymous":false,"name":"EmissionsDistributed","type":"event","inputs":[
    {"indexed":false,"name":"totalAmount","type":"uint256"},
    {"indexed":false,"name":"timestamp","type":"uint64"}
  ]},
  {"anonymous":false,"name":"WeightsUpdated","type":"event","inputs":[
    {"indexed":false,"name":"newWeights","type":"uint16[5]"}
  ]},
  {"anonymous":false,"name":"TokensClaimed","type":"event","inputs":[
    {"indexed":true,"name":"member","type":"address"},
    {"indexed":false,"name":"amount","type":"uint256"}
  ]}
]`
