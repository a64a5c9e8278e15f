package config

// Base-unit scaling. 1 SOL = 1e9 lamports; launch-venue tokens default
// to 6 decimals unless the token record says otherwise.
const (
	LamportsPerSOL       = uint64(1_000_000_000)
	DefaultTokenDecimals = 6
)

// PumpFun bonding-curve constants. Progress is tokens-sold based:
//
//	progress = (initialVirtualTokenReserves - virtualTokenReserves) / totalSellableTokens * 100
const (
	PumpFunInitialVirtualTokenReserves = uint64(1_073_000_000) * 1_000_000
	PumpFunTotalSellableTokens         = uint64(793_100_000) * 1_000_000
)
