package config

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Programs holds the well-known on-chain program ids and mints the
// consumers subscribe to. Addresses are base58 strings; they are
// configuration, not source constants, because venues redeploy and
// devnet ids differ from mainnet.
type Programs struct {
	PumpFun          string `yaml:"pumpfun"`
	PumpFunMigration string `yaml:"pumpfun_migration"`
	PumpSwap         string `yaml:"pumpswap"`
	Launchpad        string `yaml:"raydium_launchpad"`
	RaydiumAMM       string `yaml:"raydium_amm"`
	WSOLMint         string `yaml:"wsol_mint"`
}

var (
	programs     *Programs
	programsOnce sync.Once
)

var mainnetPrograms = Programs{
	PumpFun:          "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
	PumpFunMigration: "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg",
	PumpSwap:         "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA",
	Launchpad:        "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj",
	RaydiumAMM:       "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
	WSOLMint:         "So11111111111111111111111111111111111111112",
}

// Addr returns the program table, applying overrides from the YAML
// file named by PROGRAMS_FILE on first call.
func Addr() *Programs {
	programsOnce.Do(func() {
		p := mainnetPrograms
		if path := strings.TrimSpace(os.Getenv("PROGRAMS_FILE")); path != "" {
			if data, err := os.ReadFile(path); err == nil {
				var override Programs
				if yaml.Unmarshal(data, &override) == nil {
					p.merge(override)
				}
			}
		}
		programs = &p
	})
	return programs
}

func (p *Programs) merge(o Programs) {
	if o.PumpFun != "" {
		p.PumpFun = o.PumpFun
	}
	if o.PumpFunMigration != "" {
		p.PumpFunMigration = o.PumpFunMigration
	}
	if o.PumpSwap != "" {
		p.PumpSwap = o.PumpSwap
	}
	if o.Launchpad != "" {
		p.Launchpad = o.Launchpad
	}
	if o.RaydiumAMM != "" {
		p.RaydiumAMM = o.RaydiumAMM
	}
	if o.WSOLMint != "" {
		p.WSOLMint = o.WSOLMint
	}
}
