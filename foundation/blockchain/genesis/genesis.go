// Package genesis maintains access to the consensus parameters for the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
)

// Genesis represents the genesis file.
type Genesis struct {
	Difficulty      uint16 `json:"difficulty"`       // How many leading 0's a block hash needs.
	InitialReward   uint32 `json:"initial_reward"`   // Coinbase amount before the first halving.
	HalvingInterval uint32 `json:"halving_interval"` // Number of blocks between halvings.
	MaxHalvings     uint32 `json:"max_halvings"`     // Halvings after which the reward drops to zero.
}

// Default returns the parameters the network runs with when no genesis
// file is provided.
func Default() Genesis {
	return Genesis{
		Difficulty:      2,
		InitialReward:   512,
		HalvingInterval: 1024,
		MaxHalvings:     10,
	}
}

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if genesis.HalvingInterval == 0 {
		return Genesis{}, errors.New("halving interval must be greater than zero")
	}

	return genesis, nil
}

// Reward returns the coinbase amount for a block at the specified height.
func (g Genesis) Reward(height uint32) uint32 {
	halvings := height / g.HalvingInterval
	if halvings > g.MaxHalvings {
		return 0
	}

	return g.InitialReward >> halvings
}
