package evm

import (
	"github.com/swiftshopr/sdk-go/pkg/usdc"
)

type Network string

const (
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia"

	DefaultNetwork = NetworkBase
)

// NetworkConfig describes a supported EVM network.
type NetworkConfig struct {
	Name          string
	ChainID       int64
	IsTestnet     bool
	BlockExplorer string
	UsdcAddress   string
	RpcEndpoints  []string
}

var networkConfigs = map[Network]NetworkConfig{
	NetworkBase: {
		Name:          "Base",
		ChainID:       8453,
		BlockExplorer: "https://basescan.org",
		UsdcAddress:   usdc.BaseMint,
		RpcEndpoints: []string{
			"https://mainnet.base.org",
			"https://base-rpc.publicnode.com",
			"https://base.llamarpc.com",
		},
	},
	NetworkBaseSepolia: {
		Name:          "Base Sepolia",
		ChainID:       84532,
		IsTestnet:     true,
		BlockExplorer: "https://sepolia.basescan.org",
		UsdcAddress:   usdc.BaseSepoliaMint,
		RpcEndpoints: []string{
			"https://sepolia.base.org",
			"https://base-sepolia-rpc.publicnode.com",
		},
	},
}

// GetNetworkConfig returns the configuration for the provided network,
// falling back to the default network when it isn't supported.
func GetNetworkConfig(network Network) NetworkConfig {
	if config, ok := networkConfigs[network]; ok {
		return config
	}
	return networkConfigs[DefaultNetwork]
}

// GetRpcEndpoints returns the ordered list of RPC endpoints to try for a
// network. Overrides, when provided, take precedence over the defaults.
func GetRpcEndpoints(network Network, overrides []string) []string {
	if len(overrides) > 0 {
		return overrides
	}
	return GetNetworkConfig(network).RpcEndpoints
}
