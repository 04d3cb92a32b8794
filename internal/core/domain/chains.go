package domain

// Chain describes a destination chain reachable through the bridge.
type Chain struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EndpointID uint32 `json:"endpointId"`
	Testnet    bool   `json:"testnet"`
}

// SupportedChains lists the destination chains the relay accepts,
// keyed by LayerZero V2 endpoint IDs.
var SupportedChains = []Chain{
	{ID: "ethereum", Name: "Ethereum", EndpointID: 30101},
	{ID: "arbitrum", Name: "Arbitrum One", EndpointID: 30110},
	{ID: "optimism", Name: "Optimism", EndpointID: 30111},
	{ID: "polygon", Name: "Polygon", EndpointID: 30109},
	{ID: "base", Name: "Base", EndpointID: 30184},
	{ID: "avalanche", Name: "Avalanche", EndpointID: 30106},
	{ID: "solana-devnet", Name: "Solana Devnet", EndpointID: 40168, Testnet: true},
}

// MessageType describes a kind of cross-chain request.
type MessageType struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// SupportedMessageTypes lists the message types the relay accepts.
var SupportedMessageTypes = []MessageType{
	{ID: "nft_ownership", Description: "Verify attendance NFT ownership on the destination chain"},
	{ID: "nft_bridge", Description: "Bridge an attendance NFT to the destination chain"},
	{ID: "wallet_history", Description: "Fetch wallet activity from the destination chain"},
	{ID: "contract_state", Description: "Read contract state from the destination chain"},
}

// KnownChain reports whether id is a supported destination chain.
func KnownChain(id string) bool {
	for _, c := range SupportedChains {
		if c.ID == id {
			return true
		}
	}
	return false
}

// KnownMessageType reports whether id is a supported message type.
func KnownMessageType(id string) bool {
	for _, t := range SupportedMessageTypes {
		if t.ID == id {
			return true
		}
	}
	return false
}
