package domain

import "encoding/json"

// QueryType is the category a free-text query is routed under.
type QueryType string

const (
	QueryNFTInfo        QueryType = "nft_info"
	QueryWalletActivity QueryType = "wallet_activity"
	QueryMarketAnalysis QueryType = "market_analysis"
	QueryBridgeStatus   QueryType = "bridge_status"
	QueryWebSearch      QueryType = "web_search"
	QueryRepoInfo       QueryType = "repo_info"
	QueryGeneral        QueryType = "general"
)

// QueryResponse is the dispatcher's answer to a free-text query.
type QueryResponse struct {
	Text          string          `json:"text"`
	Data          json.RawMessage `json:"data,omitempty"`
	QueryType     QueryType       `json:"queryType"`
	RelatedEvents []string        `json:"relatedEvents,omitempty"`
}
