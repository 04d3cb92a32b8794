package classify

import (
	"strings"

	"github.com/solmint/relay/internal/core/domain"
)

// rule is one classification category with its trigger keywords.
// Rules are checked in order; the first match wins, so the slice order
// is the category priority.
type rule struct {
	category domain.QueryType
	keywords []string
}

var rules = []rule{
	{domain.QueryNFTInfo, []string{
		"nft", "mint", "collection", "metadata", "token id", "attendance", "poap", "proof of attendance",
	}},
	{domain.QueryWalletActivity, []string{
		"wallet", "balance", "my address", "transactions", "holdings", "activity",
	}},
	{domain.QueryMarketAnalysis, []string{
		"price", "market", "volume", "trend", "chart", "worth", "market cap",
	}},
	{domain.QueryBridgeStatus, []string{
		"bridge", "cross-chain", "cross chain", "layerzero", "relay", "message status",
	}},
	{domain.QueryWebSearch, []string{
		"search", "latest news", "look up", "find out",
	}},
	{domain.QueryRepoInfo, []string{
		"repo", "repository", "github", "source code", "commit",
	}},
}

// Normalize lowercases and trims a query so classification is a pure
// function of the normalized text.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Classify assigns a query to a category. First matching rule wins;
// queries matching no rule fall back to general.
func Classify(query string) domain.QueryType {
	q := Normalize(query)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.category
			}
		}
	}
	return domain.QueryGeneral
}

var temporalKeywords = []string{
	"today", "now", "current", "currently", "right now", "at the moment",
}

// SimpleFactual reports whether a query asks for a single current fact
// (e.g. a price plus a temporal keyword). Such queries get a short
// direct answer with no enumerated source list.
func SimpleFactual(query string) bool {
	q := Normalize(query)
	factual := strings.Contains(q, "price") || strings.Contains(q, "worth") ||
		strings.Contains(q, "how much")
	if !factual {
		return false
	}
	for _, kw := range temporalKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
