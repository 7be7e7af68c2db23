package store

import "sort"

func sortNewestFirst(recs []ClaimRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
}

func sortBySymbol(tokens []TokenInfo) {
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].Symbol != tokens[j].Symbol {
			return tokens[i].Symbol < tokens[j].Symbol
		}
		return tokens[i].Address < tokens[j].Address
	})
}
