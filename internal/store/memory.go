package store

import (
	"context"
	"sync"
)

// MemoryHistory is the in-process claim history. State lives for the process
// lifetime only; restarts reset it.
type MemoryHistory struct {
	mu     sync.RWMutex
	claims map[string][]ClaimRecord
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{claims: make(map[string][]ClaimRecord)}
}

func (h *MemoryHistory) Append(ctx context.Context, rec ClaimRecord) error {
	key := NormalizeAddress(rec.Address)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.claims[key] = append(h.claims[key], rec)
	return nil
}

func (h *MemoryHistory) ListByAddress(ctx context.Context, address string) ([]ClaimRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs := h.claims[NormalizeAddress(address)]
	out := make([]ClaimRecord, len(recs))
	// Stored oldest first; serve newest first.
	for i, rec := range recs {
		out[len(recs)-1-i] = rec
	}
	return out, nil
}

func (h *MemoryHistory) ListAll(ctx context.Context) ([]ClaimRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []ClaimRecord
	for _, recs := range h.claims {
		out = append(out, recs...)
	}
	sortNewestFirst(out)
	return out, nil
}

func (h *MemoryHistory) Stats(ctx context.Context, address string) (Stats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{ClaimsByToken: make(map[string]int)}
	if address != "" {
		recs := h.claims[NormalizeAddress(address)]
		if len(recs) > 0 {
			stats.UniqueAddresses = 1
		}
		stats.TotalClaims = len(recs)
		for _, rec := range recs {
			stats.ClaimsByToken[NormalizeAddress(rec.TokenAddress)]++
		}
		return stats, nil
	}

	for _, recs := range h.claims {
		if len(recs) == 0 {
			continue
		}
		stats.UniqueAddresses++
		stats.TotalClaims += len(recs)
		for _, rec := range recs {
			stats.ClaimsByToken[NormalizeAddress(rec.TokenAddress)]++
		}
	}
	return stats, nil
}

// MemoryTokens is the in-process token registry.
type MemoryTokens struct {
	mu     sync.RWMutex
	tokens map[string]TokenInfo
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]TokenInfo)}
}

func (t *MemoryTokens) Get(ctx context.Context, address string) (TokenInfo, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.tokens[NormalizeAddress(address)]
	return info, ok, nil
}

func (t *MemoryTokens) List(ctx context.Context) ([]TokenInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TokenInfo, 0, len(t.tokens))
	for _, info := range t.tokens {
		out = append(out, info)
	}
	sortBySymbol(out)
	return out, nil
}

func (t *MemoryTokens) Put(ctx context.Context, info TokenInfo) error {
	key := NormalizeAddress(info.Address)
	info.Address = key
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[key] = info
	return nil
}

func (t *MemoryTokens) Delete(ctx context.Context, address string) (bool, error) {
	key := NormalizeAddress(address)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tokens[key]; !ok {
		return false, nil
	}
	delete(t.tokens, key)
	return true, nil
}
