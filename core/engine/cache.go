package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	// Keep up to ~128 MiB of cached outcomes in-memory.
	defaultRistrettoMaxCost = 128 << 20
	// Rule of thumb from Ristretto: ~10x expected live keys.
	defaultRistrettoNumCounters = 1_000_000
	defaultRistrettoBufferItems = 64
)

// outcomeCache holds normalized execution outcomes for read-only templates
// that opted into caching. Entries are cloned on both store and load so a
// caller can never mutate a cached row set.
type outcomeCache struct {
	store *ristretto.Cache
}

func newOutcomeCache() *outcomeCache {
	// Ristretto requires sizing knobs up front. These defaults are tuned for
	// result caching where values are variable-sized row sets and we want a
	// good hit ratio without unbounded RAM.
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultRistrettoNumCounters,
		MaxCost:     defaultRistrettoMaxCost,
		BufferItems: defaultRistrettoBufferItems,
	})
	if err != nil {
		// Invalid config should never happen with static values.
		panic(err)
	}

	return &outcomeCache{store: store}
}

func (c *outcomeCache) Get(key string) (*Outcome, bool) {
	value, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	outcome, ok := value.(*Outcome)
	if !ok {
		return nil, false
	}

	return cloneOutcome(outcome), true
}

func (c *outcomeCache) Set(key string, outcome *Outcome, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	cost := estimateOutcomeCost(outcome)

	accepted := c.store.SetWithTTL(key, cloneOutcome(outcome), cost, ttl)
	if accepted {
		// Ristretto sets are asynchronous. Wait ensures the value can be
		// read immediately by the next execution.
		c.store.Wait()
	}
}

// buildCacheKey hashes the template name together with every substituted
// statement, so different input values never share an entry.
func buildCacheKey(templateName string, statements []string) string {
	hash := sha256.Sum256([]byte(templateName + ":" + strings.Join(statements, ";")))
	return hex.EncodeToString(hash[:])
}

func cloneOutcome(outcome *Outcome) *Outcome {
	if outcome == nil {
		return nil
	}

	out := &Outcome{TemplateName: outcome.TemplateName, ExecutionID: outcome.ExecutionID}
	out.Results = make([]*StatementResult, len(outcome.Results))
	for i, result := range outcome.Results {
		cloned := *result
		cloned.Rows = cloneRows(result.Rows)
		out.Results[i] = &cloned
	}
	return out
}

func cloneRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		copyRow := make(map[string]any, len(row))
		for key, value := range row {
			copyRow[key] = value
		}
		out[i] = copyRow
	}
	return out
}

func estimateOutcomeCost(outcome *Outcome) int64 {
	if outcome == nil {
		return 1
	}

	var total int64
	for _, result := range outcome.Results {
		total += int64(len(result.SQL))
		total += estimateRowsCost(result.Rows)
	}

	if total <= 0 {
		return 1
	}
	return total
}

func estimateRowsCost(rows []map[string]any) int64 {
	var total int64
	for _, row := range rows {
		if row == nil {
			continue
		}
		// Map entry overhead plus key/value estimation.
		total += int64(len(row) * 16)
		for key, value := range row {
			total += int64(len(key))
			total += estimateValueCost(value)
		}
	}
	return total
}

func estimateValueCost(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val))
	case []byte:
		return int64(len(val))
	case bool:
		return 1
	case int, int32, int64:
		return 8
	case float32:
		return 4
	case float64:
		return 8
	case time.Time:
		return 16
	default:
		// Fallback for uncommon/custom types.
		return int64(len(fmt.Sprintf("%v", val)))
	}
}
