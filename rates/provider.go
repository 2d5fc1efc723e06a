/*
Package rates resolves per-role yield rates before the commission engine runs.

PURPOSE:
  The engine consumes pre-resolved rates on commission.Investment. This
  package owns the I/O side of that contract: looking rates up through a
  Provider, applying the fallback policy when a lookup fails, and caching
  lookups in Redis.

KEY CONCEPTS:
  Provider:     GetRate(ctx, roleTypeID, commitmentMonths, liquidity)
  ErrNoRate:    "nothing configured" (distinct from I/O failure)
  Resolver:     fills the rates of an Investment, zero-fallback or reject
  RedisCache:   read-through Provider decorator with a TTL

IMPLEMENTATIONS:
  StaticProvider:        in-memory table, optionally loaded from YAML
  store/sqlite.Store:    rate_configs table
  RedisCache:            wraps any of the above

SEE ALSO:
  - commission/types.go: Investment, RateIssue
  - store/sqlite/sqlite.go: persistent rate configuration
*/
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// ErrNoRate is returned by providers when no rate is configured for the key.
var ErrNoRate = errors.New("rates: no rate configured")

// Provider looks up the monthly rate of one role type for an investment shape.
type Provider interface {
	GetRate(ctx context.Context, roleTypeID string, commitmentMonths int, liquidity commission.Liquidity) (decimal.Decimal, error)
}

// Key identifies one rate configuration.
type Key struct {
	RoleTypeID       string
	CommitmentMonths int
	Liquidity        commission.Liquidity
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.RoleTypeID, k.CommitmentMonths, k.Liquidity)
}

// LookupError wraps a failed lookup with its key.
type LookupError struct {
	Key Key
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("rate lookup %s: %v", e.Key, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
