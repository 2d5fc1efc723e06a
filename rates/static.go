package rates

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"gopkg.in/yaml.v3"
)

// StaticProvider serves rates from an in-memory table.
type StaticProvider struct {
	mu    sync.RWMutex
	table map[Key]decimal.Decimal
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{table: make(map[Key]decimal.Decimal)}
}

// Set records a rate, replacing any previous value for the key.
func (p *StaticProvider) Set(k Key, rate decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table[k] = rate
}

func (p *StaticProvider) GetRate(_ context.Context, roleTypeID string, commitmentMonths int, liquidity commission.Liquidity) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.table[Key{RoleTypeID: roleTypeID, CommitmentMonths: commitmentMonths, Liquidity: liquidity}]
	if !ok {
		return decimal.Zero, ErrNoRate
	}
	return r, nil
}

// Entries returns the table sorted by role, commitment and liquidity.
func (p *StaticProvider) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entry, 0, len(p.table))
	for k, r := range p.table {
		out = append(out, Entry{Role: k.RoleTypeID, CommitmentMonths: k.CommitmentMonths, Liquidity: string(k.Liquidity), Rate: r})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.CommitmentMonths != b.CommitmentMonths {
			return a.CommitmentMonths < b.CommitmentMonths
		}
		return a.Liquidity < b.Liquidity
	})
	return out
}

// =============================================================================
// SEED FILE
// =============================================================================
//
//   rates:
//     - role: advisor
//       commitment_months: 12
//       liquidity: monthly
//       rate: "0.03"

// Entry is one row of a seed file.
type Entry struct {
	Role             string          `yaml:"role" json:"role"`
	CommitmentMonths int             `yaml:"commitment_months" json:"commitment_months"`
	Liquidity        string          `yaml:"liquidity" json:"liquidity"`
	Rate             decimal.Decimal `yaml:"rate" json:"rate"`
}

// Key normalizes the entry into a lookup key.
func (e Entry) Key() (Key, error) {
	liq, err := commission.ParseLiquidity(e.Liquidity)
	if err != nil {
		return Key{}, err
	}
	role := strings.ToLower(strings.TrimSpace(e.Role))
	if role == "" {
		return Key{}, fmt.Errorf("rate entry: role is required")
	}
	if e.CommitmentMonths <= 0 {
		return Key{}, fmt.Errorf("rate entry %s: commitment_months must be positive", role)
	}
	return Key{RoleTypeID: role, CommitmentMonths: e.CommitmentMonths, Liquidity: liq}, nil
}

type seedFile struct {
	Rates []Entry `yaml:"rates"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) ([]Entry, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rate seed: %w", err)
	}
	for i, e := range f.Rates {
		if _, err := e.Key(); err != nil {
			return nil, fmt.Errorf("rate seed entry %d: %w", i, err)
		}
	}
	return f.Rates, nil
}

// LoadStaticFile builds a StaticProvider from a YAML seed file.
func LoadStaticFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate seed: %w", err)
	}
	entries, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	p := NewStaticProvider()
	for _, e := range entries {
		k, _ := e.Key()
		p.Set(k, e.Rate)
	}
	return p, nil
}
