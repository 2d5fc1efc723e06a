package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"go.uber.org/zap"
)

// =============================================================================
// FALLBACK POLICY
// =============================================================================

// Policy decides what a failed lookup turns into.
type Policy string

const (
	// PolicyZero leaves the rate unset so the engine computes with zero and
	// records a RateIssue.
	PolicyZero Policy = "zero"
	// PolicyReject fails the resolution.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyZero, PolicyReject:
		return p, nil
	case "":
		return PolicyZero, nil
	default:
		return "", fmt.Errorf("unknown rate policy %q", s)
	}
}

// =============================================================================
// RESOLVER
// =============================================================================

// Participants names the stakeholders of an investment. An empty AdvisorID
// or OfficeID means the role is not present and earns nothing.
type Participants struct {
	InvestorID string
	AdvisorID  string
	OfficeID   string
}

func (p Participants) has(role commission.Role) bool {
	switch role {
	case commission.RoleAdvisor:
		return p.AdvisorID != ""
	case commission.RoleOffice:
		return p.OfficeID != ""
	default:
		return true
	}
}

// Resolver fills the rates of an Investment from a Provider.
type Resolver struct {
	provider Provider
	policy   Policy
	log      *zap.Logger
}

func NewResolver(provider Provider, policy Policy, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyZero
	}
	return &Resolver{provider: provider, policy: policy, log: log}
}

func (r *Resolver) Policy() Policy { return r.policy }

// Resolve looks up every role whose rate is not already set on inv. Roles
// without a participant get an explicit zero. Context cancellation is always
// returned as an error; other lookup failures follow the policy.
func (r *Resolver) Resolve(ctx context.Context, inv *commission.Investment, parts Participants) error {
	for _, role := range commission.Roles() {
		if inv.RateFor(role).Valid {
			continue
		}
		if !parts.has(role) {
			setRate(inv, role, commission.Rate(decimal.Zero))
			continue
		}

		rate, err := r.provider.GetRate(ctx, string(role), inv.CommitmentMonths, inv.Liquidity)
		if err == nil {
			setRate(inv, role, commission.Rate(rate))
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		key := Key{RoleTypeID: string(role), CommitmentMonths: inv.CommitmentMonths, Liquidity: inv.Liquidity}
		if r.policy == PolicyReject {
			return &LookupError{Key: key, Err: err}
		}
		r.log.Warn("rate lookup failed, using zero",
			zap.String("investment_id", inv.ID),
			zap.String("role", string(role)),
			zap.Stringer("key", key),
			zap.Bool("not_configured", errors.Is(err, ErrNoRate)),
			zap.Error(err),
		)
		setRate(inv, role, commission.NoRate)
	}
	return nil
}

func setRate(inv *commission.Investment, role commission.Role, rate decimal.NullDecimal) {
	switch role {
	case commission.RoleAdvisor:
		inv.AdvisorRate = rate
	case commission.RoleOffice:
		inv.OfficeRate = rate
	case commission.RoleInvestor:
		inv.InvestorRate = rate
	}
}
