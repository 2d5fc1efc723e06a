package commission

import "github.com/warp/commission-engine/calendar"

// =============================================================================
// ELIGIBILITY GATE - Waiting period before a role can be paid
// =============================================================================

// IsEligible reports whether commission starting payoutStartDays after the
// deposit has started by cutoff. The boundary is inclusive.
func IsEligible(deposit, cutoff calendar.Date, payoutStartDays int) bool {
	return deposit.AddDays(payoutStartDays).BeforeOrEqual(cutoff)
}

// FirstEligibleCutoffIndex scans the commitment's cutoffs in order and
// returns the index of the first eligible one. ok is false when the waiting
// period outlasts the whole commitment.
func FirstEligibleCutoffIndex(deposit calendar.Date, firstCutoff calendar.CutoffPeriod, payoutStartDays, commitmentMonths int) (index int, ok bool) {
	for i := 0; i < commitmentMonths; i++ {
		if IsEligible(deposit, firstCutoff.Advance(i).Date, payoutStartDays) {
			return i, true
		}
	}
	return 0, false
}

// evaluateEligibility packages the gate outcome for a role.
func evaluateEligibility(deposit calendar.Date, firstCutoff calendar.CutoffPeriod, rules RoleRules, months int) Eligibility {
	e := Eligibility{CommissionStart: deposit.AddDays(rules.PayoutStartDays)}
	idx, ok := FirstEligibleCutoffIndex(deposit, firstCutoff, rules.PayoutStartDays, months)
	if !ok {
		return e
	}
	e.Reached = true
	e.Index = idx
	e.Cutoff = firstCutoff.Advance(idx).Date
	return e
}
