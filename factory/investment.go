/*
Package factory converts investment records into engine input.

PURPOSE:
  Investment records arrive as JSON (HTTP bodies, scenario files, stored
  rows). The factory validates their structure and builds the immutable
  commission.Investment the engine consumes. Rates are NOT resolved here;
  see package rates.

JSON SCHEMA:
  {
    "id": "inv-001",                 // optional, generated when empty
    "amount": "100000",              // string or number
    "deposit_date": "2024-01-10",    // any time suffix is ignored
    "commitment_months": 12,
    "liquidity": "monthly",          // monthly|semiannual|annual|biennial|triennial
    "investor_id": "c-17",
    "advisor_id": "adv-3",           // optional: no advisor, no advisor commission
    "office_id": "off-1",            // optional
    "payout_start_days": 60,         // optional, default 0
    "advisor_rate": "0.03"           // optional per-role overrides
  }

DATE HANDLING:
  ToInvestment returns a *DateError for a deposit date that cannot be parsed.
  What to do about it (reject or substitute today) is the caller's decision,
  see DatePolicy.

SEE ALSO:
  - commission/types.go: Investment
  - rates/resolver.go: rate resolution
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// InvestmentJSON is the JSON representation of an investment record.
type InvestmentJSON struct {
	ID               string           `json:"id"`
	Amount           decimal.Decimal  `json:"amount"`
	DepositDate      string           `json:"deposit_date" validate:"required"`
	CommitmentMonths int              `json:"commitment_months" validate:"required,gt=0,lte=600"`
	Liquidity        string           `json:"liquidity" validate:"required"`
	InvestorID       string           `json:"investor_id" validate:"required"`
	AdvisorID        string           `json:"advisor_id,omitempty"`
	OfficeID         string           `json:"office_id,omitempty"`
	PayoutStartDays  *int             `json:"payout_start_days,omitempty" validate:"omitempty,gte=0,lte=18250"`
	AdvisorRate      *decimal.Decimal `json:"advisor_rate,omitempty"`
	OfficeRate       *decimal.Decimal `json:"office_rate,omitempty"`
	InvestorRate     *decimal.Decimal `json:"investor_rate,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// DateError reports an unparseable date field.
type DateError struct {
	Field string
	Value string
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DateError) Unwrap() error { return e.Err }

// FieldError is one failed structural check.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every failed structural check of a record.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return "invalid investment: " + strings.Join(parts, ", ")
}

// IsInputError reports whether err was caused by the record itself.
func IsInputError(err error) bool {
	var dateErr *DateError
	var valErr *ValidationError
	return errors.As(err, &dateErr) || errors.As(err, &valErr) || commission.IsClientError(err)
}

// =============================================================================
// INVESTMENT FACTORY
// =============================================================================

// InvestmentFactory validates records and builds engine input.
type InvestmentFactory struct {
	validate *validator.Validate
}

func NewInvestmentFactory() *InvestmentFactory {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &InvestmentFactory{validate: v}
}

// Parse decodes and builds a single record.
func (f *InvestmentFactory) Parse(data []byte) (InvestmentJSON, commission.Investment, error) {
	var rec InvestmentJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, commission.Investment{}, fmt.Errorf("decode investment: %w", err)
	}
	inv, err := f.ToInvestment(&rec)
	return rec, inv, err
}

// Validate runs the structural checks on rec.
func (f *InvestmentFactory) Validate(rec InvestmentJSON) error {
	err := f.validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// ToInvestment builds the engine input for rec. A missing ID is generated
// and written back to rec. Rates not overridden on the record are left
// unset for the rate resolver to fill.
func (f *InvestmentFactory) ToInvestment(rec *InvestmentJSON) (commission.Investment, error) {
	if err := f.Validate(*rec); err != nil {
		return commission.Investment{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	deposit, err := ParseDate("deposit_date", rec.DepositDate)
	if err != nil {
		return commission.Investment{}, err
	}
	liq, err := commission.ParseLiquidity(rec.Liquidity)
	if err != nil {
		return commission.Investment{}, &commission.InputError{InvestmentID: rec.ID, Field: "liquidity", Value: rec.Liquidity, Err: err}
	}

	inv := commission.Investment{
		ID:               rec.ID,
		Amount:           rec.Amount,
		DepositDate:      deposit,
		CommitmentMonths: rec.CommitmentMonths,
		Liquidity:        liq,
		AdvisorRate:      optionalRate(rec.AdvisorRate),
		OfficeRate:       optionalRate(rec.OfficeRate),
		InvestorRate:     optionalRate(rec.InvestorRate),
	}
	if rec.PayoutStartDays != nil {
		inv.PayoutStartDays = *rec.PayoutStartDays
	}
	if err := commission.Validate(inv); err != nil {
		return commission.Investment{}, err
	}
	return inv, nil
}

// ToJSON is the inverse of ToInvestment for the fields the engine keeps.
func (f *InvestmentFactory) ToJSON(inv commission.Investment, investorID, advisorID, officeID string) InvestmentJSON {
	p := inv.PayoutStartDays
	return InvestmentJSON{
		ID:               inv.ID,
		Amount:           inv.Amount,
		DepositDate:      inv.DepositDate.String(),
		CommitmentMonths: inv.CommitmentMonths,
		Liquidity:        string(inv.Liquidity),
		InvestorID:       investorID,
		AdvisorID:        advisorID,
		OfficeID:         officeID,
		PayoutStartDays:  &p,
	}
}

// ParseDate parses an ISO date for field, ignoring any time suffix.
func ParseDate(field, value string) (calendar.Date, error) {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, &DateError{Field: field, Value: value, Err: err}
	}
	return d, nil
}

func optionalRate(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return commission.NoRate
	}
	return commission.Rate(*d)
}
