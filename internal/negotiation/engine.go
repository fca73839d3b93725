package negotiation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

// Decision is the terminal response to a negotiation.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ApplyCounter validates and applies a counter move. The resulting status
// always reflects who just moved, not whose turn is next. Both OfferedPrice
// and CounterPrice track the newest price on the table.
func ApplyCounter(negotiation models.Negotiation, actor enums.UserRole, newPrice decimal.Decimal, notes *string) (models.Negotiation, error) {
	if negotiation.Status.IsTerminal() {
		return negotiation, pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation already closed")
	}
	if !negotiation.Status.IsValid() {
		return negotiation, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown negotiation status")
	}
	if newPrice.LessThanOrEqual(decimal.Zero) {
		return negotiation, pkgerrors.New(pkgerrors.CodeValidation, "counter price must be positive")
	}

	switch actor {
	case enums.UserRoleFarmer:
		negotiation.Status = enums.NegotiationStatusCounterByFarmer
	case enums.UserRoleBuyer:
		negotiation.Status = enums.NegotiationStatusCounterByBuyer
	default:
		return negotiation, pkgerrors.New(pkgerrors.CodeValidation, "unknown actor role")
	}

	price := newPrice
	negotiation.OfferedPrice = price
	negotiation.CounterPrice = &price
	if notes != nil {
		negotiation.Notes = notes
	}
	negotiation.UpdatedAt = time.Now().UTC()
	return negotiation, nil
}

// ApplyResponse moves a non-terminal negotiation to its terminal state. On
// acceptance the settlement price is the counter price when any counter
// state (including the legacy undifferentiated one) is present, otherwise
// the offered price.
func ApplyResponse(negotiation models.Negotiation, decision Decision) (models.Negotiation, error) {
	if negotiation.Status.IsTerminal() {
		return negotiation, pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation already closed")
	}
	if !negotiation.Status.IsValid() {
		return negotiation, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown negotiation status")
	}

	switch decision {
	case DecisionAccept:
		final := settlementPrice(negotiation)
		negotiation.FinalPrice = &final
		negotiation.Status = enums.NegotiationStatusAccepted
	case DecisionReject:
		negotiation.Status = enums.NegotiationStatusRejected
	default:
		return negotiation, pkgerrors.New(pkgerrors.CodeValidation, "unknown decision")
	}
	negotiation.UpdatedAt = time.Now().UTC()
	return negotiation, nil
}

func settlementPrice(negotiation models.Negotiation) decimal.Decimal {
	if negotiation.Status.HasCounter() && negotiation.CounterPrice != nil {
		return *negotiation.CounterPrice
	}
	return negotiation.OfferedPrice
}
