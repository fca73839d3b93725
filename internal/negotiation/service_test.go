package negotiation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/felipecardoza/agrolink-backend/pkg/logger"
)

type fakeStore struct {
	createFn func(ctx context.Context, n *models.Negotiation) (*models.Negotiation, error)
	updateFn func(ctx context.Context, n *models.Negotiation) (*models.Negotiation, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)

	createCalls int
	updateCalls int
}

func (f *fakeStore) CreateNegotiation(ctx context.Context, n *models.Negotiation) (*models.Negotiation, error) {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	n.ID = uuid.New()
	return n, nil
}

func (f *fakeStore) UpdateNegotiation(ctx context.Context, n *models.Negotiation) (*models.Negotiation, error) {
	f.updateCalls++
	if f.updateFn != nil {
		return f.updateFn(ctx, n)
	}
	return n, nil
}

func (f *fakeStore) GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
}

type fakeProducts struct {
	byIDFn func(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

func (f *fakeProducts) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if f.byIDFn != nil {
		return f.byIDFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type fakeSettlements struct {
	recordFn   func(ctx context.Context, n models.Negotiation, actorID uuid.UUID) error
	hasEventFn func(ctx context.Context, negotiationID uuid.UUID, eventType enums.SettlementEventType) (bool, error)
	calls      int
	recorded   map[uuid.UUID]bool
}

func (f *fakeSettlements) RecordAcceptance(ctx context.Context, n models.Negotiation, actorID uuid.UUID) error {
	f.calls++
	if f.recordFn != nil {
		return f.recordFn(ctx, n, actorID)
	}
	if f.recorded == nil {
		f.recorded = map[uuid.UUID]bool{}
	}
	f.recorded[n.ID] = true
	return nil
}

func (f *fakeSettlements) HasEvent(ctx context.Context, negotiationID uuid.UUID, eventType enums.SettlementEventType) (bool, error) {
	if f.hasEventFn != nil {
		return f.hasEventFn(ctx, negotiationID, eventType)
	}
	return f.recorded[negotiationID], nil
}

func activeProduct(farmerID uuid.UUID) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		FarmerID:   farmerID,
		Title:      "bulk durum wheat",
		UnitPrice:  decimal.NewFromInt(52),
		MinBulkQty: 100,
		IsActive:   true,
	}
}

func newTestService(t *testing.T, store *fakeStore, products *fakeProducts, settlements *fakeSettlements) Service {
	t.Helper()
	svc, err := NewService(store, products, settlements, logger.New(logger.Options{ServiceName: "test"}), 100)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateRejectsQuantityBelowBulkMinimum(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, &fakeProducts{}, &fakeSettlements{})

	_, err := svc.Create(context.Background(), CreateParams{
		BuyerID:      uuid.New(),
		ProductID:    uuid.New(),
		Quantity:     99,
		OfferedPrice: decimal.NewFromInt(50),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatalf("expected no remote write, got %d", store.createCalls)
	}
}

func TestCreateOpensPendingNegotiation(t *testing.T) {
	farmerID := uuid.New()
	product := activeProduct(farmerID)
	store := &fakeStore{}
	products := &fakeProducts{byIDFn: func(_ context.Context, id uuid.UUID) (*models.Product, error) {
		if id != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return product, nil
	}}
	svc := newTestService(t, store, products, &fakeSettlements{})

	created, err := svc.Create(context.Background(), CreateParams{
		BuyerID:      uuid.New(),
		ProductID:    product.ID,
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(48),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.NegotiationStatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.FarmerID != farmerID {
		t.Fatal("expected farmer id from product")
	}
	if !created.InitialPrice.Equal(product.UnitPrice) {
		t.Fatalf("expected initial price %s, got %s", product.UnitPrice, created.InitialPrice)
	}
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	product := activeProduct(uuid.New())
	product.IsActive = false
	store := &fakeStore{}
	products := &fakeProducts{byIDFn: func(context.Context, uuid.UUID) (*models.Product, error) {
		return product, nil
	}}
	svc := newTestService(t, store, products, &fakeSettlements{})

	_, err := svc.Create(context.Background(), CreateParams{
		BuyerID:      uuid.New(),
		ProductID:    product.ID,
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(48),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatal("expected no remote write for inactive product")
	}
}

func TestCounterRequiresMatchingParticipant(t *testing.T) {
	buyerID := uuid.New()
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		FarmerID:     uuid.New(),
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(50),
		Status:       enums.NegotiationStatusPending,
	}
	store := &fakeStore{getFn: func(context.Context, uuid.UUID) (*models.Negotiation, error) {
		copy := *negotiation
		return &copy, nil
	}}
	svc := newTestService(t, store, &fakeProducts{}, &fakeSettlements{})

	_, err := svc.Counter(context.Background(), CounterParams{
		NegotiationID: negotiation.ID,
		ActorID:       uuid.New(),
		ActorRole:     enums.UserRoleBuyer,
		NewPrice:      decimal.NewFromInt(47),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	updated, err := svc.Counter(context.Background(), CounterParams{
		NegotiationID: negotiation.ID,
		ActorID:       buyerID,
		ActorRole:     enums.UserRoleBuyer,
		NewPrice:      decimal.NewFromInt(47),
	})
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if updated.Status != enums.NegotiationStatusCounterByBuyer {
		t.Fatalf("expected counter_by_buyer, got %s", updated.Status)
	}
}

func TestRespondAcceptRecordsSettlement(t *testing.T) {
	buyerID := uuid.New()
	counter := decimal.NewFromInt(45)
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		FarmerID:     uuid.New(),
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(50),
		CounterPrice: &counter,
		Status:       enums.NegotiationStatusCounterByFarmer,
	}
	store := &fakeStore{getFn: func(context.Context, uuid.UUID) (*models.Negotiation, error) {
		copy := *negotiation
		return &copy, nil
	}}
	settlements := &fakeSettlements{}
	svc := newTestService(t, store, &fakeProducts{}, settlements)

	accepted, err := svc.Respond(context.Background(), RespondParams{
		NegotiationID: negotiation.ID,
		ActorID:       buyerID,
		Decision:      DecisionAccept,
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if accepted.FinalPrice == nil || !accepted.FinalPrice.Equal(counter) {
		t.Fatalf("expected final price 45, got %v", accepted.FinalPrice)
	}
	if settlements.calls != 1 {
		t.Fatalf("expected one settlement record, got %d", settlements.calls)
	}
}

func TestRespondAcceptRecordsSettlementOnce(t *testing.T) {
	buyerID := uuid.New()
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		FarmerID:     uuid.New(),
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(50),
		Status:       enums.NegotiationStatusPending,
	}
	// The store hands out the pre-accept state on every load, as it would
	// when two accepts race past the state check.
	store := &fakeStore{getFn: func(context.Context, uuid.UUID) (*models.Negotiation, error) {
		copy := *negotiation
		return &copy, nil
	}}
	settlements := &fakeSettlements{}
	svc := newTestService(t, store, &fakeProducts{}, settlements)

	params := RespondParams{
		NegotiationID: negotiation.ID,
		ActorID:       buyerID,
		Decision:      DecisionAccept,
	}
	if _, err := svc.Respond(context.Background(), params); err != nil {
		t.Fatalf("first respond: %v", err)
	}
	if _, err := svc.Respond(context.Background(), params); err != nil {
		t.Fatalf("second respond: %v", err)
	}
	if settlements.calls != 1 {
		t.Fatalf("expected a single settlement record across repeated accepts, got %d", settlements.calls)
	}
}

func TestRespondAcceptSurvivesSettlementFailure(t *testing.T) {
	buyerID := uuid.New()
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		FarmerID:     uuid.New(),
		Quantity:     120,
		OfferedPrice: decimal.NewFromInt(50),
		Status:       enums.NegotiationStatusPending,
	}
	store := &fakeStore{getFn: func(context.Context, uuid.UUID) (*models.Negotiation, error) {
		copy := *negotiation
		return &copy, nil
	}}
	settlements := &fakeSettlements{recordFn: func(context.Context, models.Negotiation, uuid.UUID) error {
		return errors.New("ledger unavailable")
	}}
	svc := newTestService(t, store, &fakeProducts{}, settlements)

	accepted, err := svc.Respond(context.Background(), RespondParams{
		NegotiationID: negotiation.ID,
		ActorID:       buyerID,
		Decision:      DecisionAccept,
	})
	if err != nil {
		t.Fatalf("acceptance must not fail on settlement error: %v", err)
	}
	if accepted.Status != enums.NegotiationStatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
}

func TestRespondRejectsNonParticipant(t *testing.T) {
	negotiation := &models.Negotiation{
		ID:           uuid.New(),
		BuyerID:      uuid.New(),
		FarmerID:     uuid.New(),
		OfferedPrice: decimal.NewFromInt(50),
		Status:       enums.NegotiationStatusPending,
	}
	store := &fakeStore{getFn: func(context.Context, uuid.UUID) (*models.Negotiation, error) {
		copy := *negotiation
		return &copy, nil
	}}
	svc := newTestService(t, store, &fakeProducts{}, &fakeSettlements{})

	_, err := svc.Respond(context.Background(), RespondParams{
		NegotiationID: negotiation.ID,
		ActorID:       uuid.New(),
		Decision:      DecisionAccept,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
