package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
)

type fakeRepo struct {
	carts map[uuid.UUID]*models.CartRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{carts: map[uuid.UUID]*models.CartRecord{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) CartRepository { return f }

func (f *fakeRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	record, ok := f.carts[buyerID]
	if !ok {
		return nil, nil
	}
	return record, nil
}

func (f *fakeRepo) Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	f.carts[record.BuyerID] = record
	return record, nil
}

func (f *fakeRepo) UpsertItem(ctx context.Context, item *models.CartItem) error {
	for _, record := range f.carts {
		if record.ID != item.CartID {
			continue
		}
		kept := record.Items[:0]
		for _, existing := range record.Items {
			if existing.ProductID != item.ProductID {
				kept = append(kept, existing)
			}
		}
		record.Items = append(kept, *item)
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
}

func (f *fakeRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	for _, record := range f.carts {
		if record.ID != cartID {
			continue
		}
		kept := record.Items[:0]
		for _, existing := range record.Items {
			if existing.ID != itemID {
				kept = append(kept, existing)
			}
		}
		record.Items = kept
	}
	return nil
}

func (f *fakeRepo) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error {
	delete(f.carts, buyerID)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fakeProducts struct {
	productByIDFn func(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

func (f *fakeProducts) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return f.productByIDFn(ctx, id)
}

type fakeNegotiations struct {
	getFn func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
}

func (f *fakeNegotiations) GetNegotiation(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	return f.getFn(ctx, id)
}

func testService(t *testing.T, products *fakeProducts, negotiations *fakeNegotiations) (Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	if products == nil {
		products = &fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}}
	}
	if negotiations == nil {
		negotiations = &fakeNegotiations{getFn: func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
		}}
	}
	svc, err := NewService(repo, fakeTx{}, products, negotiations, decimal.NewFromInt(199))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func listingProduct(farmerID uuid.UUID, price int64) *models.Product {
	return &models.Product{
		ID:        uuid.New(),
		FarmerID:  farmerID,
		UnitPrice: decimal.NewFromInt(price),
		IsActive:  true,
	}
}

func TestUpsertItemListingPrice(t *testing.T) {
	farmerID := uuid.New()
	product := listingProduct(farmerID, 3)
	svc, _ := testService(t, &fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
		return product, nil
	}}, nil)

	buyerID := uuid.New()
	record, err := svc.UpsertItem(context.Background(), buyerID, UpsertItemInput{
		ProductID: product.ID,
		Quantity:  50,
	})
	if err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(record.Items))
	}
	item := record.Items[0]
	if !item.UnitPrice.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unit price = %s, want 3", item.UnitPrice)
	}
	if !item.LineSubtotal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("line subtotal = %s, want 150", item.LineSubtotal)
	}
	if item.FarmerID != farmerID {
		t.Fatalf("farmer id not carried onto line")
	}
}

func TestUpsertItemNegotiatedPrice(t *testing.T) {
	buyerID := uuid.New()
	farmerID := uuid.New()
	product := listingProduct(farmerID, 10)
	final := decimal.NewFromFloat(7.50)
	negotiation := &models.Negotiation{
		ID:         uuid.New(),
		ProductID:  product.ID,
		BuyerID:    buyerID,
		FarmerID:   farmerID,
		Quantity:   120,
		Status:     enums.NegotiationStatusAccepted,
		FinalPrice: &final,
	}

	svc, _ := testService(t,
		&fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return product, nil
		}},
		&fakeNegotiations{getFn: func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
			return negotiation, nil
		}},
	)

	record, err := svc.UpsertItem(context.Background(), buyerID, UpsertItemInput{
		ProductID:     product.ID,
		Quantity:      1, // ignored: negotiated lines carry the negotiated quantity
		NegotiationID: &negotiation.ID,
	})
	if err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	item := record.Items[0]
	if !item.UnitPrice.Equal(final) {
		t.Fatalf("unit price = %s, want negotiated %s", item.UnitPrice, final)
	}
	if item.Quantity != 120 {
		t.Fatalf("quantity = %d, want negotiated 120", item.Quantity)
	}
	if item.NegotiationID == nil || *item.NegotiationID != negotiation.ID {
		t.Fatalf("negotiation id not recorded on line")
	}
}

func TestUpsertItemRejectsUnsettledNegotiation(t *testing.T) {
	buyerID := uuid.New()
	product := listingProduct(uuid.New(), 10)
	negotiation := &models.Negotiation{
		ID:        uuid.New(),
		ProductID: product.ID,
		BuyerID:   buyerID,
		Quantity:  120,
		Status:    enums.NegotiationStatusCounterByFarmer,
	}

	svc, _ := testService(t,
		&fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return product, nil
		}},
		&fakeNegotiations{getFn: func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
			return negotiation, nil
		}},
	)

	_, err := svc.UpsertItem(context.Background(), buyerID, UpsertItemInput{
		ProductID:     product.ID,
		NegotiationID: &negotiation.ID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpsertItemRejectsForeignNegotiation(t *testing.T) {
	product := listingProduct(uuid.New(), 10)
	final := decimal.NewFromInt(8)
	negotiation := &models.Negotiation{
		ID:         uuid.New(),
		ProductID:  product.ID,
		BuyerID:    uuid.New(),
		Status:     enums.NegotiationStatusAccepted,
		Quantity:   100,
		FinalPrice: &final,
	}

	svc, _ := testService(t,
		&fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return product, nil
		}},
		&fakeNegotiations{getFn: func(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
			return negotiation, nil
		}},
	)

	_, err := svc.UpsertItem(context.Background(), uuid.New(), UpsertItemInput{
		ProductID:     product.ID,
		NegotiationID: &negotiation.ID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestEnsureCheckoutAllowed(t *testing.T) {
	svc, _ := testService(t, nil, nil)

	line := func(subtotal int64) models.CartItem {
		return models.CartItem{ID: uuid.New(), LineSubtotal: decimal.NewFromInt(subtotal)}
	}

	cases := []struct {
		name    string
		cart    *models.CartRecord
		wantErr bool
	}{
		{"empty cart", &models.CartRecord{}, true},
		{"below minimum", &models.CartRecord{Items: []models.CartItem{line(100), line(98)}}, true},
		{"exactly minimum", &models.CartRecord{Items: []models.CartItem{line(100), line(99)}}, false},
		{"above minimum", &models.CartRecord{Items: []models.CartItem{line(250)}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.EnsureCheckoutAllowed(tc.cart)
			if tc.wantErr {
				if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClearRemovesCart(t *testing.T) {
	product := listingProduct(uuid.New(), 5)
	svc, repo := testService(t, &fakeProducts{productByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
		return product, nil
	}}, nil)

	buyerID := uuid.New()
	if _, err := svc.UpsertItem(context.Background(), buyerID, UpsertItemInput{ProductID: product.ID, Quantity: 10}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if err := svc.Clear(context.Background(), buyerID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(repo.carts) != 0 {
		t.Fatalf("expected cart removed, %d remain", len(repo.carts))
	}
	record, err := svc.Get(context.Background(), buyerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(record.Items) != 0 {
		t.Fatalf("expected empty cart after clear")
	}
}
