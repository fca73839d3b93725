package auth

import (
	"context"
	"testing"

	"github.com/felipecardoza/agrolink-backend/internal/users"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	pkgmodels "github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepo struct {
	data    map[string]*pkgmodels.User
	created *pkgmodels.User
}

func newStubRegisterUserRepo() *stubRegisterUserRepo {
	return &stubRegisterUserRepo{data: map[string]*pkgmodels.User{}}
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	user := dto.ToModel()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubRegisterUserRepo) {
	t.Helper()
	userRepo := newStubRegisterUserRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, userRepo
}

func sampleRegisterRequest(email string, role enums.UserRole) RegisterRequest {
	req := RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Email:     email,
		Password:  "Secret123!",
		Role:      role,
		AcceptTOS: true,
	}
	if role == enums.UserRoleFarmer {
		farm := "Rivera Organics"
		region := "Valle Central"
		req.FarmName = &farm
		req.Region = &region
	}
	return req
}

func TestRegisterCreatesBuyer(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)

	dto, err := svc.Register(context.Background(), sampleRegisterRequest("New@Example.com", enums.UserRoleBuyer))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if userRepo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if userRepo.created.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %s", userRepo.created.Email)
	}
	if userRepo.created.PasswordHash == "Secret123!" {
		t.Fatalf("password must not be stored in plaintext")
	}
	if dto.Role != enums.UserRoleBuyer {
		t.Fatalf("expected buyer role, got %s", dto.Role)
	}
	if dto.KYCStatus != enums.KYCStatusPending {
		t.Fatalf("new accounts must start with pending kyc, got %s", dto.KYCStatus)
	}
}

func TestRegisterFarmerRequiresFarmName(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	req := sampleRegisterRequest("farmer@example.com", enums.UserRoleFarmer)
	req.FarmName = nil

	_, err := svc.Register(context.Background(), req)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, userRepo := newRegisterTestService(t)
	userRepo.data["taken@example.com"] = &pkgmodels.User{
		ID:    uuid.New(),
		Email: "taken@example.com",
	}

	_, err := svc.Register(context.Background(), sampleRegisterRequest("taken@example.com", enums.UserRoleBuyer))
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterRejectsMissingTOS(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	req := sampleRegisterRequest("new@example.com", enums.UserRoleBuyer)
	req.AcceptTOS = false

	_, err := svc.Register(context.Background(), req)
	assertCode(t, err, pkgerrors.CodeValidation)
}
