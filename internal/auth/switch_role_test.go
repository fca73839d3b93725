package auth

import (
	"context"
	"testing"

	pkgAuth "github.com/felipecardoza/agrolink-backend/pkg/auth"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubSwitchUserRepo struct {
	user        *models.User
	updatedRole *enums.UserRole
}

func (s *stubSwitchUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubSwitchUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	s.updatedRole = &role
	s.user.Role = role
	return nil
}

func TestSwitchRoleRotatesAndRemints(t *testing.T) {
	cfg := testJWTConfig()
	user := &models.User{
		ID:        uuid.New(),
		Email:     "dual@example.com",
		Role:      enums.UserRoleBuyer,
		KYCStatus: enums.KYCStatusVerified,
		IsActive:  true,
	}
	userRepo := &stubSwitchUserRepo{user: user}
	sessionMgr := newStubSessionManager()
	refresh, err := sessionMgr.Generate(context.Background(), "old-access-id")
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}

	svc, err := NewSwitchRoleService(SwitchRoleServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionMgr,
		JWTConfig:      cfg,
	})
	if err != nil {
		t.Fatalf("new switch role service: %v", err)
	}

	result, err := svc.Switch(context.Background(), SwitchRoleInput{
		UserID:        user.ID,
		Role:          enums.UserRoleFarmer,
		AccessTokenID: "old-access-id",
		RefreshToken:  refresh,
	})
	if err != nil {
		t.Fatalf("switch: %v", err)
	}

	if userRepo.updatedRole == nil || *userRepo.updatedRole != enums.UserRoleFarmer {
		t.Fatalf("expected role update to farmer")
	}
	if result.RefreshToken == refresh {
		t.Fatalf("expected refresh token rotation")
	}
	if _, ok := sessionMgr.tokens["old-access-id"]; ok {
		t.Fatalf("expected old session to be invalidated")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleFarmer {
		t.Fatalf("expected farmer role claim, got %s", claims.Role)
	}
	if claims.KYCStatus != enums.KYCStatusVerified {
		t.Fatalf("kyc status must survive the switch, got %s", claims.KYCStatus)
	}
}

func TestSwitchRoleSameRoleSkipsUpdate(t *testing.T) {
	user := &models.User{
		ID:        uuid.New(),
		Role:      enums.UserRoleBuyer,
		KYCStatus: enums.KYCStatusPending,
		IsActive:  true,
	}
	userRepo := &stubSwitchUserRepo{user: user}
	sessionMgr := newStubSessionManager()
	refresh, _ := sessionMgr.Generate(context.Background(), "access-id")

	svc, err := NewSwitchRoleService(SwitchRoleServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionMgr,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch role service: %v", err)
	}

	if _, err := svc.Switch(context.Background(), SwitchRoleInput{
		UserID:        user.ID,
		Role:          enums.UserRoleBuyer,
		AccessTokenID: "access-id",
		RefreshToken:  refresh,
	}); err != nil {
		t.Fatalf("switch: %v", err)
	}

	if userRepo.updatedRole != nil {
		t.Fatalf("expected no role update for same-role switch")
	}
}

func TestSwitchRoleInvalidRefreshToken(t *testing.T) {
	user := &models.User{
		ID:        uuid.New(),
		Role:      enums.UserRoleBuyer,
		KYCStatus: enums.KYCStatusPending,
		IsActive:  true,
	}
	svc, err := NewSwitchRoleService(SwitchRoleServiceParams{
		UserRepo:       &stubSwitchUserRepo{user: user},
		SessionManager: newStubSessionManager(),
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch role service: %v", err)
	}

	_, err = svc.Switch(context.Background(), SwitchRoleInput{
		UserID:        user.ID,
		Role:          enums.UserRoleFarmer,
		AccessTokenID: "access-id",
		RefreshToken:  "bogus",
	})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestSwitchRoleInvalidRole(t *testing.T) {
	svc, err := NewSwitchRoleService(SwitchRoleServiceParams{
		UserRepo:       &stubSwitchUserRepo{},
		SessionManager: newStubSessionManager(),
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch role service: %v", err)
	}

	_, err = svc.Switch(context.Background(), SwitchRoleInput{
		UserID: uuid.New(),
		Role:   enums.UserRole("admin"),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}
