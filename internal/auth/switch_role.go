package auth

import (
	"context"
	"errors"
	"time"

	pkgAuth "github.com/felipecardoza/agrolink-backend/pkg/auth"
	"github.com/felipecardoza/agrolink-backend/pkg/auth/session"
	"github.com/felipecardoza/agrolink-backend/pkg/config"
	"github.com/felipecardoza/agrolink-backend/pkg/db/models"
	"github.com/felipecardoza/agrolink-backend/pkg/enums"
	pkgerrors "github.com/felipecardoza/agrolink-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SwitchRoleInput captures the data required to move a user between the
// buyer and farmer sides of the marketplace.
type SwitchRoleInput struct {
	UserID        uuid.UUID
	Role          enums.UserRole
	AccessTokenID string
	RefreshToken  string
}

// SwitchRoleResult returns the tokens issued after switching roles.
type SwitchRoleResult struct {
	AccessToken  string
	RefreshToken string
	Role         enums.UserRole
}

// SwitchRoleService is the interface exposed to the controller.
type SwitchRoleService interface {
	Switch(ctx context.Context, input SwitchRoleInput) (*SwitchRoleResult, error)
}

type switchRoleService struct {
	users   switchUserRepository
	session switchSessionRotator
	jwtCfg  config.JWTConfig
}

type switchUserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

type switchSessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
}

// SwitchRoleServiceParams bundles dependencies for the switch flow.
type SwitchRoleServiceParams struct {
	UserRepo       switchUserRepository
	SessionManager switchSessionRotator
	JWTConfig      config.JWTConfig
}

// NewSwitchRoleService constructs the service.
func NewSwitchRoleService(params SwitchRoleServiceParams) (SwitchRoleService, error) {
	if params.UserRepo == nil {
		return nil, errors.New("user repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &switchRoleService{
		users:   params.UserRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
	}, nil
}

func (s *switchRoleService) Switch(ctx context.Context, input SwitchRoleInput) (*SwitchRoleResult, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if user.Role != input.Role {
		if err := s.users.UpdateRole(ctx, input.UserID, input.Role); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
		}
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, input.AccessTokenID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	payload := pkgAuth.AccessTokenPayload{
		UserID:    input.UserID,
		Role:      input.Role,
		KYCStatus: user.KYCStatus,
		JTI:       newAccessID,
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SwitchRoleResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		Role:         input.Role,
	}, nil
}
