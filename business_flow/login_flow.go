package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/app/dto"
	"github.com/casaflow/casaflow/app/services"
	"github.com/casaflow/casaflow/models"
	"github.com/casaflow/casaflow/repository"
	"github.com/casaflow/casaflow/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles user authentication
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.SessionDTO, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	tenantRepo   repository.TenantRepository
	memberRepo   repository.TenantMemberRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	memberRepo repository.TenantMemberRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		tenantRepo:   tenantRepo,
		memberRepo:   memberRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates a user with email and password
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	var user *models.User

	resp, err := lf.withLoginTransaction(ctx, func(ctx context.Context) (*dto.LoginResponse, error) {
		var err error
		user, err = lf.userRepo.ByEmail(ctx, request.Email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}

		if !utils.IsTrue(user.IsActive) {
			return nil, ErrAccountInactive
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		accessToken, refreshToken, err := lf.tokenService.GenerateTokens(user.ID)
		if err != nil {
			return nil, err
		}

		if err := lf.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
			return nil, err
		}

		tenants, err := lf.listMemberships(ctx, user.ID)
		if err != nil {
			return nil, err
		}

		return &dto.LoginResponse{
			User: dto.AuthUserDTO{
				ID:        user.ID,
				UUID:      user.UUID.String(),
				Email:     user.Email,
				FullName:  user.FullName,
				IsActive:  user.IsActive,
				CreatedAt: user.CreatedAt.Format(time.RFC3339),
			},
			Session: dto.SessionDTO{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				TokenType:    "Bearer",
				ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
			},
			Tenants: tenants,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		_ = recordAudit(ctx, lf.auditRepo, userID, nil, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %d", resp.User.ID)
	_ = recordAudit(ctx, lf.auditRepo, &resp.User.ID, nil, models.AuditActionLoginSuccess, msg, true, nil, metadata)

	return resp, nil
}

// Refresh rotates a token pair
func (lf *LoginFlowImpl) Refresh(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.SessionDTO, error) {
	accessToken, refreshToken, err := lf.tokenService.RefreshToken(request.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	return &dto.SessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
	}, nil
}

func (lf *LoginFlowImpl) listMemberships(ctx context.Context, userID uint) ([]dto.TenantMembershipDTO, error) {
	members, err := lf.memberRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships := make([]dto.TenantMembershipDTO, 0, len(members))
	for _, m := range members {
		tenant := m.Tenant
		if tenant == nil {
			tenant, err = lf.tenantRepo.ByID(ctx, m.TenantID)
			if err != nil {
				return nil, err
			}
			if tenant == nil {
				continue
			}
		}
		memberships = append(memberships, dto.TenantMembershipDTO{
			TenantID:   tenant.ID,
			TenantUUID: tenant.UUID.String(),
			TenantName: tenant.Name,
			TenantSlug: tenant.Slug,
			Role:       m.Role.String(),
		})
	}

	return memberships, nil
}

func (lf *LoginFlowImpl) withLoginTransaction(ctx context.Context, fn func(context.Context) (*dto.LoginResponse, error)) (*dto.LoginResponse, error) {
	var result *dto.LoginResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}
