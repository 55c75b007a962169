// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/services"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles user authentication
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates a user with email and password
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))
	if email == "" {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", ErrUserNotFound)
	}

	var user *models.User
	var resp *dto.LoginResponse

	err := repository.WithTransaction(ctx, lf.db, func(txCtx context.Context) error {
		var err error
		user, err = lf.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		// Check if account is active
		if !utils.IsTrue(user.IsActive) {
			return ErrAccountInactive
		}

		// Verify password
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
			return ErrIncorrectPassword
		}

		accessToken, refreshToken, err := lf.tokenService.GenerateTokens(user.ID, user.Role, user.Department)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		if err := lf.userRepo.UpdateLastLogin(txCtx, user.ID, now); err != nil {
			return err
		}

		expiresAt := now.Add(utils.AccessTokenTTL)
		resp = &dto.LoginResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
			ExpiresAt:    expiresAt,
			User:         ToUserInfo(*user),
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		_ = writeAuditLog(ctx, lf.auditRepo, userID, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("User logged in successfully: %d", user.ID)
	_ = writeAuditLog(ctx, lf.auditRepo, &user.ID, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return resp, nil
}
