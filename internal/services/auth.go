package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tsheet/timesheet/internal/access"
	"github.com/tsheet/timesheet/internal/config"
	"github.com/tsheet/timesheet/internal/faults"
	"github.com/tsheet/timesheet/internal/models"
	"github.com/tsheet/timesheet/internal/session"
	"github.com/tsheet/timesheet/internal/utils"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	sessions  session.Store
	hub       *session.Hub
	jwtConfig *config.JWTConfig
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, sessions session.Store, hub *session.Hub, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:        db,
		sessions:  sessions,
		hub:       hub,
		jwtConfig: jwtCfg,
		now:       time.Now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	AccessExpireAt  time.Time `json:"access_expire_at"`
	RefreshToken    string    `json:"refresh_token"`
	RefreshExpireAt time.Time `json:"refresh_expire_at"`
	SessionID       string    `json:"session_id"`
}

type LoginResult struct {
	TokenPair
	Account *models.Account `json:"account"`
}

// Login checks the credentials, opens a server session and publishes signed_in.
// A missing profile row does not block login; the resolver reports it.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, faults.AuthSession(err)
	}
	if !utils.CheckPassword(req.Password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if account.Disabled {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	sess := session.Session{
		ID:        uuid.NewString(),
		UserID:    account.ID,
		IP:        clientIP,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	pair, err := s.issue(ctx, &sess)
	if err != nil {
		return nil, err
	}

	account.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&account).Update("last_login_at", now).Error; err != nil {
		return nil, faults.AuthSession(err)
	}

	s.hub.Publish(session.Event{Kind: session.EventSignedIn, UserID: account.ID, SessionID: sess.ID})
	return &LoginResult{TokenPair: *pair, Account: &account}, nil
}

// Refresh rotates the refresh secret of the session named in refreshToken and
// issues a new access token. The previous refresh token stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sessionID, secret, ok := strings.Cut(refreshToken, ".")
	if !ok || sessionID == "" || secret == "" {
		return nil, ErrInvalidRefresh
	}

	sess, err := s.sessions.Lookup(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, faults.AuthSession(err)
	}
	if subtle.ConstantTimeCompare([]byte(hashRefreshToken(secret)), []byte(sess.RefreshHash)) != 1 {
		return nil, ErrInvalidRefresh
	}

	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, faults.AuthSession(err)
	}
	if account.Disabled {
		return nil, ErrAccountDisabled
	}

	pair, err := s.issue(ctx, &sess)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(session.Event{Kind: session.EventTokenRefreshed, UserID: sess.UserID, SessionID: sess.ID})
	return pair, nil
}

// Logout revokes the session. Revoking an unknown session is not an error.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return faults.AuthSession(err)
	}
	s.hub.Publish(session.Event{Kind: session.EventSignedOut, UserID: userID, SessionID: sessionID})
	return nil
}

// issue stores sess with a fresh refresh secret and signs an access token for it.
func (s *AuthService) issue(ctx context.Context, sess *session.Session) (*TokenPair, error) {
	secret, secretHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess.RefreshHash = secretHash
	sess.ExpiresAt = now.Add(s.jwtConfig.RefreshTTL())
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return nil, faults.AuthSession(err)
	}

	token, err := utils.GenerateToken(sess.UserID, sess.ID, s.jwtConfig.AccessTTL())
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     token,
		AccessExpireAt:  now.Add(s.jwtConfig.AccessTTL()),
		RefreshToken:    sess.ID + "." + secret,
		RefreshExpireAt: sess.ExpiresAt,
		SessionID:       sess.ID,
	}, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	tokenHash = hashRefreshToken(token)
	return token, tokenHash, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProvisionRequest creates an account and its profile in the actor's org.
type ProvisionRequest struct {
	Email      string  `json:"email" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	HourlyRate float64 `json:"hourly_rate"`
	ManagerID  string  `json:"manager_id"`
}

// Provision is the out-of-band profile creation path. Admin only.
func (s *AuthService) Provision(ctx context.Context, actor access.Actor, req *ProvisionRequest) (*models.Profile, error) {
	if !access.DefaultGate().Can(ctx, actor, access.ActionCreate, access.ResourceProfile, nil) {
		return nil, ErrForbidden
	}

	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, faults.Validation("Please enter a valid email address.")
	}
	if len(req.Password) < 8 {
		return nil, faults.Validation("Password must be at least 8 characters.")
	}
	role := req.Role
	if role == "" {
		role = models.RoleContractor
	}
	if !access.ValidRole(role) {
		return nil, faults.Validation("Role must be admin, manager or contractor.")
	}
	if req.HourlyRate < 0 {
		return nil, faults.Validation("Hourly rate must be zero or more.")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, faults.Validation("Password is not acceptable.")
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return faults.Validation("An account with this email already exists.")
		}
		if req.ManagerID != "" {
			if err := checkManager(tx, actor.OrgID, "", req.ManagerID); err != nil {
				return err
			}
		}

		account := models.Account{Email: email, PasswordHash: hash}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		profile = models.Profile{
			ID:         account.ID,
			OrgID:      actor.OrgID,
			Role:       role,
			FullName:   strings.TrimSpace(req.FullName),
			HourlyRate: req.HourlyRate,
			IsActive:   models.Bool(true),
			ManagerID:  models.String(req.ManagerID),
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		if _, ok := faults.KindOf(err); ok {
			return nil, err
		}
		return nil, faults.Query(err)
	}
	return &profile, nil
}

// EnsureAdmin seeds the bootstrap organization and its admin account when no
// account with the configured email exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg *config.BootstrapConfig) (*models.Profile, error) {
	email := normalizeEmail(cfg.AdminEmail)
	if email == "" {
		return nil, nil
	}

	var existing models.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := models.SeedOrganization(tx, cfg.OrgName)
		if err != nil {
			return err
		}
		account := models.Account{Email: email, PasswordHash: hash}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		profile = models.Profile{
			ID:       account.ID,
			OrgID:    org.ID,
			Role:     models.RoleAdmin,
			FullName: cfg.AdminName,
			IsActive: models.Bool(true),
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
