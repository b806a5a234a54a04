package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/auth"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

// AuthService is the credential resolution layer: it turns inbound opaque
// tokens into principals and mints the tokens in the first place. Resolution
// is a pure read; the optional session cache only shortens lookups and can
// never extend a credential's life.
type AuthService struct {
	sessions core.ISessionRepo
	tables   core.ITableRepo
	shifts   core.IShiftRepo
	staff    core.IStaffRepo
	cache    core.ISessionCache // may be nil

	jwtSecret  string
	sessionTTL time.Duration
	staffTTL   time.Duration
	mylog      logger.Logger
}

func NewAuthService(
	sessions core.ISessionRepo,
	tables core.ITableRepo,
	shifts core.IShiftRepo,
	staff core.IStaffRepo,
	cache core.ISessionCache,
	jwtSecret string,
	sessionTTL, staffTTL time.Duration,
	mylog logger.Logger,
) *AuthService {
	return &AuthService{
		sessions:   sessions,
		tables:     tables,
		shifts:     shifts,
		staff:      staff,
		cache:      cache,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
		staffTTL:   staffTTL,
		mylog:      mylog,
	}
}

// Resolve dispatches on token shape: a fixed-length hex identifier is a
// legacy session looked up directly; everything else is hashed and matched
// against staff tokens first, then customer sessions.
func (s *AuthService) Resolve(ctx context.Context, rawToken string) (models.Principal, error) {
	if !wellFormed(rawToken) {
		return models.Principal{}, core.ErrTokenMalformed
	}

	if auth.IsLegacyID(rawToken) {
		session, err := s.sessions.GetByID(ctx, rawToken)
		if err != nil {
			if errors.Is(err, core.ErrSessionNotFound) {
				return models.Principal{}, core.ErrTokenNotFound
			}
			return models.Principal{}, err
		}
		if !session.Legacy {
			// A hashed-format session's ID is not a credential.
			return models.Principal{}, core.ErrTokenNotFound
		}
		return s.customerPrincipal(ctx, session, "")
	}

	hash := auth.HashToken(rawToken)

	token, err := s.staff.GetTokenByHash(ctx, hash)
	switch {
	case err == nil:
		return s.staffPrincipal(ctx, token)
	case errors.Is(err, core.ErrTokenNotFound):
		// Fall through to the customer session path.
	default:
		return models.Principal{}, err
	}

	if s.cache != nil {
		if session, ok := s.cache.Get(ctx, hash); ok {
			return s.customerPrincipal(ctx, session, "")
		}
	}

	session, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return models.Principal{}, core.ErrTokenNotFound
		}
		return models.Principal{}, err
	}
	return s.customerPrincipal(ctx, session, hash)
}

// customerPrincipal finishes the customer path: session unexpired and table
// still open. cacheKey is non-empty when a fresh lookup may be cached.
func (s *AuthService) customerPrincipal(ctx context.Context, session models.Session, cacheKey string) (models.Principal, error) {
	if session.Expired(time.Now()) {
		return models.Principal{}, core.ErrTokenExpired
	}

	table, err := s.tables.Get(ctx, session.TableID)
	if err != nil {
		return models.Principal{}, err
	}
	if !table.IsOpen {
		return models.Principal{}, core.ErrTokenExpired
	}

	if s.cache != nil && cacheKey != "" {
		s.cache.Put(ctx, cacheKey, session, core.SessionCacheTTL)
	}

	return models.Principal{
		ActorID:      session.SessionID,
		Role:         models.RoleCustomer,
		RestaurantID: session.RestaurantID,
		TableID:      session.TableID,
		SessionID:    session.SessionID,
	}, nil
}

// staffPrincipal finishes the staff path. Shift closure invalidates every
// credential minted under the shift, regardless of the token's own expiry.
func (s *AuthService) staffPrincipal(ctx context.Context, token models.StaffToken) (models.Principal, error) {
	if token.Expired(time.Now()) {
		return models.Principal{}, core.ErrTokenExpired
	}

	shift, err := s.shifts.GetByID(ctx, token.ShiftID)
	if err != nil {
		return models.Principal{}, core.ErrShiftClosed
	}
	if !shift.Open() {
		return models.Principal{}, core.ErrShiftClosed
	}

	return models.Principal{
		ActorID:      token.TokenID,
		Name:         token.StaffName,
		Role:         token.Role,
		RestaurantID: token.RestaurantID,
		ShiftID:      token.ShiftID,
		OnDuty:       true,
	}, nil
}

// JoinTable opens a customer session against an open table and returns the
// raw token exactly once.
func (s *AuthService) JoinTable(ctx context.Context, tableID string) (string, models.Session, error) {
	mylog := s.mylog.Action("join_table")

	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return "", models.Session{}, err
	}
	if !table.IsOpen {
		return "", models.Session{}, core.ErrTableClosed
	}

	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", models.Session{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		SessionID:    uuid.New().String(),
		RestaurantID: table.RestaurantID,
		TableID:      table.TableID,
		TokenHash:    hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		mylog.Error("failed to create session", err)
		return "", models.Session{}, err
	}

	mylog.Info("customer session created", "table_id", tableID, "session_id", session.SessionID)
	return raw, session, nil
}

// StaffLogin exchanges a live QR token for a shift-scoped staff credential.
func (s *AuthService) StaffLogin(ctx context.Context, qrToken, staffName string, role models.Role) (string, models.StaffToken, error) {
	mylog := s.mylog.Action("staff_login")

	if !wellFormed(qrToken) {
		return "", models.StaffToken{}, core.ErrTokenMalformed
	}
	if staffName == "" || !models.StaffLoginRole(role) {
		return "", models.StaffToken{}, core.ErrForbidden
	}

	shift, err := s.shifts.GetByQRHash(ctx, auth.HashToken(qrToken))
	if err != nil {
		return "", models.StaffToken{}, err
	}
	// Lazy expiry: a stale QR dies on its next resolution attempt.
	if shift.QRExpired(time.Now()) {
		return "", models.StaffToken{}, core.ErrTokenExpired
	}

	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", models.StaffToken{}, err
	}

	now := time.Now().UTC()
	token := models.StaffToken{
		TokenID:      uuid.New().String(),
		TokenHash:    hash,
		ShiftID:      shift.ShiftID,
		RestaurantID: shift.RestaurantID,
		StaffName:    staffName,
		Role:         role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.staffTTL),
	}
	if err := s.staff.CreateToken(ctx, token); err != nil {
		mylog.Error("failed to persist staff token", err)
		return "", models.StaffToken{}, err
	}

	mylog.Info("staff logged in", "staff_name", staffName, "role", string(role), "shift_id", shift.ShiftID)
	return raw, token, nil
}

// ManagerLogin authenticates a password-backed account and issues a JWT.
func (s *AuthService) ManagerLogin(ctx context.Context, username, password string) (string, models.StaffUser, error) {
	user, err := s.staff.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return "", models.StaffUser{}, core.ErrForbidden
		}
		return "", models.StaffUser{}, err
	}
	if !user.Role.Managerial() {
		return "", models.StaffUser{}, core.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.StaffUser{}, core.ErrForbidden
	}

	token, err := auth.GenerateToken(s.jwtSecret, user)
	if err != nil {
		return "", models.StaffUser{}, err
	}
	s.mylog.Action("manager_login").Info("manager logged in", "username", username)
	return token, user, nil
}

// ResolveJWT validates a manager/admin bearer token.
func (s *AuthService) ResolveJWT(tokenStr string) (models.Principal, error) {
	claims, err := auth.ValidateToken(s.jwtSecret, tokenStr)
	if err != nil {
		return models.Principal{}, core.ErrTokenNotFound
	}
	return models.Principal{
		ActorID:      claims.UserID,
		Name:         claims.Username,
		Role:         claims.Role,
		RestaurantID: claims.RestaurantID,
	}, nil
}

func wellFormed(raw string) bool {
	if len(raw) < 8 || len(raw) > 512 {
		return false
	}
	for _, r := range raw {
		if r < '!' || r > '~' {
			return false
		}
	}
	return true
}
