package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"shopease/internal/config"
	"shopease/internal/model"
	"shopease/internal/monitor"
	"shopease/internal/repository"
	"shopease/internal/sidechannel"
	internalutils "shopease/internal/utils"
	"shopease/pkg/lock"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// RegisterRequest register request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=80"`
	Email     string `json:"email" binding:"required,email,max=120"`
	Password  string `json:"password" binding:"required,min=6,max=64"`
	FirstName string `json:"first_name" binding:"max=50"`
	LastName  string `json:"last_name" binding:"max=50"`
	Phone     string `json:"phone" binding:"max=20"`
}

// LoginRequest login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest only the fields present are applied
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=50"`
	LastName  *string `json:"last_name" binding:"omitempty,max=50"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Email     *string `json:"email" binding:"omitempty,email,max=120"`
}

// ChangePasswordRequest change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}

// LoginResult issued token with the logged in user
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      *model.User `json:"user"`
}

// AccountService user account interface
type AccountService interface {
	// Warm loads existing identities into the registration filter
	Warm(ctx context.Context) error

	Register(ctx context.Context, req *RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*internalutils.JWTClaims, error)

	GetUser(ctx context.Context, id uint64) (*model.User, error)
	ListUsers(ctx context.Context, page, perPage int) ([]*model.User, int64, error)
	UpdateProfile(ctx context.Context, id uint64, req *UpdateProfileRequest) (*model.User, error)
	ChangePassword(ctx context.Context, id uint64, req *ChangePasswordRequest) error
}

type accountService struct {
	userRepo    repository.UserRepository
	jwtManager  *internalutils.JWTManager
	redis       *redis.Client
	sideEffects *sidechannel.Runner
	metrics     *monitor.Metrics
	filter      *identityFilter

	maxAttempts  int
	lockDuration time.Duration
}

// NewAccountService creates an account service; sideEffects may be nil
func NewAccountService(
	userRepo repository.UserRepository,
	jwtManager *internalutils.JWTManager,
	rdb *redis.Client,
	sideEffects *sidechannel.Runner,
	metrics *monitor.Metrics,
	security config.SecurityConfig,
) AccountService {
	return &accountService{
		userRepo:     userRepo,
		jwtManager:   jwtManager,
		redis:        rdb,
		sideEffects:  sideEffects,
		metrics:      metrics,
		filter:       newIdentityFilter(100000, 0.001),
		maxAttempts:  security.MaxLoginAttempts,
		lockDuration: security.LockDuration,
	}
}

func (s *accountService) Warm(ctx context.Context) error {
	return s.filter.warm(ctx, s.userRepo)
}

// Register registers a user
func (s *accountService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. Serialize concurrent sign-ups of the same name
	if s.redis != nil {
		mu := lock.New(s.redis, signupKey(username), 10*time.Second)
		switch err := mu.TryLock(ctx, 3, 50*time.Millisecond); {
		case err == nil:
			defer func() {
				if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
					log.WithError(err).WithField("key", mu.Key()).Warn("Failed to release sign-up lock")
				}
			}()
		case errors.Is(err, lock.ErrLockFailed):
			s.metrics.RecordUserRegistration("rejected")
			return nil, utils.ErrSignupBusy
		default:
			// redis down: the unique indexes still hold
			log.WithError(err).Warn("Sign-up lock unavailable")
		}
	}

	// 2. Uniqueness, only queried when the filter has seen a similar identity
	if err := s.checkAvailable(ctx, username, email); err != nil {
		s.metrics.RecordUserRegistration("rejected")
		return nil, err
	}

	// 3. Hash password with a per-user salt
	salt := utils.GenerateSalt()
	hash, err := hashPassword(req.Password + salt)
	if err != nil {
		return nil, utils.WrapError(err, utils.KindInternal, "failed to hash password")
	}

	// 4. Create user; the unique indexes settle races the filter cannot see
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.metrics.RecordUserRegistration("failed")
		return nil, err
	}
	s.filter.add(user.Username, user.Email)
	s.metrics.RecordUserRegistration("created")

	log.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    utils.MaskEmail(user.Email),
	}).Info("User registered")

	// 5. Welcome notification, best effort
	if s.sideEffects != nil {
		s.sideEffects.Run(ctx, sidechannel.TaskNotification, model.NotificationMessage{
			UserID:    user.ID,
			Type:      model.NotificationEmail,
			Category:  model.CategoryUserRegistration,
			Message:   fmt.Sprintf("Welcome to ShopEase, %s!", user.DisplayName()),
			Email:     user.Email,
			Username:  user.Username,
			FirstName: user.FirstName,
		})
	}

	return user, nil
}

func (s *accountService) checkAvailable(ctx context.Context, username, email string) error {
	if s.filter.mayHaveUsername(username) {
		exists, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return utils.ErrUsernameTaken
		}
	}
	if s.filter.mayHaveEmail(email) {
		exists, err := s.userRepo.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return utils.ErrEmailTaken
		}
	}
	return nil
}

// Login logs in a user
func (s *accountService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	// 1. Find user
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, utils.ErrUserNotFound) {
		s.metrics.RecordUserLogin("bad_credentials")
		return nil, utils.ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.metrics.RecordUserLogin("inactive")
		return nil, utils.NewError(utils.KindUnauthorized, "account is disabled")
	}

	// 2. Check login attempts
	if err := s.checkLoginAttempts(ctx, user.ID); err != nil {
		s.metrics.RecordUserLogin("locked")
		return nil, err
	}

	// 3. Verify password
	if !verifyPassword(req.Password+user.Salt, user.PasswordHash) {
		s.recordLoginFailure(ctx, user.ID)
		s.metrics.RecordUserLogin("bad_credentials")
		return nil, utils.ErrBadCredentials
	}

	// 4. Issue token and remember it until it expires
	token, claims, err := s.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, utils.WrapError(err, utils.KindInternal, "failed to issue token")
	}
	if err := s.redis.Set(ctx, tokenKey(claims.ID), user.ID, s.jwtManager.Expire()).Err(); err != nil {
		return nil, utils.Upstream(err, "token store unavailable")
	}

	// 5. Bookkeeping
	s.clearLoginFailures(ctx, user.ID)
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("Failed to record last login")
	}
	s.metrics.RecordUserLogin("ok")

	log.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User logged in")

	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.jwtManager.Expire().Seconds()),
		User:      user,
	}, nil
}

// Logout revokes token for the rest of its lifetime
func (s *accountService) Logout(ctx context.Context, token string) error {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, tokenKey(claims.ID))
	pipe.Set(ctx, blacklistKey(claims.ID), claims.UserID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.Upstream(err, "token store unavailable")
	}

	log.WithField("user_id", claims.UserID).Info("User logged out")
	return nil
}

// ValidateToken checks signature, expiry and revocation
func (s *accountService) ValidateToken(ctx context.Context, token string) (*internalutils.JWTClaims, error) {
	invalid := utils.NewError(utils.KindUnauthorized, "invalid or expired token")

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, invalid
	}

	pipe := s.redis.Pipeline()
	live := pipe.Exists(ctx, tokenKey(claims.ID))
	revoked := pipe.Exists(ctx, blacklistKey(claims.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, utils.Upstream(err, "token store unavailable")
	}
	if live.Val() == 0 || revoked.Val() > 0 {
		return nil, invalid
	}
	return claims, nil
}

func (s *accountService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *accountService) ListUsers(ctx context.Context, page, perPage int) ([]*model.User, int64, error) {
	return s.userRepo.List(ctx, page, perPage)
}

func (s *accountService) UpdateProfile(ctx context.Context, id uint64, req *UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, utils.ErrEmailTaken
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.filter.add(user.Username, user.Email)
	return user, nil
}

func (s *accountService) ChangePassword(ctx context.Context, id uint64, req *ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !verifyPassword(req.OldPassword+user.Salt, user.PasswordHash) {
		return utils.NewError(utils.KindValidation, "old password is incorrect")
	}

	salt := utils.GenerateSalt()
	hash, err := hashPassword(req.NewPassword + salt)
	if err != nil {
		return utils.WrapError(err, utils.KindInternal, "failed to hash password")
	}
	user.PasswordHash = hash
	user.Salt = salt

	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	log.WithField("user_id", id).Info("User changed password")
	return nil
}

func tokenKey(jti string) string {
	return "auth:token:" + jti
}

func blacklistKey(jti string) string {
	return "auth:blacklist:" + jti
}

func signupKey(username string) string {
	return "auth:signup:" + strings.ToLower(username)
}

func attemptsKey(userID uint64) string {
	return fmt.Sprintf("auth:login_attempts:%d", userID)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *accountService) checkLoginAttempts(ctx context.Context, userID uint64) error {
	if s.maxAttempts <= 0 {
		return nil
	}
	attempts, err := s.redis.Get(ctx, attemptsKey(userID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return utils.Upstream(err, "token store unavailable")
	}
	if attempts >= s.maxAttempts {
		return utils.ErrAccountLocked
	}
	return nil
}

func (s *accountService) recordLoginFailure(ctx context.Context, userID uint64) {
	key := attemptsKey(userID)
	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.lockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to record login failure")
	}
}

func (s *accountService) clearLoginFailures(ctx context.Context, userID uint64) {
	s.redis.Del(ctx, attemptsKey(userID))
}
