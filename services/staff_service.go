package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/models"
	"github.com/neraa-rental/orders-api/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for staff accounts
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes
const MaxPasswordLength = 72

// Username length bounds
const (
	MinUsernameLength = 3
	MaxUsernameLength = 80
)

// CreateStaffInput describes a new staff account
type CreateStaffInput struct {
	Username string
	Password string
	FullName string
	Email    string
	IsAdmin  bool
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// StaffService manages staff accounts and logins
type StaffService struct {
	staff  repository.StaffRepository
	tokens *TokenService
	logger *zap.Logger
}

// NewStaffService creates a staff service
func NewStaffService(staff repository.StaffRepository, tokens *TokenService, l *zap.Logger) *StaffService {
	return &StaffService{staff: staff, tokens: tokens, logger: logger.OrNop(l)}
}

var staffServiceInstance *StaffService

// SetStaffService sets the staff service used by the HTTP handlers
func SetStaffService(s *StaffService) {
	staffServiceInstance = s
}

// GetStaffService returns the staff service used by the HTTP handlers
func GetStaffService() *StaffService {
	return staffServiceInstance
}

// CreateStaff provisions a staff or admin account. Only admins may do this.
func (s *StaffService) CreateStaff(ctx context.Context, actor *models.User, in CreateStaffInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can create staff accounts")
	}
	return s.create(ctx, in)
}

// BootstrapAdmin creates an admin account without an acting admin. It is
// used by the create-admin command.
func (s *StaffService) BootstrapAdmin(ctx context.Context, in CreateStaffInput) (*models.User, error) {
	in.IsAdmin = true
	return s.create(ctx, in)
}

// ListStaff returns every account by id. Only admins may do this.
func (s *StaffService) ListStaff(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("Only admins can list staff accounts")
	}
	return s.staff.ListStaff(ctx)
}

// Login checks credentials and issues an access token
func (s *StaffService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.staff.FindStaffByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	token, expiresAt, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Staff logged in", zap.Uint("staff_id", user.ID), zap.String("role", user.Role))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Actor loads the staff member behind an authenticated request
func (s *StaffService) Actor(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.staff.FindStaffByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

func (s *StaffService) create(ctx context.Context, in CreateStaffInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		return nil, validation("Username is required")
	case n < MinUsernameLength || n > MaxUsernameLength:
		return nil, validation("Username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, validation("Password must be at least %d characters", MinPasswordLength)
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, validation("Password must be at most %d bytes", MaxPasswordLength)
	}

	existing, err := s.staff.FindStaffByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, NewDomainError(CodeAlreadyExists, "Username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = &email
	}
	if in.IsAdmin {
		user.Role = models.RoleAdmin
	}

	if err := s.staff.CreateStaff(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Staff account created", zap.Uint("staff_id", user.ID), zap.String("role", user.Role))
	return user, nil
}
