package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/models"
	"equipment_lending/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	CountAdmins(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context, q string, role lending.Role, page, size int) (db.ListUsersResult, error)
	TouchUserLogin(ctx context.Context, userID, ip, ua string) error
}

type Sessions interface {
	Create(ctx context.Context, id, userID string, role lending.Role) error
	Get(ctx context.Context, id string) (*session.AppSession, error)
	Delete(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AuthService struct {
	users    Users
	sessions Sessions
	cost     int
	log      zerolog.Logger
}

func NewAuthService(users Users, sessions Sessions, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		log:      log.With().Str("service", "auth").Logger(),
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.cost = cost
	return s
}

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores the rest
	maxUsernameLen = 50
	maxEmailLen    = 120
	maxPersonLen   = 50
)

type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (in SignupInput) validate() (models.User, error) {
	var u models.User
	var err error
	if u.Username, err = checkText("username", in.Username, maxUsernameLen, true); err != nil {
		return u, err
	}
	if strings.ContainsAny(u.Username, " \t\n") {
		return u, fmt.Errorf("%w: username must not contain spaces", lending.ErrValidation)
	}
	if u.Email, err = checkText("email", in.Email, maxEmailLen, true); err != nil {
		return u, err
	}
	if addr, perr := mail.ParseAddress(u.Email); perr != nil || addr.Address != u.Email {
		return u, fmt.Errorf("%w: invalid email %q", lending.ErrValidation, u.Email)
	}
	u.Email = strings.ToLower(u.Email)
	if n := utf8.RuneCountInString(in.Password); n < minPasswordLen || len(in.Password) > maxPasswordLen {
		return u, fmt.Errorf("%w: password must be %d to %d characters", lending.ErrValidation, minPasswordLen, maxPasswordLen)
	}
	if u.FirstName, err = checkText("firstName", in.FirstName, maxPersonLen, false); err != nil {
		return u, err
	}
	if u.LastName, err = checkText("lastName", in.LastName, maxPersonLen, false); err != nil {
		return u, err
	}
	return u, nil
}

// Signup registers a student account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	return s.create(ctx, in, lending.RoleStudent)
}

// CreateUser lets an admin open an account with any role.
func (s *AuthService) CreateUser(ctx context.Context, actor lending.Actor, in SignupInput, role string) (*models.User, error) {
	if err := actor.Allow(lending.OpManageUsers); err != nil {
		return nil, err
	}
	r, err := lending.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u, err := s.create(ctx, in, r)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user", u.ID).Str("role", string(u.Role)).Str("by", actor.UserID).Msg("user created by admin")
	return u, nil
}

func (s *AuthService) create(ctx context.Context, in SignupInput, role lending.Role) (*models.User, error) {
	u, err := in.validate()
	if err != nil {
		return nil, err
	}
	taken, err := s.users.UserExists(ctx, u.Username, u.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: username or email already in use", lending.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u.ID = uuid.NewString()
	u.PasswordHash = string(hash)
	u.Role = role
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login checks credentials and opens a session. Unknown users and wrong
// passwords both yield ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password, ip, ua string) (string, *models.User, error) {
	u, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, lending.ErrNotFound) {
		return "", nil, fmt.Errorf("%w: invalid username or password", lending.ErrUnauthorized)
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("user", u.ID).Msg("login: bad password")
		return "", nil, fmt.Errorf("%w: invalid username or password", lending.ErrUnauthorized)
	}
	sid := uuid.NewString()
	if err := s.sessions.Create(ctx, sid, u.ID, u.Role); err != nil {
		return "", nil, err
	}
	if err := s.users.TouchUserLogin(ctx, u.ID, ip, ua); err != nil {
		s.log.Warn().Err(err).Str("user", u.ID).Msg("record login")
	}
	s.log.Info().Str("user", u.ID).Str("role", string(u.Role)).Msg("login")
	return sid, u, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Resolve maps a session id to its user. A session whose user is gone is
// dropped.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: no session", lending.ErrUnauthorized)
	}
	as, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNoSession) {
		return nil, fmt.Errorf("%w: invalid session", lending.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindUserByID(ctx, as.UserID)
	if errors.Is(err, lending.ErrNotFound) {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, fmt.Errorf("%w: invalid session", lending.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) GetUser(ctx context.Context, actor lending.Actor, id string) (*models.User, error) {
	if err := actor.Allow(lending.OpManageUsers); err != nil {
		return nil, err
	}
	return s.users.FindUserByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context, actor lending.Actor, q, role string, page, size int) (db.ListUsersResult, error) {
	if err := actor.Allow(lending.OpManageUsers); err != nil {
		return db.ListUsersResult{}, err
	}
	var r lending.Role
	if strings.TrimSpace(role) != "" {
		var err error
		if r, err = lending.ParseRole(role); err != nil {
			return db.ListUsersResult{}, err
		}
	}
	return s.users.ListUsers(ctx, q, r, page, size)
}

// RevokeSessions logs a user out everywhere.
func (s *AuthService) RevokeSessions(ctx context.Context, actor lending.Actor, userID string) error {
	if err := actor.Allow(lending.OpManageUsers); err != nil {
		return err
	}
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user", userID).Str("by", actor.UserID).Msg("sessions revoked")
	return nil
}

// EnsureAdmin creates the first admin when none exists. It reports whether an
// account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, in SignupInput) (bool, error) {
	if in.Username == "" || in.Password == "" {
		return false, nil
	}
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	u, err := s.create(ctx, in, lending.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.log.Info().Str("user", u.ID).Str("username", u.Username).Msg("bootstrap admin created")
	return true, nil
}
