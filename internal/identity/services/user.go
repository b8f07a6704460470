// Package services holds the identity business logic: registering users,
// checking credentials for the gateway, and reading profiles.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/models"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/repositories/repomanager"
)

const (
	MinPasswordLength = 8
	DefaultPageSize   = 50
	MaxPageSize       = 500
)

// Registration is the payload accepted by Register.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	// compared against when the email is unknown so a miss costs the same
	// as a wrong password.
	dummySalt []byte
	dummyHash []byte
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	salt := cryptox.NewSalt()
	return &UserService{
		db:          db,
		repomanager: m,
		dummySalt:   salt,
		dummyHash:   cryptox.HashPassword([]byte("not-a-password"), salt),
	}
}

func (r *Registration) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
}

func (r *Registration) validate() error {
	switch {
	case r.Username == "":
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	case r.Email == "":
		return fmt.Errorf("%w: email is required", common.ErrorValidation)
	case len(r.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return fmt.Errorf("%w: malformed email", common.ErrorValidation)
	}
	return nil
}

// Register creates a user holding the default role. The user row and its
// role assignment are written in one transaction.
func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	reg.normalize()
	if err := reg.validate(); err != nil {
		return nil, err
	}

	if reg.Gender != "" {
		ok, err := s.repomanager.Genders(s.db).Exists(ctx, reg.Gender)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown gender %q", common.ErrorValidation, reg.Gender)
		}
	}

	password := []byte(reg.Password)
	defer common.WipeByteArray(password)

	salt := cryptox.NewSalt()
	user := &models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Gender:       reg.Gender,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword(password, salt),
	}

	var created *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		if err := s.repomanager.Roles(tx).Assign(ctx, u.ID, models.RoleUser); err != nil {
			return err
		}
		u.Roles = []string{models.RoleUser}
		created = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return created, nil
}

// Authenticate checks an email/password pair and returns the user with roles
// loaded. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(s.dummyHash, pw, s.dummySalt)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !cryptox.VerifyPassword(user.PasswordHash, pw, user.Salt) {
		return nil, common.ErrorUnauthorized
	}

	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a single user with roles.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List pages through users. limit is clamped to [1, MaxPageSize]; zero means
// DefaultPageSize.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repomanager.Users(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	for _, u := range list {
		if err := s.loadRoles(ctx, u); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Genders lists the accepted gender codes.
func (s *UserService) Genders(ctx context.Context) ([]models.Gender, error) {
	list, err := s.repomanager.Genders(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return list, nil
}

func (s *UserService) loadRoles(ctx context.Context, u *models.User) error {
	roles, err := s.repomanager.Roles(s.db).ForUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	u.Roles = roles
	return nil
}
