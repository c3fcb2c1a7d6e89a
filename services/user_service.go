package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"moviebox-restful/models"
	"moviebox-restful/repositories"
	"moviebox-restful/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Messages returned to clients by the account flows.
const (
	MsgCredentialsRequired = "username and password required"
	MsgUsernameTaken       = "username taken"
	MsgInvalidCredentials  = "invalid credentials"
)

// The UserService interface defines the account operations behind the auth endpoints
type UserService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	// Authenticate fails with the same error for unknown users and wrong passwords.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"max=150" description:"Unique login name"`
	Password string `json:"password" description:"Plain password, hashed with bcrypt"`
	Email    string `json:"email" validate:"omitempty,email,max=254" description:"Optional contact address"`
}

type LoginInput struct {
	Username string `json:"username" description:"Username for login"`
	Password string `json:"password" description:"Password for login"`
}

type userService struct {
	repo repositories.UserRepository
	cost int
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(repo repositories.UserRepository) UserService {
	return &userService{repo: repo, cost: bcrypt.DefaultCost}
}

// NewUserServiceWithCost uses a custom bcrypt cost; tests pass bcrypt.MinCost.
func NewUserServiceWithCost(repo repositories.UserRepository, cost int) UserService {
	return &userService{repo: repo, cost: cost}
}

func (s *userService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Password == "" {
		return nil, validationError(MsgCredentialsRequired)
	}
	if err := validation.Struct(input); err != nil {
		return nil, translate(err, "user")
	}

	exists, err := s.repo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, translate(err, "user")
	}
	if exists {
		return nil, &Error{Kind: KindConflict, Message: MsgUsernameTaken}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, validationError("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: input.Username,
		Password: string(hashedPassword),
		Email:    input.Email,
	}
	profile := &models.Profile{DisplayName: input.Username}
	if err := s.repo.Create(ctx, user, profile); err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &Error{Kind: KindConflict, Message: MsgUsernameTaken, Err: err}
		}
		return nil, translate(err, "user")
	}
	return user, nil
}

var (
	dummyHash     []byte
	dummyHashOnce sync.Once
)

// compareDummy spends roughly the time a real comparison would.
func compareDummy(password string, cost int) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	invalid := &Error{Kind: KindAuthentication, Message: MsgInvalidCredentials}
	if username == "" || password == "" {
		return nil, invalid
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		compareDummy(password, s.cost)
		return nil, invalid
	}
	if err != nil {
		return nil, translate(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}
