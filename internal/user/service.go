package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. CompareHashAndPassword is constant time.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the credential store.
type Store interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// OTPStore keeps one live code per email.
type OTPStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Consume(ctx context.Context, email, code string) (otp.Result, error)
}

// Notifier is the notification gateway as seen by the login flow.
type Notifier interface {
	Subscribe(ctx context.Context, email string) error
	Subscribed(ctx context.Context, email string) (bool, error)
	SendOTP(ctx context.Context, email, code string) error
}

type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
}

var (
	ErrMissingFields  = apperr.New(apperr.ErrValidation, "Missing required fields")
	ErrInvalidEmail   = apperr.New(apperr.ErrValidation, "Invalid email format")
	ErrUserExists     = apperr.New(apperr.ErrDuplicate, "Email or username already exists")
	ErrUserNotFound   = apperr.New(apperr.ErrNotFound, "User does not exist")
	ErrBadCredentials = apperr.New(apperr.ErrAuth, "Invalid credentials")
	ErrNotSubscribed  = apperr.New(apperr.ErrForbidden, "User is not subscribed to notifications")
	ErrOTPExpired     = apperr.New(apperr.ErrExpired, "OTP expired or not found")
	ErrInvalidOTP     = apperr.New(apperr.ErrAuth, "Invalid OTP")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registerInput struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// UserService orchestrates registration and the two-step OTP login.
type UserService struct {
	store    Store
	otps     OTPStore
	notifier Notifier
	tokens   TokenIssuer
	activity activity.Recorder
	hasher   PasswordHasher
	logger   *zap.SugaredLogger
	// configuration knobs
	OTPTTL time.Duration
}

func NewUserService(store Store, otps OTPStore, notifier Notifier, tokens TokenIssuer, rec activity.Recorder, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 10}
	}
	return &UserService{
		store:    store,
		otps:     otps,
		notifier: notifier,
		tokens:   tokens,
		activity: rec,
		hasher:   hasher,
		logger:   logger,
		OTPTTL:   60 * time.Second,
	}
}

// Register creates an account. The subscription request to the gateway is queued
// after the insert and its failure does not undo the account.
func (s *UserService) Register(ctx context.Context, email, username, password string) (int64, error) {
	in := registerInput{Email: normalizeEmail(email), Username: strings.TrimSpace(username), Password: password}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return 0, ErrMissingFields
				}
			}
			return 0, ErrInvalidEmail
		}
		return 0, fmt.Errorf("validate register input: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Email: in.Email, Username: in.Username, PasswordHash: hash}
	id, err := s.store.Create(ctx, u)
	if err != nil {
		if database.IsUniqueViolation(err, userrepo.EmailConstraint, userrepo.UsernameConstraint) {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	s.activity.Record(strconv.FormatInt(id, 10), "User Registered", map[string]string{
		"email":    in.Email,
		"username": in.Username,
	})
	s.activity.Go("subscribe", func(ctx context.Context) error {
		return s.notifier.Subscribe(ctx, in.Email)
	})
	return id, nil
}

// Login checks the password and the subscription, then sends a fresh OTP.
// Any code issued earlier for the same email is replaced.
func (s *UserService) Login(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ErrBadCredentials
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return ErrBadCredentials
	}
	if err := s.requireSubscribed(ctx, u.Email); err != nil {
		return err
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.otps.Put(ctx, u.Email, code, s.OTPTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.notifier.SendOTP(ctx, u.Email, code); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	s.activity.Record(strconv.FormatInt(u.ID, 10), "User Login Attempt", nil)
	return nil
}

// Verify redeems the OTP for email and returns a bearer token. The comparison and
// deletion happen in one atomic step, so a code is accepted at most once.
func (s *UserService) Verify(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return "", ErrMissingFields
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	if err := s.requireSubscribed(ctx, u.Email); err != nil {
		return "", err
	}

	res, err := s.otps.Consume(ctx, u.Email, code)
	if err != nil {
		return "", err
	}
	switch res {
	case otp.Missing:
		return "", ErrOTPExpired
	case otp.Mismatch:
		return "", ErrInvalidOTP
	}

	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.activity.Record(strconv.FormatInt(u.ID, 10), "User Verify OTP Attempt", nil)
	return tok, nil
}

// normalizeEmail is the canonical form accounts and OTP keys are stored under.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) lookup(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserService) requireSubscribed(ctx context.Context, email string) error {
	ok, err := s.notifier.Subscribed(ctx, email)
	if err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if !ok {
		return ErrNotSubscribed
	}
	return nil
}
