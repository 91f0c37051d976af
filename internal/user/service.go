package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-todo-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/utilities"
)

// Store is the credential store. Implemented by repo.UserRepo.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	SetResetOTP(ctx context.Context, id, digest string, expiresAt time.Time) error
	SetVerifyOTP(ctx context.Context, id, digest string, expiresAt time.Time) error
	// The consume methods apply only while digest is still pending and
	// return repo.ErrOTPNotPending otherwise.
	ConsumeResetOTP(ctx context.Context, id, digest, passwordHash string) error
	ConsumeVerifyOTP(ctx context.Context, id, digest string) error
}

// Deps groups the collaborators of UserService. Store, Tokens, OTP, Mailer
// and Mail are required; the rest fall back to defaults.
type Deps struct {
	Store    Store
	Hasher   PasswordHasher
	Tokens   *token.Issuer
	OTP      *otp.Engine
	Mailer   mail.Sender
	Mail     *mail.Composer
	IDs      *utilities.IDGenerator
	Validate *validator.Validate
	Logger   *zap.SugaredLogger
}

// UserService orchestrates registration, login and the two OTP flows.
type UserService struct {
	store    Store
	hasher   PasswordHasher
	tokens   *token.Issuer
	otp      *otp.Engine
	mailer   mail.Sender
	mail     *mail.Composer
	ids      *utilities.IDGenerator
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewUserService(d Deps) *UserService {
	if d.Hasher == nil {
		d.Hasher = BcryptHasher{}
	}
	if d.IDs == nil {
		d.IDs = utilities.NewIDGenerator(1)
	}
	if d.Validate == nil {
		d.Validate = validator.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return &UserService{
		store:    d.Store,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		otp:      d.OTP,
		mailer:   d.Mailer,
		mail:     d.Mail,
		ids:      d.IDs,
		validate: d.Validate,
		logger:   d.Logger,
	}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token  string
	Claims *token.Claims
	User   *entity.PublicView
}

func (s *UserService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	if err := checkEmail(s.validate, email); err != nil {
		return nil, err
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{ID: s.ids.NewID(), Name: name, Email: email, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	if msg, err := s.mail.Welcome(u.Name, u.Email); err != nil {
		s.logger.Warnw("welcome mail render failed", "user_id", u.ID, "err", err)
	} else if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warnw("welcome mail failed", "user_id", u.ID, "err", err)
	}
	return res, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	u, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return s.issue(u)
}

// Logout revokes raw when it is a valid token. Failures are logged only:
// the caller discards the cookie regardless.
func (s *UserService) Logout(ctx context.Context, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		sub, _ := s.tokens.DecodeSubject(raw)
		s.logger.Debugw("logout with unusable token", "claimed_sub", sub, "err", err)
		return
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.logger.Warnw("token revocation failed", "user_id", claims.Subject, "err", err)
	}
}

// RequestPasswordReset stores a fresh reset code and mails it. A mail
// failure fails the whole request.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	u, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.otp.Generate(otp.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.store.SetResetOTP(ctx, u.ID, code.Digest, code.ExpiresAt); err != nil {
		return mapStoreErr(err)
	}
	msg, err := s.mail.ResetOTP(u.Email, code.Plain)
	if err != nil {
		return apperr.Wrap(ErrResetMailFailed, err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warnw("reset mail failed", "user_id", u.ID, "err", err)
		return apperr.Wrap(ErrResetMailFailed, err)
	}
	return nil
}

func (s *UserService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return ErrMissingFields
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	if err := checkEmail(s.validate, email); err != nil {
		return err
	}
	u, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.otp.Check(code, u.ResetOTPHash, u.ResetOTPExpiresAt); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return mapStoreErr(s.store.ConsumeResetOTP(ctx, u.ID, u.ResetOTPHash, hash))
}

// RequestEmailVerification mails a verification code to the caller. Mail
// failures are logged and swallowed.
func (s *UserService) RequestEmailVerification(ctx context.Context, userID string) error {
	u, err := s.lookupByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	code, err := s.otp.Generate(otp.PurposeVerify)
	if err != nil {
		return err
	}
	if err := s.store.SetVerifyOTP(ctx, u.ID, code.Digest, code.ExpiresAt); err != nil {
		return mapStoreErr(err)
	}
	if msg, err := s.mail.VerifyOTP(u.Email, code.Plain); err != nil {
		s.logger.Warnw("verification mail render failed", "user_id", u.ID, "err", err)
	} else if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warnw("verification mail failed", "user_id", u.ID, "err", err)
	}
	return nil
}

func (s *UserService) ConfirmEmailVerification(ctx context.Context, userID, code string) error {
	u, err := s.lookupByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	if err := s.otp.Check(strings.TrimSpace(code), u.VerifyOTPHash, u.VerifyOTPExpiresAt); err != nil {
		return err
	}
	return mapStoreErr(s.store.ConsumeVerifyOTP(ctx, u.ID, u.VerifyOTPHash))
}

// WhoAmI resolves a fully verified token to its account. Every failure
// after the presence check is reported as ErrAuthFailed.
func (s *UserService) WhoAmI(ctx context.Context, raw string) (*entity.PublicView, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoToken
	}
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		return nil, apperr.Wrap(ErrAuthFailed, err)
	}
	u, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(ErrAuthFailed, err)
	}
	if u.ID != claims.Subject {
		return nil, ErrAuthFailed
	}
	return u.Public(), nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*entity.PublicView, error) {
	u, err := s.lookupByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (s *UserService) issue(u *entity.User) (*AuthResult, error) {
	raw, claims, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: raw, Claims: claims, User: u.Public()}, nil
}

func (s *UserService) lookupByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

func (s *UserService) lookupByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, userrepo.ErrOTPNotPending):
		// a concurrent request consumed or replaced the code after our check
		return otp.ErrInvalid
	}
	return err
}
