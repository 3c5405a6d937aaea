package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/notify"
)

const minPasswordLen = 6

type Config struct {
	Secret       []byte
	TokenTTL     time.Duration
	ResetTTL     time.Duration
	AdminEmails  []string
	EmailDomains []string
}

// EmailPolicy is the institution-domain allow-list.
type EmailPolicy struct{ domains []string }

func NewEmailPolicy(domains []string) EmailPolicy {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			out = append(out, d)
		}
	}
	return EmailPolicy{domains: out}
}

// Check normalizes email and rejects addresses outside the allow-list.
// An empty allow-list accepts any syntactically valid address.
func (p EmailPolicy) Check(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierr.ErrInvalid("invalid email address")
	}
	if len(p.domains) == 0 {
		return email, nil
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	for _, d := range p.domains {
		if domain == d {
			return email, nil
		}
	}
	return "", apierr.Invalidf("email must end with @%s", strings.Join(p.domains, " or @"))
}

type Service struct {
	db       *sql.DB
	store    *Store
	cfg      Config
	emails   EmailPolicy
	admins   map[string]bool
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(conn *sql.DB, cfg Config, n notify.Notifier) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 15 * time.Minute
	}
	if n == nil {
		n = notify.Nop{}
	}
	admins := map[string]bool{}
	for _, e := range cfg.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		cfg:      cfg,
		emails:   NewEmailPolicy(cfg.EmailDomains),
		admins:   admins,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Emails() EmailPolicy { return s.emails }

func toDTO(u *User) UserDTO {
	d := UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		IsApproved:   u.IsApproved,
		IsActive:     u.IsActive,
		RegisteredAt: u.RegisteredAt,
	}
	if u.ApprovedAt.Valid {
		t := u.ApprovedAt.Time
		d.ApprovedAt = &t
	}
	return d
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func checkPassword(pw, confirm string) error {
	if len(pw) < minPasswordLen {
		return apierr.Invalidf("password must be at least %d characters", minPasswordLen)
	}
	if confirm != "" && confirm != pw {
		return apierr.ErrInvalid("passwords do not match")
	}
	return nil
}

// Register creates a login. Configured admin emails are approved immediately;
// everyone else waits for an admin.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (UserDTO, error) {
	email, err := s.emails.Check(req.Email)
	if err != nil {
		return UserDTO{}, err
	}
	if err := checkPassword(req.Password, req.ConfirmPassword); err != nil {
		return UserDTO{}, err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return UserDTO{}, err
	}

	now := s.now()
	u := &User{Email: email, PasswordHash: hash, Role: RoleUser, IsActive: true, RegisteredAt: now}
	if s.admins[email] {
		u.Role = RoleAdmin
		u.IsApproved = true
		u.ApprovedAt = sql.NullTime{Time: now, Valid: true}
	}
	id, err := s.store.Create(ctx, s.db, u)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return UserDTO{}, apierr.ErrConflict("email already registered")
		}
		return UserDTO{}, err
	}
	u.ID = id
	logging.Log.WithField("email", email).Info("auth: registered")
	return toDTO(u), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, UserDTO, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.GetByEmail(ctx, s.db, email)
	if err != nil {
		return "", UserDTO{}, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", UserDTO{}, apierr.ErrUnauthorized("invalid email or password")
	}
	if !u.IsApproved {
		return "", UserDTO{}, apierr.ErrForbidden("account awaiting admin approval")
	}
	if !u.IsActive {
		return "", UserDTO{}, apierr.ErrForbidden("account disabled")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(u.ID, 10),
		"email": u.Email,
		"role":  u.Role,
		"iat":   s.now().Unix(),
		"exp":   s.now().Add(s.cfg.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", UserDTO{}, err
	}
	return signed, toDTO(u), nil
}

func (s *Service) Me(ctx context.Context, id uint64) (UserDTO, error) {
	u, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return UserDTO{}, err
	}
	if u == nil {
		return UserDTO{}, apierr.ErrNotFound("user not found")
	}
	return toDTO(u), nil
}

func (s *Service) ListUsers(ctx context.Context, pendingOnly bool) ([]UserDTO, error) {
	users, err := s.store.List(ctx, pendingOnly)
	if err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toDTO(&users[i]))
	}
	return out, nil
}

func (s *Service) setApproval(ctx context.Context, id uint64, approved bool) (UserDTO, error) {
	n, err := s.store.SetApproval(ctx, id, approved, s.now())
	if err != nil {
		return UserDTO{}, err
	}
	if n == 0 {
		return UserDTO{}, apierr.ErrNotFound("user not found")
	}
	return s.Me(ctx, id)
}

func (s *Service) Approve(ctx context.Context, id uint64) (UserDTO, error) {
	u, err := s.setApproval(ctx, id, true)
	if err != nil {
		return UserDTO{}, err
	}
	s.notifier.Notify(notify.Message{
		Kind:    notify.KindRegistrationApproved,
		To:      u.Email,
		Subject: "Your LIMS account has been approved",
		Body:    "You can now log in with the password you registered with.",
	})
	return u, nil
}

func (s *Service) Reject(ctx context.Context, id uint64) (UserDTO, error) {
	return s.setApproval(ctx, id, false)
}

// ToggleActive flips is_active. Admins cannot disable themselves.
func (s *Service) ToggleActive(ctx context.Context, id, actorID uint64) (UserDTO, error) {
	if id == actorID {
		return UserDTO{}, apierr.ErrConflict("cannot disable your own account")
	}
	u, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return UserDTO{}, err
	}
	if u == nil {
		return UserDTO{}, apierr.ErrNotFound("user not found")
	}
	if _, err := s.store.SetActive(ctx, id, !u.IsActive); err != nil {
		return UserDTO{}, err
	}
	u.IsActive = !u.IsActive
	return toDTO(u), nil
}

func (s *Service) Delete(ctx context.Context, id, actorID uint64) error {
	if id == actorID {
		return apierr.ErrConflict("cannot delete your own account")
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apierr.ErrNotFound("user not found")
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, id uint64, req ChangePasswordRequest) error {
	u, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apierr.ErrNotFound("user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return apierr.ErrUnauthorized("current password is wrong")
	}
	if err := checkPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	_, err = s.store.SetPassword(ctx, id, hash)
	return err
}

// RequestReset issues a one-time token "<user id>.<secret>" and hands it to
// the notifier. Unknown emails succeed silently.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.GetByEmail(ctx, s.db, email)
	if err != nil {
		return err
	}
	if u == nil {
		logging.Log.WithField("email", email).Warn("auth: reset requested for unknown email")
		return nil
	}
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	raw := hex.EncodeToString(secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.store.SetResetToken(ctx, u.ID, string(hash), s.now().Add(s.cfg.ResetTTL)); err != nil {
		return err
	}
	token := fmt.Sprintf("%d.%s", u.ID, raw)
	s.notifier.Notify(notify.Message{
		Kind:    notify.KindPasswordReset,
		To:      u.Email,
		Subject: "LIMS password reset",
		Body:    "Use this token to reset your password: " + token,
		Data:    map[string]string{"token": token},
	})
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	invalid := apierr.ErrInvalid("invalid or expired reset token")
	idPart, raw, ok := strings.Cut(req.Token, ".")
	if !ok {
		return invalid
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return invalid
	}
	u, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if u == nil || !u.ResetTokenHash.Valid || !u.ResetTokenExpiry.Valid || s.now().After(u.ResetTokenExpiry.Time) {
		return invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(u.ResetTokenHash.String), []byte(raw)) != nil {
		return invalid
	}
	if err := checkPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	_, err = s.store.SetPassword(ctx, id, hash)
	return err
}

const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

func tempPassword(n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(tempAlphabet)))
	for i := range b {
		k, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = tempAlphabet[k.Int64()]
	}
	return string(b), nil
}

// EnsureAccountTx links a profile to a login. It returns the existing user
// id for email, or creates an approved account with a temporary password.
// The temporary password is non-empty only when an account was created.
func (s *Service) EnsureAccountTx(ctx context.Context, tx db.DBTX, email string) (uint64, string, error) {
	u, err := s.store.GetByEmail(ctx, tx, email)
	if err != nil {
		return 0, "", err
	}
	if u != nil {
		return u.ID, "", nil
	}
	pw, err := tempPassword(10)
	if err != nil {
		return 0, "", err
	}
	hash, err := hashPassword(pw)
	if err != nil {
		return 0, "", err
	}
	now := s.now()
	id, err := s.store.Create(ctx, tx, &User{
		Email: email, PasswordHash: hash, Role: RoleUser,
		IsApproved: true, IsActive: true, RegisteredAt: now,
		ApprovedAt: sql.NullTime{Time: now, Valid: true},
	})
	if err != nil {
		if db.IsDuplicateKey(err) {
			return 0, "", apierr.ErrConflict("email already registered")
		}
		return 0, "", err
	}
	return id, pw, nil
}
