package service

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"ecofood/internal/apperror"
	"ecofood/internal/auth"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// RegisterInput is the self-service sign-up payload; it always creates a customer.
type RegisterInput struct {
	Name     string `json:"nombre" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Address  string `json:"direccion"`
	Commune  string `json:"comuna"`
	Phone    string `json:"telefono"`
}

// CreateAccountInput is the admin-issued account payload.
type CreateAccountInput struct {
	Name     string `json:"nombre" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"tipo" binding:"required,oneof=company admin customer"`
	TaxID    string `json:"rut"`
	Address  string `json:"direccion"`
	Commune  string `json:"comuna"`
	Phone    string `json:"telefono"`
}

// UpdateAccountInput edits an account. Empty fields keep their current value.
type UpdateAccountInput struct {
	Name    string `json:"nombre"`
	Email   string `json:"email" binding:"omitempty,email"`
	TaxID   string `json:"rut"`
	Address string `json:"direccion"`
	Commune string `json:"comuna"`
	Phone   string `json:"telefono"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   *model.Account `json:"account"`
}

type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*model.Account, error)
	Create(ctx context.Context, actor Actor, in CreateAccountInput) (*model.Account, error)
	Login(ctx context.Context, in LoginInput) (*TokenResponse, error)
	Me(ctx context.Context, actor Actor) (*model.Account, error)
	UpdateProfile(ctx context.Context, actor Actor, in UpdateAccountInput) (*model.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	List(ctx context.Context, filter repository.AccountFilter) ([]model.Account, int64, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateAccountInput) (*model.Account, error)
	SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*model.Account, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	// EnsurePrincipal creates the principal admin on first start, or promotes an
	// existing admin with that email. It is a no-op once a principal exists.
	EnsurePrincipal(ctx context.Context, name, email, password string) (*model.Account, error)
}

type accountService struct {
	repo      repository.AccountRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	tokens    *auth.TokenIssuer
	log       logrus.FieldLogger
	hashCost  int
}

func NewAccountService(
	repo repository.AccountRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens *auth.TokenIssuer,
	log logrus.FieldLogger,
) AccountService {
	return &accountService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		tokens:    tokens,
		log:       log.WithField("component", "accounts"),
		hashCost:  bcrypt.DefaultCost,
	}
}

// validatePassword requires at least 8 characters mixing upper and lower case
// letters, a digit and a symbol.
func validatePassword(password string) error {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if len([]rune(password)) < 8 || !upper || !lower || !digit || !special {
		return apperror.Validation("weak password: use at least 8 characters with upper and lower case letters, a number and a symbol")
	}
	return nil
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", apperror.Validation("invalid email format")
	}
	return email, nil
}

func required(value, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.Validationf("%s is required", field)
	}
	return value, nil
}

func (s *accountService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hashed), nil
}

// checkEmailFree fails with a conflict when another account already uses email.
func (s *accountService) checkEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return apperror.Conflict("email already registered")
	}
	return nil
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	account := &model.Account{Role: model.RoleCustomer, Status: model.AccountActive, Phone: strings.TrimSpace(in.Phone)}

	var err error
	if account.Name, err = required(in.Name, "nombre"); err != nil {
		return nil, err
	}
	if account.Address, err = required(in.Address, "direccion"); err != nil {
		return nil, err
	}
	if account.Commune, err = required(in.Commune, "comuna"); err != nil {
		return nil, err
	}
	if err := s.prepareCredentials(ctx, account, in.Email, in.Password); err != nil {
		return nil, err
	}

	if err := s.create(ctx, Actor{}, account, model.ActionRegisterAccount); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) prepareCredentials(ctx context.Context, account *model.Account, email, password string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, email, uuid.Nil); err != nil {
		return err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	account.Email = email
	account.Password = hashed
	return nil
}

func (s *accountService) create(ctx context.Context, actor Actor, account *model.Account, action string) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, account); err != nil {
			return err
		}
		if actor.ID == uuid.Nil {
			actor = Actor{ID: account.ID, Role: account.Role}
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, action, account.ID.String(), account.Email, map[string]string{
			"tipo":   account.Role,
			"nombre": account.Name,
		}))
	})
}

func (s *accountService) Create(ctx context.Context, actor Actor, in CreateAccountInput) (*model.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !model.ValidRole(in.Role) {
		return nil, apperror.Validation("tipo must be admin, company or customer")
	}

	account := &model.Account{
		Role:    in.Role,
		Status:  model.AccountActive,
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Commune: strings.TrimSpace(in.Commune),
		TaxID:   strings.TrimSpace(in.TaxID),
	}

	var err error
	if account.Name, err = required(in.Name, "nombre"); err != nil {
		return nil, err
	}
	switch in.Role {
	case model.RoleCompany:
		if _, err := required(in.TaxID, "rut"); err != nil {
			return nil, err
		}
		if _, err := required(in.Address, "direccion"); err != nil {
			return nil, err
		}
		account.Commune = ""
	case model.RoleCustomer:
		if _, err := required(in.Address, "direccion"); err != nil {
			return nil, err
		}
		if _, err := required(in.Commune, "comuna"); err != nil {
			return nil, err
		}
		account.TaxID = ""
	case model.RoleAdmin:
		account.TaxID, account.Address, account.Commune = "", "", ""
	}
	// Only the bootstrap may create the principal admin.
	account.Principal = false

	if err := s.prepareCredentials(ctx, account, in.Email, in.Password); err != nil {
		return nil, err
	}
	if err := s.create(ctx, actor, account, model.ActionCreateAccount); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	account, err := s.repo.FindByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.IsActive() {
		return nil, apperror.Forbidden("account is inactive")
	}

	token, expires, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: expires, Account: account}, nil
}

func (s *accountService) Me(ctx context.Context, actor Actor) (*model.Account, error) {
	return s.repo.FindByID(ctx, actor.ID)
}

func (s *accountService) UpdateProfile(ctx context.Context, actor Actor, in UpdateAccountInput) (*model.Account, error) {
	if actor.IsCustomer() {
		for field, value := range map[string]string{"nombre": in.Name, "direccion": in.Address, "comuna": in.Commune} {
			if _, err := required(value, field); err != nil {
				return nil, err
			}
		}
	}
	return s.update(ctx, actor, actor.ID, in, model.ActionUpdateAccount)
}

func (s *accountService) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *accountService) List(ctx context.Context, filter repository.AccountFilter) ([]model.Account, int64, error) {
	if filter.Role != "" && !model.ValidRole(filter.Role) {
		return nil, 0, apperror.Validationf("unknown tipo %q", filter.Role)
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *accountService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateAccountInput) (*model.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.update(ctx, actor, id, in, model.ActionUpdateAccount)
}

func (s *accountService) update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateAccountInput, action string) (*model.Account, error) {
	var account *model.Account
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.editable(txCtx, id)
		if err != nil {
			return err
		}

		if in.Email != "" {
			email, err := validateEmail(in.Email)
			if err != nil {
				return err
			}
			if err := s.checkEmailFree(txCtx, email, account.ID); err != nil {
				return err
			}
			account.Email = email
		}
		overwrite(&account.Name, in.Name)
		overwrite(&account.Phone, in.Phone)
		overwrite(&account.Address, in.Address)
		switch account.Role {
		case model.RoleCompany:
			overwrite(&account.TaxID, in.TaxID)
		case model.RoleCustomer:
			overwrite(&account.Commune, in.Commune)
		}

		if err := s.repo.Update(txCtx, account); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, action, account.ID.String(), account.Email, in))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func overwrite(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

// editable loads an account and refuses the principal admin.
func (s *accountService) editable(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.IsProtected() {
		return nil, apperror.Forbidden("the principal admin cannot be modified")
	}
	return account, nil
}

func (s *accountService) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*model.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != model.AccountActive && status != model.AccountInactive {
		return nil, apperror.Validation("estado must be activo or inactivo")
	}

	var account *model.Account
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.editable(txCtx, id)
		if err != nil {
			return err
		}
		previous := account.Status
		account.Status = status
		if err := s.repo.Update(txCtx, account); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionChangeAccountStatus, account.ID.String(), account.Email, map[string]string{
			"from": previous,
			"to":   status,
		}))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		account, err := s.editable(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionDeleteAccount, id.String(), account.Email, map[string]string{
			"tipo": account.Role,
		}))
	})
}

func (s *accountService) EnsurePrincipal(ctx context.Context, name, email, password string) (*model.Account, error) {
	principal, err := s.repo.FindPrincipal(ctx)
	if err == nil {
		return principal, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	email, err = validateEmail(email)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Role == model.RoleAdmin:
		existing.Principal = true
		existing.Status = model.AccountActive
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.log.WithField("email", email).Info("promoted existing admin to principal")
		return existing, nil
	case err == nil:
		return nil, apperror.Conflict("bootstrap email belongs to a non-admin account")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	account := &model.Account{
		Name:      name,
		Email:     email,
		Password:  hashed,
		Role:      model.RoleAdmin,
		Status:    model.AccountActive,
		Principal: true,
	}
	if err := s.create(ctx, Actor{}, account, model.ActionCreateAccount); err != nil {
		return nil, err
	}
	s.log.WithField("email", email).Info("created principal admin")
	return account, nil
}
