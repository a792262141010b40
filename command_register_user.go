package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Password  string   `json:"password"`
	Roles     []string `json:"roles"`
	UseHashid bool     `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates accounts. The duplicate email check and the
// insert share one transaction so two concurrent registrations of the same
// address cannot both win.
type RegisterUserHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		hasher: NewHasher(),
	}
}

// WithRegisterHasher swaps the password hasher
func (h *RegisterUserHandler) WithRegisterHasher(hasher PasswordHasher) *RegisterUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := h.hasher.Hash(ctx, event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	phone, err := NormalizePhoneNumber(event.Phone)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number provided")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().FindByEmailTx(ctx, tx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}
		if existing != nil {
			return ErrEmailTaken
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = phone
		user.FullName = event.FullName
		user.Roles = event.Roles
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

type ChangePasswordMessage struct {
	UserID      string `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

// ChangePasswordHandler rotates an account password after verifying the
// current one. Sessions stay alive; revoking them is the caller's call.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		hasher: NewHasher(),
	}
}

// WithChangePasswordHasher swaps the password hasher
func (h *ChangePasswordHandler) WithChangePasswordHasher(hasher PasswordHasher) *ChangePasswordHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "account not found")
	}

	if !h.hasher.Verify(ctx, event.OldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := h.hasher.Hash(ctx, event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := h.repo.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	return nil
}
