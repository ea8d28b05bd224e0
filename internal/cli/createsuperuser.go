package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/auth"
	"github.com/sakif/base-backend/internal/model"
	"github.com/sakif/base-backend/internal/service"
)

// ErrAborted is returned when the operator gives up (EOF on a prompt or a
// rejected confirmation).
var ErrAborted = errors.New("superuser creation aborted")

// Superusers is what CreateSuperuser needs from service.UserService.
type Superusers interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	CreateSuperuser(ctx context.Context, p service.CreateSuperuserParams) (*model.User, error)
}

// SuperuserOptions pre-fills answers (from flags and the environment).
type SuperuserOptions struct {
	Email    string
	Username string
	FullName string
	Password string
	// NoInput fails instead of prompting for anything missing.
	NoInput bool
}

// CreateSuperuser asks for the account details, checks the email is free and
// the password satisfies the policy, and creates the account.
//
// Interactive flow:
//
//	Email: admin@example.com
//	Full name (optional): Ada Admin
//	Password: ********
//	Password (again): ********
//	Superuser created successfully.
//
// A taken email or a validation error re-prompts; a password that fails
// the policy can be accepted anyway after a confirmation.
func CreateSuperuser(ctx context.Context, users Superusers, p *Prompter, opts SuperuserOptions) (*model.User, error) {
	email, err := askEmail(ctx, users, p, opts)
	if err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(opts.FullName)
	if fullName == "" && !opts.NoInput {
		if fullName, err = p.Text("Full name (optional): "); err != nil {
			return nil, ErrAborted
		}
		fullName = strings.TrimSpace(fullName)
	}

	password, err := askPassword(p, opts, email, fullName)
	if err != nil {
		return nil, err
	}

	u, err := users.CreateSuperuser(ctx, service.CreateSuperuserParams{
		Email:    email,
		Password: password,
		Username: opts.Username,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}
	p.Printf("Superuser created successfully.\n")
	return u, nil
}

func askEmail(ctx context.Context, users Superusers, p *Prompter, opts SuperuserOptions) (string, error) {
	email := opts.Email
	for {
		if email == "" {
			if opts.NoInput {
				return "", apperror.ValidationFailed("email", "email is required with --no-input")
			}
			var err error
			if email, err = p.Text("Email: "); err != nil {
				return "", ErrAborted
			}
		}

		email = service.NormalizeEmail(email)
		problem := ""
		if err := service.ValidateEmail(email); err != nil {
			problem = messageOf(err)
		} else if taken, err := emailTaken(ctx, users, email); err != nil {
			return "", err
		} else if taken {
			problem = "That email is already taken."
		}

		if problem == "" {
			return email, nil
		}
		if opts.NoInput {
			return "", apperror.ValidationFailed("email", problem)
		}
		p.Printf("Error: %s\n", problem)
		email = ""
	}
}

func emailTaken(ctx context.Context, users Superusers, email string) (bool, error) {
	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("checking email: %w", err)
}

func askPassword(p *Prompter, opts SuperuserOptions, email, fullName string) (string, error) {
	if opts.NoInput {
		if opts.Password == "" {
			return "", apperror.ValidationFailed("password", "password is required with --no-input")
		}
		return opts.Password, auth.ValidatePassword(opts.Password, email, fullName)
	}

	for {
		password := opts.Password
		if password == "" {
			var err error
			if password, err = p.Password("Password: "); err != nil {
				return "", ErrAborted
			}
			again, err := p.Password("Password (again): ")
			if err != nil {
				return "", ErrAborted
			}
			if password != again {
				p.Printf("Error: Your passwords didn't match.\n")
				continue
			}
			if password == "" {
				p.Printf("Error: Blank passwords aren't allowed.\n")
				continue
			}
		}

		err := auth.ValidatePassword(password, email, fullName)
		if err == nil {
			return password, nil
		}
		p.Printf("%s\n", messageOf(err))
		ok, cerr := p.Confirm("Bypass password validation and create user anyway?")
		if cerr != nil {
			return "", ErrAborted
		}
		if ok {
			return password, nil
		}
		// A pre-filled password that fails the policy can't be re-asked.
		if opts.Password != "" {
			return "", ErrAborted
		}
	}
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
