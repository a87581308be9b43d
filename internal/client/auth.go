// ABOUTME: Registration, login, and logout calls against the blog API
// ABOUTME: Login persists the credential only if the session is unchanged since the call began

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/storage"
)

// Registration is the sign-up request body
type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Credentials is the login request body
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the backend's login response
type LoginResult struct {
	Token string           `json:"token"`
	User  session.Identity `json:"user"`
}

// Register calls POST /auth/register. It does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := check(reg); err != nil {
		return err
	}

	generation := c.session.Generation()
	if err := c.do(ctx, generation, http.MethodPost, "/auth/register", reg, nil); err != nil {
		// A session change does not undo a completed registration
		if errors.Is(err, session.ErrStaleSession) {
			return nil
		}
		return err
	}
	c.log.Info().Str("email", reg.Email).Msg("Registered")
	return nil
}

// Login calls POST /auth/login and stores the returned credential.
// The identity is returned for the caller to hand to the session store.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := check(creds); err != nil {
		return nil, err
	}

	snap := c.session.Snapshot()
	switch snap.State {
	case session.StateUnknown:
		return nil, session.ErrNotRehydrated
	case session.StateAuthenticated:
		return nil, session.ErrAlreadyAuthenticated
	}

	var result LoginResult
	if err := c.do(ctx, snap.Generation, http.MethodPost, "/auth/login", creds, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login response did not include a token")
	}

	err := c.session.Guard(snap.Generation, func() error {
		return c.storage.Set(storage.KeyCredential, result.Token)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SignIn logs in and records the identity in the session store.
// If the store refuses the identity the credential is removed again.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*session.Identity, error) {
	generation := c.session.Generation()
	result, err := c.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := c.session.Login(result.User); err != nil {
		cleanupErr := c.session.Guard(generation, func() error {
			return c.storage.Delete(storage.KeyCredential)
		})
		if cleanupErr != nil && !errors.Is(cleanupErr, session.ErrStaleSession) {
			c.log.Error().Err(cleanupErr).Msg("Failed to remove unused credential")
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &result.User, nil
}

// Logout deletes the credential and identity. No network call is made.
func (c *Client) Logout() error {
	return c.session.Logout()
}
