package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
	"github.com/raphaelgruber/girs/internal/normalize"
)

// LoginResult is a successful login. User is nil when the backend did not
// include a profile; the caller resolves it with Profile.
type LoginResult struct {
	Token string
	User  *models.User
}

// Login exchanges credentials for a session token.
// Rejected credentials match errors.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, input models.LoginInput) (*LoginResult, error) {
	raw, err := c.do(ctx, "login", http.MethodPost, "/auth/login", input)
	if err != nil {
		err = reclassify(err, apperrors.ErrInvalidCredentials,
			http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden)
		return nil, fmt.Errorf("login: %w", err)
	}

	token, user := normalize.Login(raw)
	if token == "" {
		return nil, fmt.Errorf("login: response carried no token: %w", apperrors.ErrInvalidCredentials)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Profile fetches the profile of the authenticated user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	raw, err := c.do(ctx, "profile", http.MethodGet, "/users/my", nil)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	user, ok := normalize.User(raw)
	if !ok {
		return nil, fmt.Errorf("get profile: response carried no user: %w", apperrors.ErrUnauthorized)
	}
	return &user, nil
}

// Register creates an account. The backend then mails a confirmation link.
func (c *Client) Register(ctx context.Context, input models.RegisterInput) error {
	if _, err := c.do(ctx, "register", http.MethodPost, "/auth/register", input); err != nil {
		err = reclassify(err, apperrors.ErrValidation,
			http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity)
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// ConfirmEmail redeems the token from a confirmation link.
func (c *Client) ConfirmEmail(ctx context.Context, token string) error {
	path := "/auth/confirm-email/" + url.PathEscape(token)
	if _, err := c.do(ctx, "confirm_email", http.MethodGet, path, nil); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// ForgotPassword asks the backend to send a one-time code to email.
func (c *Client) ForgotPassword(ctx context.Context, input models.ForgotPasswordInput) error {
	if _, err := c.do(ctx, "forgot_password", http.MethodPost, "/auth/forgot-password", input); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// VerifyOTP checks a one-time code sent by ForgotPassword.
func (c *Client) VerifyOTP(ctx context.Context, input models.VerifyOTPInput) error {
	if _, err := c.do(ctx, "verify_otp", http.MethodPost, "/auth/verify-otp", input); err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return nil
}

// ResetPassword sets a new password after a verified one-time code.
func (c *Client) ResetPassword(ctx context.Context, input models.ResetPasswordInput) error {
	if _, err := c.do(ctx, "reset_password", http.MethodPost, "/auth/reset-password", input); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, "logout", http.MethodPost, "/auth/logout", nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
