package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
)

var (
	authEmail string
	authName  string
	otpCode   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with email and password. The password is read without echo.

Examples:
  girs login
  girs login --email ana@example.com
  echo "$PASSWORD" | girs login --email ana@example.com`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account. Passwords need at least 8 characters with an
uppercase letter and a digit. A confirmation link is mailed afterwards.

Examples:
  girs register --name "Ana Ruiz" --email ana@example.com`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var confirmEmailCmd = &cobra.Command{
	Use:   "confirm-email <token|link>",
	Short: "Confirm an email address",
	Long: `Confirm an email address with the token from the confirmation mail.
The whole link may be pasted instead of the token.

Examples:
  girs confirm-email 4f9c2a
  girs confirm-email "https://app.example.com/verificar-email?token=4f9c2a"`,
	Args: cobra.ExactArgs(1),
	RunE: runConfirmEmail,
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset code",
	Args:  cobra.NoArgs,
	RunE:  runForgotPassword,
}

var verifyOTPCmd = &cobra.Command{
	Use:   "verify-otp",
	Short: "Check a password reset code",
	Args:  cobra.NoArgs,
	RunE:  runVerifyOTP,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password after verifying a reset code",
	Long: `Set a new password. Run 'girs forgot-password' and 'girs verify-otp' first.

Examples:
  girs forgot-password --email ana@example.com
  girs verify-otp --email ana@example.com --code 123456
  girs reset-password --email ana@example.com`,
	Args: cobra.NoArgs,
	RunE: runResetPassword,
}

func init() {
	loginCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "full name")
	forgotPasswordCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	verifyOTPCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	verifyOTPCmd.Flags().StringVarP(&otpCode, "code", "c", "", "code from the reset mail")
	resetPasswordCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	email, err := valueOrPrompt(authEmail, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	if err := sessions.Login(ctx, models.LoginInput{Email: email, Password: password}); err != nil {
		return err
	}

	user := sessions.State().User
	fmt.Printf("Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name, err := valueOrPrompt(authName, "Name: ")
	if err != nil {
		return err
	}
	email, err := valueOrPrompt(authEmail, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}

	input := models.RegisterInput{Name: name, Email: email, Password: password, ConfirmPassword: confirm}
	if err := sessions.Register(ctx, input); err != nil {
		return err
	}

	fmt.Printf("Account created. Check %s for a confirmation link, then run 'girs confirm-email <token>'.\n", email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	sessions.Logout(context.Background())
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if err := requireSession(context.Background()); err != nil {
		return err
	}

	user := sessions.State().User
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if verbose {
		fmt.Printf("  ID: %s\n", user.ID)
		if !user.CreatedAt.IsZero() {
			fmt.Printf("  Member since: %s\n", user.CreatedAt.Format("2006-01-02"))
		}
		if user.Avatar != nil {
			fmt.Printf("  Avatar: %s\n", *user.Avatar)
		}
	}
	return nil
}

func runConfirmEmail(cmd *cobra.Command, args []string) error {
	token := confirmationToken(args[0])
	if token == "" {
		return fmt.Errorf("%w: no token in %q", apperrors.ErrValidation, args[0])
	}

	if err := apiClient.ConfirmEmail(context.Background(), token); err != nil {
		return err
	}
	fmt.Println("Email confirmed. You can now run 'girs login'.")
	return nil
}

// confirmationToken accepts either a bare token or a confirmation link
// carrying it as ?token=.
func confirmationToken(arg string) string {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "token=") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	email, err := valueOrPrompt(authEmail, "Email: ")
	if err != nil {
		return err
	}

	input := models.ForgotPasswordInput{Email: email}
	if err := models.Validate(input); err != nil {
		return err
	}
	if err := apiClient.ForgotPassword(context.Background(), input); err != nil {
		return err
	}

	fmt.Printf("If an account exists for %s, a reset code is on its way.\n", email)
	fmt.Println("Next: girs verify-otp --email", email, "--code <code>")
	return nil
}

func runVerifyOTP(cmd *cobra.Command, args []string) error {
	email, err := valueOrPrompt(authEmail, "Email: ")
	if err != nil {
		return err
	}
	code, err := valueOrPrompt(otpCode, "Code: ")
	if err != nil {
		return err
	}

	input := models.VerifyOTPInput{Email: email, OTP: code}
	if err := models.Validate(input); err != nil {
		return err
	}
	if err := apiClient.VerifyOTP(context.Background(), input); err != nil {
		return err
	}

	fmt.Println("Code accepted. Next: girs reset-password --email", email)
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	email, err := valueOrPrompt(authEmail, "Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", apperrors.ErrValidation)
	}

	input := models.ResetPasswordInput{Email: email, NewPassword: password}
	if err := models.Validate(input); err != nil {
		return err
	}
	if err := apiClient.ResetPassword(context.Background(), input); err != nil {
		return err
	}

	fmt.Println("Password updated. You can now run 'girs login'.")
	return nil
}
