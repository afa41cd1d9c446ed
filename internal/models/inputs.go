package models

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterInput is the registration form. ConfirmPassword never leaves the client.
type RegisterInput struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,password"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
}

// ForgotPasswordInput is the payload of POST /auth/forgot-password.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput is the payload of POST /auth/reset-password.
type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,min=8,password"`
}

// VerifyOTPInput is the payload of POST /auth/verify-otp.
type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,min=4,max=8"`
}
