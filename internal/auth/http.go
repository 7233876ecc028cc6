// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mahirlabib/credo/internal/platform/apperr"
	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/middleware"
	"github.com/mahirlabib/credo/internal/platform/ratelimit"
	"github.com/mahirlabib/credo/internal/platform/request"
	"github.com/mahirlabib/credo/internal/platform/respond"
	"github.com/mahirlabib/credo/internal/platform/validate"
)

// CookieConfig controls how session and reset cookies are written.
type CookieConfig struct {
	// Secure marks cookies as HTTPS-only. Enabled outside development.
	Secure bool

	// AccessTTL / RefreshTTL bound the session cookie lifetimes to the
	// token lifetimes.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler is the HTTP delivery layer for the authentication core.
type Handler struct {
	service  *Service
	verifier middleware.TokenVerifier
	limiter  *ratelimit.Limiter
	cookies  CookieConfig
}

// NewHandler creates the auth HTTP handler.
func NewHandler(service *Service, verifier middleware.TokenVerifier, limiter *ratelimit.Limiter, cookies CookieConfig) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		limiter:  limiter,
		cookies:  cookies,
	}
}

// Routes mounts the authentication endpoints.
//
// Sign-in, OTP, registration, and account-mutation routes sit behind the
// fixed-window limiter gate; token plumbing routes (refresh, sign-out,
// reset-password completion) do not, matching the surface a client hits
// during normal session upkeep.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(handler.verifier))

	gate := middleware.RateLimitGate(handler.limiter)

	router.Group(func(router chi.Router) {
		router.Use(gate)
		router.Post("/signup", handler.Register)
		router.Post("/signin", handler.SignIn)
		router.Post("/request-otp", handler.RequestOtp)
		router.Post("/verify-otp", handler.VerifyOtp)
	})

	router.Group(func(router chi.Router) {
		router.Use(gate, middleware.RequireAuth)
		router.Patch("/update-profile", handler.UpdateProfile)
		router.Delete("/delete-account", handler.DeleteAccount)
		router.Put("/reactivate-account", handler.ReactivateAccount)
	})

	router.Group(func(router chi.Router) {
		router.Use(middleware.RequireAuth)
		router.Get("/my-profile", handler.MyProfile)
	})

	router.Post("/reset-password", handler.ResetPassword)
	router.Post("/refresh-tokens", handler.RefreshTokens)
	router.Post("/signout", handler.SignOut)

	return router
}

// # Registration & Sign-In

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /signup.
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("name", input.Name).
		MaxLen("name", input.Name, NameMaxLength).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		MinLen("password", input.Password, PasswordMinLength).
		MaxLen("password", input.Password, PasswordMaxLength).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.Register(request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, "User created successfully", account)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /signin. Success dispatches a verification passcode;
// tokens are only issued by the verify-otp step.
func (handler *Handler) SignIn(writer http.ResponseWriter, request *http.Request) {
	var input signInRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.SignIn(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "OTP sent successfully", account)
}

// # OTP Lifecycle

type requestOtpRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// RequestOtp handles POST /request-otp.
func (handler *Handler) RequestOtp(writer http.ResponseWriter, request *http.Request) {
	var input requestOtpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("type", input.Type).
		OneOf("type", input.Type, string(OtpTypeEmailVerification), string(OtpTypePasswordReset)).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RequestOtp(request.Context(), input.Email, OtpType(input.Type)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "OTP sent successfully", nil)
}

type verifyOtpRequest struct {
	Email   string `json:"email"`
	OtpCode string `json:"otpCode"`
	OtpType string `json:"otpType"`
}

// VerifyOtp handles POST /verify-otp.
//
// Email-verification success materializes the token pair as session cookies
// (and echoes it in the body for non-browser clients). Password-reset success
// opens the reset transaction as a cookie pair instead.
func (handler *Handler) VerifyOtp(writer http.ResponseWriter, request *http.Request) {
	var input verifyOtpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("otpCode", input.OtpCode).
		OtpCode("otpCode", input.OtpCode, OtpCodeLength).
		Required("otpType", input.OtpType).
		OneOf("otpType", input.OtpType, string(OtpTypeEmailVerification), string(OtpTypePasswordReset)).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.VerifyOtp(request.Context(), input.Email, input.OtpCode, OtpType(input.OtpType))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	switch result.Type {
	case OtpTypeEmailVerification:
		handler.setAuthCookies(writer, *result.Tokens)
		respond.OK(writer, "OTP code verified successfully.", result.Tokens)
	case OtpTypePasswordReset:
		handler.setResetCookies(writer, result.ResetToken, result.ResetExpiry)
		respond.OK(writer, "OTP verified successfully. Reset your password", nil)
	default:
		respond.OK(writer, "OTP code verified successfully.", nil)
	}
}

// # Password Reset

type resetPasswordRequest struct {
	Email              string `json:"email"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// ResetPassword handles POST /reset-password. The reset transaction state
// arrives as cookies set by the verify-otp step.
func (handler *Handler) ResetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("newPassword", input.NewPassword).
		MinLen("newPassword", input.NewPassword, PasswordMinLength).
		MaxLen("newPassword", input.NewPassword, PasswordMaxLength).
		Matches("confirmNewPassword", input.ConfirmNewPassword, input.NewPassword, "Passwords do not match").
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session := ResetSession{
		HashedToken: cookieValue(request, constants.ResetTokenCookieName),
		Expiry:      cookieValue(request, constants.ResetExpiryCookieName),
	}

	if err := handler.service.ResetPassword(request.Context(), input.Email, input.NewPassword, session); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearResetCookies(writer)
	respond.OK(writer, "Password reset successfully", nil)
}

// # Session Upkeep

// RefreshTokens handles POST /refresh-tokens, rotating the cookie pair.
func (handler *Handler) RefreshTokens(writer http.ResponseWriter, request *http.Request) {
	pair, err := handler.service.RefreshTokens(request.Context(), cookieValue(request, constants.RefreshTokenCookieName))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, pair)
	respond.OK(writer, "Refreshing tokens successfully", nil)
}

// SignOut handles POST /signout.
func (handler *Handler) SignOut(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.SignOut(request.Context(), cookieValue(request, constants.RefreshTokenCookieName)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearAuthCookies(writer)
	respond.OK(writer, "Logged out successfully", nil)
}

// # Profile

type profilePayload struct {
	User *Account `json:"user"`
}

// MyProfile handles GET /my-profile.
func (handler *Handler) MyProfile(writer http.ResponseWriter, request *http.Request) {
	subjectID, err := requestutil.RequiredSubjectID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.MyProfile(request.Context(), subjectID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Profile fetched successfully", profilePayload{User: account})
}

// UpdateProfile handles PATCH /update-profile (multipart form).
func (handler *Handler) UpdateProfile(writer http.ResponseWriter, request *http.Request) {
	subjectID, err := requestutil.RequiredSubjectID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(AvatarMaxBytes); err != nil {
		respond.Error(writer, request, apperr.BadRequest("Invalid multipart form data"))
		return
	}

	input := UpdateProfileInput{
		Name: request.FormValue("name"),
		Bio:  request.FormValue("bio"),
	}

	validator := &validate.Validator{}
	if err := validator.
		MaxLen("name", input.Name, NameMaxLength).
		MaxLen("bio", input.Bio, BioMaxLength).
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	file, header, err := request.FormFile("avatarFile")
	if err == nil {
		defer file.Close()
		if header.Size > AvatarMaxBytes {
			respond.Error(writer, request, apperr.ValidationError("Invalid data received",
				apperr.FieldError{Field: "avatarFile", Message: "File exceeds the maximum allowed size"}))
			return
		}
		input.Avatar = &AvatarUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		}
	}

	account, err := handler.service.UpdateProfile(request.Context(), subjectID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Profile updated successfully", profilePayload{User: account})
}

// # Account Deletion

type deleteAccountRequest struct {
	Type string `json:"type"`
}

// DeleteAccount handles DELETE /delete-account.
func (handler *Handler) DeleteAccount(writer http.ResponseWriter, request *http.Request) {
	subjectID, err := requestutil.RequiredSubjectID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input deleteAccountRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if err := validator.
		Required("type", input.Type).
		OneOf("type", input.Type, "soft", "hard").
		Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteAccount(request.Context(), subjectID, input.Type); err != nil {
		respond.Error(writer, request, err)
		return
	}

	message := "Account deactivated successfully!"
	if input.Type == "hard" {
		message = "Account deleted successfully!"
		handler.clearAuthCookies(writer)
	}
	respond.OK(writer, message, nil)
}

// ReactivateAccount handles PUT /reactivate-account.
func (handler *Handler) ReactivateAccount(writer http.ResponseWriter, request *http.Request) {
	subjectID, err := requestutil.RequiredSubjectID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ReactivateAccount(request.Context(), subjectID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account has been reactivated", nil)
}

// # Cookie Plumbing

func (handler *Handler) setAuthCookies(writer http.ResponseWriter, pair TokenPair) {
	handler.setCookie(writer, constants.AccessTokenCookieName, pair.AccessToken, int(handler.cookies.AccessTTL.Seconds()))
	handler.setCookie(writer, constants.RefreshTokenCookieName, pair.RefreshToken, int(handler.cookies.RefreshTTL.Seconds()))
}

func (handler *Handler) clearAuthCookies(writer http.ResponseWriter) {
	handler.setCookie(writer, constants.AccessTokenCookieName, "", -1)
	handler.setCookie(writer, constants.RefreshTokenCookieName, "", -1)
}

func (handler *Handler) setResetCookies(writer http.ResponseWriter, token string, expiry time.Time) {
	maxAge := int(time.Until(expiry).Seconds())
	handler.setCookie(writer, constants.ResetTokenCookieName, token, maxAge)
	handler.setCookie(writer, constants.ResetExpiryCookieName, expiry.UTC().Format(time.RFC3339), maxAge)
}

func (handler *Handler) clearResetCookies(writer http.ResponseWriter) {
	handler.setCookie(writer, constants.ResetTokenCookieName, "", -1)
	handler.setCookie(writer, constants.ResetExpiryCookieName, "", -1)
}

func (handler *Handler) setCookie(writer http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   handler.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(request *http.Request, name string) string {
	cookie, err := request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
