// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahirlabib/credo/internal/platform/apperr"
)

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name      string
		chain     func(v *Validator) *Validator
		wantField string
	}{
		{
			name:      "required rejects blank",
			chain:     func(v *Validator) *Validator { return v.Required("name", "   ") },
			wantField: "name",
		},
		{
			name:  "required accepts non-blank",
			chain: func(v *Validator) *Validator { return v.Required("name", "Alice") },
		},
		{
			name:      "max length counts runes",
			chain:     func(v *Validator) *Validator { return v.MaxLen("bio", "héllo", 4) },
			wantField: "bio",
		},
		{
			name:  "max length boundary passes",
			chain: func(v *Validator) *Validator { return v.MaxLen("bio", "héllo", 5) },
		},
		{
			name:      "min length rejects short passwords",
			chain:     func(v *Validator) *Validator { return v.MinLen("password", "short", 8) },
			wantField: "password",
		},
		{
			name:      "email rejects a bare domain",
			chain:     func(v *Validator) *Validator { return v.Email("email", "example.com") },
			wantField: "email",
		},
		{
			name:  "email accepts a plain address",
			chain: func(v *Validator) *Validator { return v.Email("email", "alice@example.com") },
		},
		{
			name:      "otp code rejects the wrong length",
			chain:     func(v *Validator) *Validator { return v.OtpCode("otpCode", "12345", 6) },
			wantField: "otpCode",
		},
		{
			name:      "otp code rejects non-digits",
			chain:     func(v *Validator) *Validator { return v.OtpCode("otpCode", "12a456", 6) },
			wantField: "otpCode",
		},
		{
			name:  "otp code accepts six digits",
			chain: func(v *Validator) *Validator { return v.OtpCode("otpCode", "012345", 6) },
		},
		{
			name:  "uuid accepts mixed case",
			chain: func(v *Validator) *Validator { return v.UUID("id", "0190BB1E-38FE-7C70-98F5-3BDA3B1E0001") },
		},
		{
			name:      "uuid rejects malformed input",
			chain:     func(v *Validator) *Validator { return v.UUID("id", "not-a-uuid") },
			wantField: "id",
		},
		{
			name:      "one of rejects values outside the set",
			chain:     func(v *Validator) *Validator { return v.OneOf("type", "purge", "soft", "hard") },
			wantField: "type",
		},
		{
			name:  "one of accepts a member",
			chain: func(v *Validator) *Validator { return v.OneOf("type", "hard", "soft", "hard") },
		},
		{
			name: "matches rejects differing values",
			chain: func(v *Validator) *Validator {
				return v.Matches("confirmNewPassword", "one", "two", "Passwords do not match")
			},
			wantField: "confirmNewPassword",
		},
		{
			name:      "custom adds a failure when the condition holds",
			chain:     func(v *Validator) *Validator { return v.Custom("size", true, "Too large") },
			wantField: "size",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.chain(&Validator{}).Err()
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, "VALIDATION_ERROR", appError.Code)
			require.Len(t, appError.Details, 1)
			assert.Equal(t, tc.wantField, appError.Details[0].Field)
		})
	}
}

func TestValidatorChainCollectsEveryFailure(t *testing.T) {
	v := &Validator{}
	err := v.
		Required("name", "").
		Email("email", "nope").
		MinLen("password", "pw", 8).
		Err()

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Invalid data received", appError.Message)
	assert.Len(t, appError.Details, 3)
	assert.True(t, v.HasErrors())
}

func TestRequiredError(t *testing.T) {
	appError := RequiredError("refreshToken", "This field is required")
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
	require.Len(t, appError.Details, 1)
	assert.Equal(t, "refreshToken", appError.Details[0].Field)
}
