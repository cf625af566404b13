package http

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
)

type loginRequest authsdk.LoginRequest

// Validate will run validation rules
func (r *loginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UsernameOrEmail, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type registerRequest authsdk.RegisterRequest

// Validate will run validation rules
func (r *registerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(0, 255), is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0), validation.By(maxBytes(cryptox.MaxPasswordBytes))),
	)
}

type refreshRequest authsdk.RefreshRequest

// Validate will run validation rules
func (r *refreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// maxBytes bounds the encoded length, which is what bcrypt sees.
func maxBytes(n int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > n {
			return fmt.Errorf("the length must be no more than %d bytes", n)
		}
		return nil
	}
}
