package recovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/docpilot/portal/internal/model"
)

// Type is the purpose of a redirect link.
type Type string

const (
	TypeRecovery Type = "recovery"
	TypeSignup   Type = "signup"
)

// Bundle is a validated set of reset tokens. It can only be obtained from
// Validate or Parse and cannot be changed afterwards.
type Bundle struct {
	accessToken  string
	refreshToken string
	expiresIn    int
	tokenType    string
	typ          Type
}

func (b Bundle) AccessToken() string  { return b.accessToken }
func (b Bundle) RefreshToken() string { return b.refreshToken }
func (b Bundle) ExpiresIn() int       { return b.expiresIn }
func (b Bundle) TokenType() string    { return b.tokenType }
func (b Bundle) Type() Type           { return b.typ }

type bundleFields struct {
	AccessToken  string `validate:"required,min=10"`
	RefreshToken string `validate:"required,min=10"`
	ExpiresIn    int    `validate:"gt=0"`
	TokenType    string `validate:"eq=bearer"`
	Type         string `validate:"oneof=recovery signup"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks raw token fields and builds a Bundle. Errors wrap
// model.ErrInvalidTokenSchema.
func Validate(raw map[string]string) (Bundle, error) {
	expiresIn, err := strconv.Atoi(strings.TrimSpace(raw[keyExpiresIn]))
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: expires_in is not an integer", model.ErrInvalidTokenSchema)
	}

	typ := raw[keyType]
	if typ == "" {
		typ = string(TypeRecovery)
	}

	f := bundleFields{
		AccessToken:  raw[keyAccessToken],
		RefreshToken: raw[keyRefreshToken],
		ExpiresIn:    expiresIn,
		TokenType:    raw[keyTokenType],
		Type:         typ,
	}
	if err := validate.Struct(f); err != nil {
		return Bundle{}, fmt.Errorf("%w: %s", model.ErrInvalidTokenSchema, describe(err))
	}

	return Bundle{
		accessToken:  f.AccessToken,
		refreshToken: f.RefreshToken,
		expiresIn:    f.ExpiresIn,
		tokenType:    f.TokenType,
		typ:          Type(f.Type),
	}, nil
}

// Parse extracts and validates the tokens carried by rawURL.
func Parse(rawURL string) (Bundle, error) {
	raw, _, ok := Extract(rawURL)
	if !ok {
		return Bundle{}, model.ErrMalformedTokens
	}
	return Validate(raw)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
