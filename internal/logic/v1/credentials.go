package v1

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/session-auth-service/internal/core/domain"
)

const (
	// DefaultHashCost is the bcrypt cost used when none is configured.
	DefaultHashCost = bcrypt.DefaultCost

	passwordMinLength = 8
	passwordMaxLength = 50

	msgName     = "Name must be at least 1 characters long"
	msgEmail    = "Invalid email format"
	// passwordSymbols are the characters counted as symbols by the strength rule.
	passwordSymbols = "-#!$@£%^&*()_+|~=`{}[]:\";'<>?,./\\ "

	msgPassword = "Password must contain at least 1 lowercase letter, 1 uppercase letter, 1 number, 1 symbol, and be between 8-50 characters long."
)

// CredentialVerifier validates request input and hashes/compares passwords.
type CredentialVerifier struct {
	cost int
}

// NewCredentialVerifier returns a verifier hashing with the given bcrypt cost.
// Costs below bcrypt.DefaultCost are raised to it.
func NewCredentialVerifier(cost int) *CredentialVerifier {
	if cost < DefaultHashCost {
		cost = DefaultHashCost
	}
	return &CredentialVerifier{cost: cost}
}

type signupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateSignupInput returns every violated field, in the order name, email, password.
func (v *CredentialVerifier) ValidateSignupInput(name, email, password string) []domain.FieldError {
	in := signupInput{Name: strings.TrimSpace(name), Email: email, Password: password}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error(msgName)),
		validation.Field(&in.Email, emailRules()...),
		validation.Field(&in.Password, passwordRules()...),
	)
	return fieldErrors(err, "name", "email", "password")
}

// ValidateLoginInput applies the signup email and password rules to a login.
func (v *CredentialVerifier) ValidateLoginInput(email, password string) []domain.FieldError {
	in := loginInput{Email: email, Password: password}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules()...),
		validation.Field(&in.Password, passwordRules()...),
	)
	return fieldErrors(err, "email", "password")
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(msgEmail),
		is.Email.Error(msgEmail),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(msgPassword),
		validation.RuneLength(passwordMinLength, passwordMaxLength).Error(msgPassword),
		validation.By(strongPassword),
	}
}

// strongPassword requires an ASCII lowercase letter, an ASCII uppercase
// letter, an ASCII digit and one of passwordSymbols.
func strongPassword(value interface{}) error {
	s, _ := value.(string)
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if lower && upper && digit && symbol {
		return nil
	}
	return errors.New(msgPassword)
}

// fieldErrors flattens ozzo's error map following the given field order.
func fieldErrors(err error, order ...string) []domain.FieldError {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []domain.FieldError{{Field: "request", Error: err.Error()}}
	}

	out := make([]domain.FieldError, 0, len(errs))
	for _, field := range order {
		if ferr, ok := errs[field]; ok && ferr != nil {
			out = append(out, domain.FieldError{Field: field, Error: ferr.Error()})
		}
	}
	return out
}

// HashPassword returns a salted bcrypt hash of plain.
func (v *CredentialVerifier) HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword reports whether plain matches hash.
func (v *CredentialVerifier) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func validationError(fields []domain.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
