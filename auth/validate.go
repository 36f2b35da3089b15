package auth

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Field-level shape rules for the two unauthenticated entry points.
// Validation failures are safe to surface as 400 text; credential
// mismatches never come from here.

var (
	emailCharsPattern = regexp.MustCompile(`^[a-z0-9._@-]*$`)
	nameCharsPattern  = regexp.MustCompile(`^[A-Za-z ]*$`)
)

// ValidateRegistration checks the registration payload.
func ValidateRegistration(r *RegistrationRequest) error {
	if r == nil {
		return errors.New("user is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.FirstName, nameRules()...),
		validation.Field(&r.LastName, nameRules()...),
		validation.Field(&r.Password, validation.Required, validation.By(passwordRule)),
		validation.Field(&r.Permissions, validation.By(permissionsRule)),
	)
}

// ValidateAuthRequest checks the login payload. The activation token is
// optional; when present it must at least look like base64 before the
// engine compares it against the stored one.
func ValidateAuthRequest(r *AuthRequest) error {
	if r == nil {
		return errors.New("auth request is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 120)),
		validation.Field(&r.ActivationToken, validation.By(activationTokenRule)),
	)
}

// ValidateSecureUser checks the profile-update payload.
func ValidateSecureUser(u *SecureUser) error {
	if u == nil {
		return errors.New("user is required")
	}
	return validation.ValidateStruct(u,
		validation.Field(&u.Email, emailRules()...),
		validation.Field(&u.FirstName, nameRules()...),
		validation.Field(&u.LastName, nameRules()...),
		validation.Field(&u.LastUpdate, validation.Required),
	)
}

// ValidateEmail checks a standalone email path parameter.
func ValidateEmail(email string) error {
	return validation.Validate(email, emailRules()...)
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(6, 50),
		validation.Match(emailCharsPattern),
		is.Email,
	}
}

func nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 40),
		validation.Match(nameCharsPattern),
		validation.By(nameSpacingRule),
	}
}

func nameSpacingRule(value any) error {
	name, _ := value.(string)
	if name != strings.TrimSpace(name) {
		return errors.New("must not start or end with a space")
	}
	if strings.Contains(name, "  ") {
		return errors.New("must not contain repeated spaces")
	}
	return nil
}

// passwordRule requires 8..120 chars with at least one lower case
// letter, one upper case letter, one digit, and one special character.
func passwordRule(value any) error {
	password, _ := value.(string)

	runes := []rune(password)
	if len(runes) < 8 || len(runes) > 120 {
		return errors.New("must be between 8 and 120 characters")
	}

	var upper, digit, special int
	for _, r := range runes {
		switch {
		case unicode.IsDigit(r):
			digit++
		case unicode.IsUpper(r):
			upper++
		case !unicode.IsLetter(r):
			special++
		}
	}
	lower := len(runes) - upper - digit - special

	switch {
	case lower < 1:
		return errors.New("must contain a lower case letter")
	case upper < 1:
		return errors.New("must contain an upper case letter")
	case digit < 1:
		return errors.New("must contain a digit")
	case special < 1:
		return errors.New("must contain a special character")
	}
	return nil
}

func permissionsRule(value any) error {
	permissions, ok := value.([]string)
	if !ok || permissions == nil {
		return errors.New("is required")
	}
	if len(permissions) > 50 {
		return errors.New("must contain at most 50 entries")
	}
	for _, p := range permissions {
		if strings.TrimSpace(p) == "" {
			return errors.New("must not contain blank entries")
		}
		if len(p) > 50 {
			return errors.New("entries must be at most 50 characters")
		}
	}
	return nil
}

func activationTokenRule(value any) error {
	token, _ := value.(string)
	if token == "" {
		return nil
	}
	if len(token) > 128 || len(token)%4 != 0 {
		return errors.New("has an incorrect size")
	}
	if _, err := base64.StdEncoding.DecodeString(token); err != nil {
		return errors.New("is not valid base64")
	}
	return nil
}
