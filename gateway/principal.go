package gateway

import (
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"errors"
	"strings"
)

// Principal is what an authenticated gateway session holds: the bearer
// token and the subject extracted from its payload. The session owns the
// token exclusively for its lifetime; it is relayed downstream and never
// returned to the browser.
type Principal struct {
	Token   string
	Subject string
}

func init() {
	// sessions serialize their values with gob
	gob.Register(Principal{})
}

// NewPrincipal extracts the subject from the token payload. This is
// extraction, not verification: the backend issued the token over a
// trusted channel moments ago, and it alone can check the signature.
func NewPrincipal(token string) (*Principal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("token cannot be blank")
	}

	payload, err := payloadSegment(token)
	if err != nil {
		return nil, err
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("token payload is not valid base64url")
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, errors.New("token payload is not valid JSON")
	}
	if strings.TrimSpace(claims.Sub) == "" {
		return nil, errors.New("token subject is missing or blank")
	}

	return &Principal{Token: token, Subject: claims.Sub}, nil
}

func payloadSegment(token string) (string, error) {
	first := strings.IndexByte(token, '.')
	if first < 0 {
		return "", errors.New("token has no payload segment")
	}
	rest := token[first+1:]
	second := strings.IndexByte(rest, '.')
	if second < 0 {
		return "", errors.New("token has no signature segment")
	}
	return rest[:second], nil
}
