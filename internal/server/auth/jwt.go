// Package auth issues and verifies HS256 session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim types embedded in session tokens.
const (
	ClaimName    = "unique_name"
	ClaimTokenID = "jti"
	ClaimRole    = "role"
)

// ErrReservedClaim is returned when a caller tries to set a claim the issuer owns.
var ErrReservedClaim = errors.New("claim type is reserved")

var reserved = map[string]struct{}{"iss": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}}

// Claim is a single typed attribute. Order matters for repeated types.
type Claim struct {
	Type  string
	Value string
}

// SessionToken is an issued token and the instant it stops being valid.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer signs claim sets. Its key, issuer and audience never change after
// construction.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	validity time.Duration
	now      func() time.Time
}

func NewIssuer(key []byte, issuer, audience string, validity time.Duration) *Issuer {
	return &Issuer{
		key:      append([]byte(nil), key...),
		issuer:   issuer,
		audience: audience,
		validity: validity,
		now:      time.Now,
	}
}

// Issue embeds claims verbatim and adds iss, aud, iat, nbf and
// exp = issuance time + validity. A claim type that occurs more than once
// becomes a JSON array in the order given.
func (i *Issuer) Issue(claims []Claim) (*SessionToken, error) {
	now := i.now().UTC().Truncate(time.Second)
	expires := now.Add(i.validity)

	mc := jwt.MapClaims{}
	for _, c := range claims {
		if _, ok := reserved[c.Type]; ok {
			return nil, fmt.Errorf("%w: %s", ErrReservedClaim, c.Type)
		}
		switch v := mc[c.Type].(type) {
		case nil:
			mc[c.Type] = c.Value
		case string:
			mc[c.Type] = []string{v, c.Value}
		case []string:
			mc[c.Type] = append(v, c.Value)
		}
	}

	mc["iss"] = i.issuer
	mc["aud"] = i.audience
	mc["iat"] = jwt.NewNumericDate(now)
	mc["nbf"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(expires)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(i.key)
	if err != nil {
		return nil, err
	}

	return &SessionToken{Token: signed, ExpiresAt: expires}, nil
}
