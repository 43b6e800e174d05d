package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity asserted by a verified session token.
type Principal struct {
	Username  string
	TokenID   string
	Roles     []string
	ExpiresAt time.Time
}

// Parser verifies tokens produced by an Issuer with the same key, issuer
// and audience.
type Parser struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewParser(key []byte, issuer, audience string) *Parser {
	return &Parser{
		key:      append([]byte(nil), key...),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Parse checks signature, algorithm, issuer, audience and expiry. Expired
// tokens yield common.ErrTokenExpired, everything else common.ErrInvalidToken.
func (p *Parser) Parse(tokenString string) (*Principal, error) {
	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return p.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	principal := &Principal{}
	principal.Username, _ = claims[ClaimName].(string)
	principal.TokenID, _ = claims[ClaimTokenID].(string)

	switch v := claims[ClaimRole].(type) {
	case string:
		principal.Roles = []string{v}
	case []interface{}:
		for _, r := range v {
			if s, ok := r.(string); ok {
				principal.Roles = append(principal.Roles, s)
			}
		}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		principal.ExpiresAt = exp.Time
	}

	return principal, nil
}
