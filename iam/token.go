// Package iam implements C3 (permission resolution glue) and C7
// (authentication & sessions): password hashing is delegated to expr's
// argon2 functions, JWT issuance/verification follows the teacher's
// authn/jwt package shape (forbearing-gst/authn/jwt/jwt.go) generalized from
// one fixed HS256 secret to the per-access-method Key(alg,key)/Jwks(url)
// signer §3 AccessMethodDefinition.JwtVerify/JwtIssue describe.
package iam

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// nowFunc is the clock iam reads from; overridden in tests and can be wired
// to the fake clock the live package uses for bootstrap/heartbeat tests.
var nowFunc = time.Now

// Claims is the token payload synthesized on successful signin, per §4.7
// "Token issuance": {iss, iat, nbf, exp, jti, ns?, db?, ac?, id?, roles?}.
type Claims struct {
	Ns    string   `json:"ns,omitempty"`
	Db    string   `json:"db,omitempty"`
	Ac    string   `json:"ac,omitempty"`
	ID    string   `json:"id,omitempty"`
	Roles []string `json:"roles,omitempty"`

	jwt.RegisteredClaims
}

// signingMethod resolves a JwtVerify.Alg string to the concrete
// golang-jwt SigningMethod, covering the algorithm families §4.7 names:
// HS256/384/512, RS*, PS*, ES*, EdDSA.
func signingMethod(alg string) (jwt.SigningMethod, error) {
	if m := jwt.GetSigningMethod(alg); m != nil {
		return m, nil
	}
	return nil, errors.Wrapf(types.ErrInvalidAuth, "unsupported signing algorithm %q", alg)
}

// signingKey parses the configured key material for alg into the type
// golang-jwt expects for that family (raw secret for HS*, parsed PEM for
// RS*/PS*/ES*/EdDSA).
func signingKey(alg, key string) (any, error) {
	switch {
	case isHMAC(alg):
		return []byte(key), nil
	case isRSA(alg):
		return jwt.ParseRSAPrivateKeyFromPEM([]byte(key))
	case isECDSA(alg):
		return jwt.ParseECPrivateKeyFromPEM([]byte(key))
	case alg == "EdDSA":
		return jwt.ParseEdPrivateKeyFromPEM([]byte(key))
	default:
		return nil, errors.Wrapf(types.ErrInvalidAuth, "unsupported signing algorithm %q", alg)
	}
}

// verifyKey mirrors signingKey but for the public/verification side.
func verifyKey(alg, key string) (any, error) {
	switch {
	case isHMAC(alg):
		return []byte(key), nil
	case isRSA(alg):
		return jwt.ParseRSAPublicKeyFromPEM([]byte(key))
	case isECDSA(alg):
		return jwt.ParseECPublicKeyFromPEM([]byte(key))
	case alg == "EdDSA":
		return jwt.ParseEdPublicKeyFromPEM([]byte(key))
	default:
		return nil, errors.Wrapf(types.ErrInvalidAuth, "unsupported signing algorithm %q", alg)
	}
}

func isHMAC(alg string) bool  { return alg == "HS256" || alg == "HS384" || alg == "HS512" }
func isRSA(alg string) bool {
	switch alg {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		return true
	}
	return false
}
func isECDSA(alg string) bool {
	switch alg {
	case "ES256", "ES384", "ES512":
		return true
	}
	return false
}

// IssueToken signs a Claims object for a successfully authenticated session,
// using issuer's JwtIssue config if set (WITH ISSUER KEY), otherwise
// JwtVerify — the same key signs and verifies for HMAC-only deployments.
func IssueToken(actor types.Actor, ns, db, ac string, issuer *catalog.JwtVerify, tokenDuration time.Duration) (string, error) {
	if issuer == nil {
		return "", errors.Wrap(types.ErrTokenMakingFailed, "no issuer key configured")
	}
	method, err := signingMethod(issuer.Alg)
	if err != nil {
		return "", err
	}
	key, err := signingKey(issuer.Alg, issuer.Key)
	if err != nil {
		return "", errors.Wrap(types.ErrTokenMakingFailed, err.Error())
	}

	now := time.Now()
	roles := make([]string, len(actor.Roles))
	for i, r := range actor.Roles {
		roles[i] = r.String()
	}
	claims := Claims{
		Ns:    ns,
		Db:    db,
		Ac:    ac,
		ID:    actor.ID,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    consts.FrameworkName,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(types.ErrTokenMakingFailed, err.Error())
	}
	return token, nil
}

// PeekClaims parses claims without verifying the signature, the first step
// of §4.7's "Token-based session binding" decoding order.
func PeekClaims(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := new(Claims)
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, errors.Wrap(types.ErrInvalidAuth, "malformed token")
	}
	return claims, nil
}

// VerifyToken runs full signature + nbf/exp verification against the
// resolved verifier key. Expired signatures surface as ErrExpiredToken;
// every other failure collapses to ErrInvalidAuth per §7's propagation
// policy ("hides all non-expiration verification failures"). When verify
// names a JWKS URL, verification goes through jwks instead of a static key.
func VerifyToken(ctx context.Context, tokenStr string, verify *catalog.JwtVerify, jwks *JwksCache) (*Claims, error) {
	if verify.JwksURL != "" {
		return jwks.VerifyTokenViaJwks(ctx, verify.JwksURL, tokenStr)
	}

	keyFunc := func(t *jwt.Token) (any, error) {
		alg, _ := t.Header["alg"].(string)
		return verifyKey(alg, verify.Key)
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.ErrExpiredToken
		}
		return nil, types.ErrInvalidAuth
	}
	return claims, nil
}
