package iam

import (
	"context"
	"time"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// AuthenticateToken implements §4.7's "Token-based session binding": peek
// claims unverified, reject on nbf/exp, dispatch on which of {id,ac,ns,db}
// are present to pick the verification path, then populate a Session.
func AuthenticateToken(ctx context.Context, deps Deps, tokenStr string) (*types.Session, error) {
	peeked, err := PeekClaims(tokenStr)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if peeked.ExpiresAt != nil && peeked.ExpiresAt.Before(now) {
		return nil, types.ErrExpiredToken
	}
	if peeked.NotBefore != nil && peeked.NotBefore.After(now) {
		return nil, types.ErrInvalidAuth
	}

	switch {
	case peeked.ID != "" && peeked.Ac != "":
		return authenticateRecordAccess(ctx, deps, tokenStr, peeked)
	case peeked.Ac != "" && peeked.Db != "":
		return authenticateDbAccess(ctx, deps, tokenStr, peeked)
	case peeked.Db != "" && peeked.ID != "":
		return authenticateDbUser(ctx, deps, tokenStr, peeked)
	case peeked.Ac != "" && peeked.Ns != "":
		return authenticateNsAccess(ctx, deps, tokenStr, peeked)
	case peeked.Ns != "" && peeked.ID != "":
		return authenticateNsUser(ctx, deps, tokenStr, peeked)
	case peeked.Ac != "":
		return authenticateRootAccess(ctx, deps, tokenStr, peeked)
	case peeked.ID != "":
		return authenticateRootUser(ctx, deps, tokenStr, peeked)
	default:
		return nil, types.ErrMissingTokenClaim
	}
}

func authenticateRecordAccess(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	accessDef, err := getAccess(ctx, deps, "db", peeked.Ns, peeked.Db, peeked.Ac)
	if err != nil {
		return nil, types.ErrInvalidAuth
	}
	verified, err := VerifyToken(ctx, tokenStr, &accessDef.JwtVerify, deps.Jwks)
	if err != nil {
		return nil, err
	}
	if verified.Ac != peeked.Ac || verified.Ns != peeked.Ns || verified.Db != peeked.Db {
		return nil, types.ErrInvalidAuth
	}

	rid := types.NewRecordId(recordTable(verified.ID), types.StringValue(recordKeyOf(verified.ID)))
	if accessDef.AuthenticateExpr != nil {
		vars := map[string]types.Value{"id": types.StringValue(verified.ID)}
		authResult, err := runAuthenticate(ctx, deps, accessDef, vars, verified.Ns, verified.Db)
		if err != nil {
			return nil, err
		}
		if rid, err = requireRecordId(authResult); err != nil {
			return nil, err
		}
	}
	actor := types.Actor{ID: verified.ID, Level: consts.LevelRecord, Ns: verified.Ns, Db: verified.Db, RecordID: rid}
	return sessionFromVerified(verified, actor, rid, time.Duration(accessDef.DurationSession)*time.Second, tokenStr), nil
}

func authenticateDbAccess(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	accessDef, err := getAccess(ctx, deps, "db", peeked.Ns, peeked.Db, peeked.Ac)
	if err != nil {
		return nil, types.ErrInvalidAuth
	}
	verified, err := VerifyToken(ctx, tokenStr, &accessDef.JwtVerify, deps.Jwks)
	if err != nil {
		return nil, err
	}
	if accessDef.AuthenticateExpr != nil {
		vars := map[string]types.Value{"ac": types.StringValue(verified.Ac)}
		if _, err := runAuthenticate(ctx, deps, accessDef, vars, verified.Ns, verified.Db); err != nil {
			return nil, err
		}
	}
	actor := types.Actor{ID: "ac:" + verified.Ac, Level: consts.LevelDatabase, Ns: verified.Ns, Db: verified.Db}
	return sessionFromVerified(verified, actor, nil, time.Duration(accessDef.DurationSession)*time.Second, tokenStr), nil
}

func authenticateNsAccess(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	accessDef, err := getAccess(ctx, deps, "ns", peeked.Ns, "", peeked.Ac)
	if err != nil {
		return nil, types.ErrInvalidAuth
	}
	verified, err := VerifyToken(ctx, tokenStr, &accessDef.JwtVerify, deps.Jwks)
	if err != nil {
		return nil, err
	}
	if accessDef.AuthenticateExpr != nil {
		vars := map[string]types.Value{"ac": types.StringValue(verified.Ac)}
		if _, err := runAuthenticate(ctx, deps, accessDef, vars, verified.Ns, ""); err != nil {
			return nil, err
		}
	}
	actor := types.Actor{ID: "ac:" + verified.Ac, Level: consts.LevelNamespace, Ns: verified.Ns}
	return sessionFromVerified(verified, actor, nil, time.Duration(accessDef.DurationSession)*time.Second, tokenStr), nil
}

func authenticateRootAccess(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	accessDef, err := getAccess(ctx, deps, "root", "", "", peeked.Ac)
	if err != nil {
		return nil, types.ErrInvalidAuth
	}
	verified, err := VerifyToken(ctx, tokenStr, &accessDef.JwtVerify, deps.Jwks)
	if err != nil {
		return nil, err
	}
	if accessDef.AuthenticateExpr != nil {
		vars := map[string]types.Value{"ac": types.StringValue(verified.Ac)}
		if _, err := runAuthenticate(ctx, deps, accessDef, vars, "", ""); err != nil {
			return nil, err
		}
	}
	actor := types.Actor{ID: "ac:" + verified.Ac, Level: consts.LevelRoot}
	return sessionFromVerified(verified, actor, nil, time.Duration(accessDef.DurationSession)*time.Second, tokenStr), nil
}

// runAuthenticate runs an access method's optional AUTHENTICATE clause
// during token-based re-auth, the same gate Signin/Signup apply when a
// session is first created (§4.7: "run the optional AUTHENTICATE clause").
// A thrown error propagates; anything else collapses to ErrInvalidAuth so a
// failing AUTHENTICATE clause denies re-auth the same way it denies signin.
func runAuthenticate(ctx context.Context, deps Deps, accessDef *catalog.AccessMethodDefinition, vars map[string]types.Value, ns, db string) (types.Value, error) {
	result, err := deps.RunExpr(ctx, *accessDef.AuthenticateExpr, vars, ns, db)
	if err != nil {
		if types.IsThrown(err) {
			return types.None(), err
		}
		return types.None(), types.ErrInvalidAuth
	}
	return result, nil
}

func authenticateDbUser(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	return authenticateUser(ctx, deps, tokenStr, peeked, "db", consts.LevelDatabase, peeked.Ns, peeked.Db)
}

func authenticateNsUser(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	return authenticateUser(ctx, deps, tokenStr, peeked, "ns", consts.LevelNamespace, peeked.Ns, "")
}

func authenticateRootUser(ctx context.Context, deps Deps, tokenStr string, peeked *Claims) (*types.Session, error) {
	return authenticateUser(ctx, deps, tokenStr, peeked, "root", consts.LevelRoot, "", "")
}

// authenticateUser handles the three user-token branches (root/ns/db).
func authenticateUser(ctx context.Context, deps Deps, tokenStr string, peeked *Claims, lookupTag string, level consts.Level, ns, db string) (*types.Session, error) {
	userDef, err := deps.View.GetUser(ctx, lookupTag, ns, db, peeked.ID)
	if err != nil {
		return nil, types.ErrInvalidAuth
	}
	verified, err := VerifyToken(ctx, tokenStr, &catalog.JwtVerify{Alg: "HS256", Key: userDef.Code}, deps.Jwks)
	if err != nil {
		return nil, err
	}
	actor := types.Actor{ID: "user:" + peeked.ID, Level: level, Roles: userDef.Roles, Ns: ns, Db: db}
	return sessionFromVerified(verified, actor, nil, time.Duration(userDef.SessionDuration)*time.Second, tokenStr), nil
}

func sessionFromVerified(verified *Claims, actor types.Actor, rid *types.RecordId, sessionDuration time.Duration, tokenStr string) *types.Session {
	return &types.Session{
		Ns: verified.Ns, Db: verified.Db, Ac: verified.Ac, Token: tokenStr,
		RecordID: rid,
		Exp:      time.Now().Add(sessionDuration),
		Auth:     actor,
	}
}
