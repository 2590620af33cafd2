package iam

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Signup implements the signup half of §4.7: the vars must resolve (ns,db,ac)
// to a record access method whose SIGNUP expression runs once, producing the
// new record, which is then authenticated exactly like a signin.
func Signup(ctx context.Context, deps Deps, vars map[string]types.Value) (*types.Session, string, string, error) {
	ns, hasNs := strVar(vars, "ns")
	db, hasDb := strVar(vars, "db")
	ac, hasAc := strVar(vars, "ac")
	if !hasNs || !hasDb || !hasAc {
		return nil, "", "", types.ErrNoSigninTarget
	}

	accessDef, err := getAccess(ctx, deps, "db", ns, db, ac)
	if err != nil {
		return nil, "", "", types.ErrInvalidAuth
	}
	if accessDef.Type != consts.AccessRecord {
		return nil, "", "", errors.Wrap(types.ErrAccessMethodMismatch, "signup requires a RECORD access method")
	}
	if accessDef.SignupExpr == nil {
		return nil, "", "", types.ErrAccessRecordNoSignup
	}

	result, err := deps.RunExpr(ctx, *accessDef.SignupExpr, vars, ns, db)
	if err != nil {
		if types.IsThrown(err) {
			return nil, "", "", err
		}
		if errors.Is(err, types.ErrTxRetryable) {
			return nil, "", "", types.ErrUnexpectedAuth
		}
		return nil, "", "", types.ErrAccessSignupQueryFailed
	}
	rid, err := requireRecordId(result)
	if err != nil {
		return nil, "", "", err
	}

	if accessDef.AuthenticateExpr != nil {
		authResult, err := deps.RunExpr(ctx, *accessDef.AuthenticateExpr, vars, ns, db)
		if err != nil {
			if types.IsThrown(err) {
				return nil, "", "", err
			}
			return nil, "", "", types.ErrInvalidAuth
		}
		if rid, err = requireRecordId(authResult); err != nil {
			return nil, "", "", err
		}
	}

	actor := types.Actor{ID: rid.String(), Level: consts.LevelRecord, Ns: ns, Db: db, RecordID: rid}
	token, err := IssueToken(actor, ns, db, ac, selectIssuer(accessDef), time.Duration(accessDef.DurationToken)*time.Second)
	if err != nil {
		return nil, "", "", types.ErrTokenMakingFailed
	}

	var refreshTok string
	if accessDef.WithRefresh && accessDef.DurationGrant != nil {
		refreshTok, err = deps.Refresh.Issue(ctx, ns, db, ac, rid.String(), time.Duration(*accessDef.DurationGrant)*time.Second)
		if err != nil {
			return nil, "", "", types.ErrUnexpectedAuth
		}
	}

	session := &types.Session{
		Ns: ns, Db: db, Ac: ac, Token: token, RecordID: rid,
		Exp:  time.Now().Add(time.Duration(accessDef.DurationSession) * time.Second),
		Auth: actor,
	}
	return session, token, refreshTok, nil
}
