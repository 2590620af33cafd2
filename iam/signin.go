package iam

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/config"
	"github.com/forbearing/surrealkv-core/expr"
	"github.com/forbearing/surrealkv-core/logger"
	"github.com/forbearing/surrealkv-core/metrics"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// ExprRunner evaluates a stored SIGNIN/SIGNUP/AUTHENTICATE expression
// against the given variables and an "editor" session scoped to (ns,db),
// returning whatever Value the expression resolves to. The exec package
// supplies the concrete implementation by compiling and running the stored
// expression source; iam only needs this narrow shape, avoiding an
// iam->exec import cycle (exec already needs iam for permission checks).
type ExprRunner func(ctx context.Context, exprSrc string, vars map[string]types.Value, scopeNs, scopeDb string) (types.Value, error)

// Deps bundles the collaborators Signin/Signup need beyond the catalog view,
// grouped the way the teacher's service layer groups a handler's
// dependencies into one struct rather than threading five parameters.
type Deps struct {
	View        *catalog.View
	Jwks        *JwksCache
	Refresh     *RefreshStore
	RunExpr     ExprRunner
	AccessCache *AccessCache
}

func strVar(vars map[string]types.Value, key string) (string, bool) {
	v, ok := vars[key]
	if !ok || v.Kind != types.KindString {
		return "", false
	}
	return v.Str, true
}

// Signin implements §4.7's signin dispatch table, selecting the narrowest
// scope that binds from the presented variables.
func Signin(ctx context.Context, deps Deps, vars map[string]types.Value) (*types.Session, string, string, error) {
	session, token, refresh, err := signin(ctx, deps, vars)
	if err != nil {
		class := signinFailureClass(err)
		logger.IAM.Warnw("signin failed", "error", err, "class", class)
		if metrics.AuthFailuresTotal != nil {
			metrics.AuthFailuresTotal.WithLabelValues(class).Inc()
		}
		return session, token, refresh, err
	}
	logger.IAM.Infow("signin succeeded", "ns", session.Ns, "db", session.Db, "actor", session.Auth.ID)
	return session, token, refresh, nil
}

// signinFailureClass buckets a signin error into the label set
// metrics.AuthFailuresTotal reports under, per §7's failure-class taxonomy.
func signinFailureClass(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidAuth):
		return "invalid_credentials"
	case errors.Is(err, types.ErrNoSigninTarget):
		return "bad_request"
	case errors.Is(err, types.ErrTokenMakingFailed):
		return "token_issue_failed"
	case errors.Is(err, types.ErrUnexpectedAuth):
		return "internal"
	case errors.Is(err, types.ErrAccessMethodMismatch), errors.Is(err, types.ErrAccessRecordNoSignin), errors.Is(err, types.ErrAccessSigninQueryFailed):
		return "access_method_error"
	case errors.Is(err, types.ErrTotpRequired), errors.Is(err, types.ErrTotpInvalid):
		return "totp_failed"
	case types.IsThrown(err):
		return "thrown"
	default:
		return "other"
	}
}

func signin(ctx context.Context, deps Deps, vars map[string]types.Value) (*types.Session, string, string, error) {
	if refreshTok, ok := strVar(vars, "refresh"); ok {
		return signinViaRefresh(ctx, deps, refreshTok)
	}

	ns, hasNs := strVar(vars, "ns")
	db, hasDb := strVar(vars, "db")
	ac, hasAc := strVar(vars, "ac")
	user, hasUser := strVar(vars, "user")
	pass, hasPass := strVar(vars, "pass")

	switch {
	case hasNs && hasDb && hasAc:
		return signinAccessMethod(ctx, deps, ns, db, ac, vars)
	case hasNs && hasDb && hasUser && hasPass:
		return signinUser(ctx, deps, consts.LevelDatabase, ns, db, user, pass, vars)
	case hasNs && hasUser && hasPass:
		return signinUser(ctx, deps, consts.LevelNamespace, ns, "", user, pass, vars)
	case hasUser && hasPass:
		return signinUser(ctx, deps, consts.LevelRoot, "", "", user, pass, vars)
	default:
		return nil, "", "", types.ErrNoSigninTarget
	}
}

// requireTotp enforces §4.7's optional root step-up factor when
// config.App.Auth.TotpEnabled and the user has an enrolled secret: both
// conditions must hold, so a deployment can enroll a secret ahead of
// flipping the config switch without locking itself out mid-rollout.
func requireTotp(vars map[string]types.Value, secret string) error {
	if !config.App.Auth.TotpEnabled {
		return nil
	}
	code, ok := strVar(vars, "totp")
	if !ok || code == "" {
		return types.ErrTotpRequired
	}
	if !VerifyTotp(secret, code) {
		return types.ErrTotpInvalid
	}
	return nil
}

func signinUser(ctx context.Context, deps Deps, level consts.Level, ns, db, user, pass string, vars map[string]types.Value) (*types.Session, string, string, error) {
	levelTag := levelToLookupTag(level)
	userDef, err := deps.View.GetUser(ctx, levelTag, ns, db, user)
	if err != nil {
		return nil, "", "", types.ErrInvalidAuth
	}

	ok, err := verifyPasswordSafe(userDef.Passhash, pass)
	if err != nil || !ok {
		return nil, "", "", types.ErrInvalidAuth
	}

	if level == consts.LevelRoot && userDef.TotpSecret != "" {
		if err := requireTotp(vars, userDef.TotpSecret); err != nil {
			return nil, "", "", err
		}
	}

	actor := types.Actor{ID: "user:" + user, Level: level, Roles: userDef.Roles, Ns: ns, Db: db}
	token, err := issueUserToken(actor, time.Duration(userDef.TokenDuration)*time.Second, userDef.Code)
	if err != nil {
		return nil, "", "", types.ErrTokenMakingFailed
	}

	session := &types.Session{
		Ns: ns, Db: db, Token: token,
		Exp:  time.Now().Add(time.Duration(userDef.SessionDuration) * time.Second),
		Auth: actor,
	}
	return session, token, "", nil
}

func signinAccessMethod(ctx context.Context, deps Deps, ns, db, ac string, vars map[string]types.Value) (*types.Session, string, string, error) {
	accessDef, err := getAccess(ctx, deps, "db", ns, db, ac)
	if err != nil {
		return nil, "", "", types.ErrInvalidAuth
	}

	switch accessDef.Type {
	case consts.AccessRecord:
		return signinRecord(ctx, deps, ns, db, ac, accessDef, vars)
	case consts.AccessBearer:
		return nil, "", "", errors.Wrap(types.ErrAccessMethodMismatch, "bearer access requires a grant, not signin variables")
	default:
		return nil, "", "", types.ErrAccessMethodMismatch
	}
}

func signinRecord(ctx context.Context, deps Deps, ns, db, ac string, accessDef *catalog.AccessMethodDefinition, vars map[string]types.Value) (*types.Session, string, string, error) {
	if accessDef.SigninExpr == nil {
		return nil, "", "", types.ErrAccessRecordNoSignin
	}

	result, err := deps.RunExpr(ctx, *accessDef.SigninExpr, vars, ns, db)
	if err != nil {
		if types.IsThrown(err) {
			return nil, "", "", err
		}
		if errors.Is(err, types.ErrTxRetryable) {
			return nil, "", "", types.ErrUnexpectedAuth
		}
		return nil, "", "", types.ErrAccessSigninQueryFailed
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

func signinViaRefresh(ctx context.Context, deps Deps, refreshTok string) (*types.Session, string, string, error) {
	ns, db, ac, recordID, err := deps.Refresh.Redeem(ctx, refreshTok)
	if err != nil {
		return nil, "", "", err
	}

	accessDef, err := getAccess(ctx, deps, "db", ns, db, ac)
	if err != nil {
		return nil, "", "", types.ErrInvalidAuth
	}

	rid := types.NewRecordId(recordTable(recordID), types.StringValue(recordKeyOf(recordID)))
	actor := types.Actor{ID: recordID, Level: consts.LevelRecord, Ns: ns, Db: db, RecordID: rid}

	token, err := IssueToken(actor, ns, db, ac, selectIssuer(accessDef), time.Duration(accessDef.DurationToken)*time.Second)
	if err != nil {
		return nil, "", "", types.ErrTokenMakingFailed
	}

	var newRefresh string
	if accessDef.WithRefresh && accessDef.DurationGrant != nil {
		newRefresh, err = deps.Refresh.Issue(ctx, ns, db, ac, recordID, time.Duration(*accessDef.DurationGrant)*time.Second)
		if err != nil {
			return nil, "", "", types.ErrUnexpectedAuth
		}
	}

	session := &types.Session{
		Ns: ns, Db: db, Ac: ac, Token: token, RecordID: rid,
		Exp:  time.Now().Add(time.Duration(accessDef.DurationSession) * time.Second),
		Auth: actor,
	}
	return session, token, newRefresh, nil
}

func requireRecordId(v types.Value) (*types.RecordId, error) {
	if v.Kind != types.KindRecordId || v.RecordId == nil {
		return nil, types.ErrInvalidAuth
	}
	return v.RecordId, nil
}

func selectIssuer(accessDef *catalog.AccessMethodDefinition) *catalog.JwtVerify {
	if accessDef.JwtIssue != nil {
		return accessDef.JwtIssue
	}
	return &accessDef.JwtVerify
}

func levelToLookupTag(level consts.Level) string {
	switch level {
	case consts.LevelRoot:
		return "root"
	case consts.LevelNamespace:
		return "ns"
	default:
		return "db"
	}
}

func verifyPasswordSafe(hash, pass string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	return expr.VerifyPassword(hash, pass)
}

// recordTable/recordKeyOf split a "table:key" record id string, the format
// Actor.ID/RecordId.String() produce, so a redeemed refresh token's stored
// subject can be turned back into a RecordId without re-querying the row.
func recordTable(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return id
}

func recordKeyOf(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[i+1:]
		}
	}
	return ""
}

// issueUserToken signs a token for a non-record user with their own secret
// Code, per §4.7 "sign with ... the user's secret code for user-issued
// tokens" — distinct from IssueToken's access-method-keyed signing path.
func issueUserToken(actor types.Actor, tokenDuration time.Duration, code string) (string, error) {
	return IssueToken(actor, actor.Ns, actor.Db, "", &catalog.JwtVerify{Alg: "HS256", Key: code}, tokenDuration)
}
