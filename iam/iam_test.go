package iam

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/config"
	"github.com/forbearing/surrealkv-core/expr"
	"github.com/forbearing/surrealkv-core/kvs/memkv"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

func newTestView(t *testing.T) *catalog.View {
	t.Helper()
	store := memkv.New()
	tx, err := store.Begin(context.Background(), consts.TxWriteOptimistic)
	require.NoError(t, err)
	return catalog.NewView(tx)
}

func TestSigninRecordAccessRoundtrip(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	signinExpr := "SELECT * FROM user WHERE name = $user AND pass = $pass"
	access := catalog.AccessMethodDefinition{
		Level:           consts.LevelDatabase,
		Name:            "user",
		Type:            consts.AccessRecord,
		JwtVerify:       catalog.JwtVerify{Alg: "HS256", Key: "test-secret"},
		SigninExpr:      &signinExpr,
		DurationToken:   int64(15 * time.Minute / time.Second),
		DurationSession: int64(2 * time.Hour / time.Second),
	}
	require.NoError(t, view.PutAccess(ctx, "test", "test", access))

	rid := types.NewRecordId("user", types.StringValue("alice"))
	runExpr := func(ctx context.Context, exprSrc string, vars map[string]types.Value, ns, db string) (types.Value, error) {
		if vars["user"].Str != "alice" || vars["pass"].Str != "p" {
			return types.None(), types.ErrInvalidAuth
		}
		return types.RecordIdValue(rid), nil
	}

	deps := Deps{View: view, RunExpr: runExpr}
	session, token, _, err := Signin(ctx, deps, map[string]types.Value{
		"ns": types.StringValue("test"), "db": types.StringValue("test"), "ac": types.StringValue("user"),
		"user": types.StringValue("alice"), "pass": types.StringValue("p"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, consts.LevelRecord, session.Auth.Level)
	assert.True(t, session.IsRecord())
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), session.Exp, 10*time.Second)
}

func TestSigninWrongPasswordIsInvalidAuth(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	signinExpr := "SELECT * FROM user WHERE name = $user AND pass = $pass"
	access := catalog.AccessMethodDefinition{
		Type: consts.AccessRecord, SigninExpr: &signinExpr,
		JwtVerify: catalog.JwtVerify{Alg: "HS256", Key: "s"},
	}
	require.NoError(t, view.PutAccess(ctx, "test", "test", access))

	runExpr := func(ctx context.Context, exprSrc string, vars map[string]types.Value, ns, db string) (types.Value, error) {
		return types.None(), types.ErrInvalidAuth
	}
	deps := Deps{View: view, RunExpr: runExpr}
	_, _, _, err := Signin(ctx, deps, map[string]types.Value{
		"ns": types.StringValue("test"), "db": types.StringValue("test"), "ac": types.StringValue(""),
		"user": types.StringValue("alice"), "pass": types.StringValue("wrong"),
	})
	assert.Error(t, err)
}

func TestDbUserSigninVerifiesArgon2Hash(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	hash, err := expr.HashPassword("s3cret")
	require.NoError(t, err)

	userDef := catalog.UserDefinition{
		Level: consts.LevelDatabase, Name: "alice", Passhash: hash, Code: "per-user-secret",
		Roles:           []consts.Role{consts.RoleEditor},
		TokenDuration:   int64(15 * time.Minute / time.Second),
		SessionDuration: int64(time.Hour / time.Second),
	}
	require.NoError(t, view.PutUser(ctx, "test", "test", userDef))

	deps := Deps{View: view}
	session, token, _, err := Signin(ctx, deps, map[string]types.Value{
		"ns": types.StringValue("test"), "db": types.StringValue("test"),
		"user": types.StringValue("alice"), "pass": types.StringValue("s3cret"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, session.Auth.HasRole(consts.RoleEditor))

	_, _, _, err = Signin(ctx, deps, map[string]types.Value{
		"ns": types.StringValue("test"), "db": types.StringValue("test"),
		"user": types.StringValue("alice"), "pass": types.StringValue("wrong"),
	})
	assert.ErrorIs(t, err, types.ErrInvalidAuth)
}

func TestRootSigninTotpStepUp(t *testing.T) {
	view := newTestView(t)
	ctx := context.Background()

	hash, err := expr.HashPassword("r00t")
	require.NoError(t, err)
	secret, _, err := EnrollTotp("root")
	require.NoError(t, err)

	userDef := catalog.UserDefinition{
		Level: consts.LevelRoot, Name: "root", Passhash: hash, Code: "root-secret",
		TokenDuration: int64(15 * time.Minute / time.Second), SessionDuration: int64(time.Hour / time.Second),
		TotpSecret: secret,
	}
	require.NoError(t, view.PutUser(ctx, "", "", userDef))

	prevEnabled := config.App.Auth.TotpEnabled
	config.App.Auth.TotpEnabled = true
	t.Cleanup(func() { config.App.Auth.TotpEnabled = prevEnabled })

	deps := Deps{View: view}
	_, _, _, err = Signin(ctx, deps, map[string]types.Value{
		"user": types.StringValue("root"), "pass": types.StringValue("r00t"),
	})
	assert.ErrorIs(t, err, types.ErrTotpRequired)

	_, _, _, err = Signin(ctx, deps, map[string]types.Value{
		"user": types.StringValue("root"), "pass": types.StringValue("r00t"), "totp": types.StringValue("000000"),
	})
	assert.ErrorIs(t, err, types.ErrTotpInvalid)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	session, _, _, err := Signin(ctx, deps, map[string]types.Value{
		"user": types.StringValue("root"), "pass": types.StringValue("r00t"), "totp": types.StringValue(code),
	})
	require.NoError(t, err)
	assert.Equal(t, consts.LevelRoot, session.Auth.Level)
}

func TestAuthorizeDeniesSchemalessRecordActor(t *testing.T) {
	view := newTestView(t)
	actor := types.Actor{Level: consts.LevelRecord, Ns: "test", Db: "test"}

	resolved, err := Authorize(context.Background(), view, false, actor, consts.ActionSelect, "test", "test", "undefined_table")
	require.NoError(t, err)
	assert.True(t, resolved.Denied())
}
