package expr

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/types"
)

func newTestContext(current *types.Value) *EvalContext {
	return &EvalContext{
		Ctx:       context.Background(),
		Current:   current,
		Functions: DefaultFunctions(),
	}
}

func TestIdiomResolvesNestedField(t *testing.T) {
	row := types.ObjectValue(map[string]types.Value{
		"address": types.ObjectValue(map[string]types.Value{
			"city": types.StringValue("nyc"),
		}),
	})
	ec := newTestContext(&row)

	got, err := NewIdiom("address.city").Evaluate(ec)
	require.NoError(t, err)
	assert.Equal(t, "nyc", got.Str)
}

func TestIdiomMissingFieldIsNone(t *testing.T) {
	row := types.ObjectValue(map[string]types.Value{})
	ec := newTestContext(&row)

	got, err := NewIdiom("missing").Evaluate(ec)
	require.NoError(t, err)
	assert.Equal(t, types.KindNone, got.Kind)
}

func TestBinaryEqualityAndShortCircuit(t *testing.T) {
	ec := newTestContext(nil)

	eq := NewBinary(OpEq, NewLiteral(types.IntValue(1)), NewLiteral(types.IntValue(1)))
	got, err := eq.Evaluate(ec)
	require.NoError(t, err)
	assert.True(t, got.IsTruthy())

	and := NewBinary(OpAnd, NewLiteral(types.BoolValue(false)), NewLiteral(types.IntValue(1)))
	got, err = and.Evaluate(ec)
	require.NoError(t, err)
	assert.False(t, got.IsTruthy())
}

func TestConditionalPermissionEvaluatesAgainstCandidate(t *testing.T) {
	row := types.ObjectValue(map[string]types.Value{"owner": types.StringValue("alice")})
	ec := newTestContext(&row)
	ec.PermissionsDisabled = true

	cond := NewBinary(OpEq, NewIdiom("owner"), NewLiteral(types.StringValue("alice")))
	got, err := cond.Evaluate(ec)
	require.NoError(t, err)
	assert.True(t, got.IsTruthy())
}

func TestArgon2GenerateAndCompareRoundtrip(t *testing.T) {
	ec := newTestContext(nil)

	hashed, err := ec.Functions["argon2::generate"](ec, []types.Value{types.StringValue("hunter2")})
	require.NoError(t, err)

	ok, err := ec.Functions["argon2::compare"](ec, []types.Value{hashed, types.StringValue("hunter2")})
	require.NoError(t, err)
	assert.True(t, ok.Bool)

	ok, err = ec.Functions["argon2::compare"](ec, []types.Value{hashed, types.StringValue("wrong")})
	require.NoError(t, err)
	assert.False(t, ok.Bool)
}

func TestMathMinMaxOfEmptyArrayIsInfinite(t *testing.T) {
	ec := newTestContext(nil)

	min, err := ec.Functions["math::min"](ec, []types.Value{types.ArrayValue(nil)})
	require.NoError(t, err)
	assert.True(t, math.IsInf(min.Float, 1))

	max, err := ec.Functions["math::max"](ec, []types.Value{types.ArrayValue(nil)})
	require.NoError(t, err)
	assert.True(t, math.IsInf(max.Float, -1))
}
