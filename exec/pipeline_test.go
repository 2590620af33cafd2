package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
)

func computedField(name string, deps ...string) catalog.FieldDefinition {
	expr := name + "_expr"
	return catalog.FieldDefinition{Name: name, Computed: &expr, ComputedDeps: deps}
}

func TestTopoOrderPlacesDepsBeforeDependents(t *testing.T) {
	fields := []catalog.FieldDefinition{
		computedField("total", "subtotal", "tax"),
		computedField("subtotal"),
		computedField("tax", "subtotal"),
	}
	order, err := topoOrder(fields)
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, fd := range order {
		pos[fd.Name] = i
	}
	assert.Less(t, pos["subtotal"], pos["tax"])
	assert.Less(t, pos["tax"], pos["total"])
}

func TestTopoOrderDetectsCycle(t *testing.T) {
	fields := []catalog.FieldDefinition{
		computedField("a", "b"),
		computedField("b", "a"),
	}
	_, err := topoOrder(fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInternal)
}
