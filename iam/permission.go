package iam

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/forbearing/surrealkv-core/catalog"
	"github.com/forbearing/surrealkv-core/types"
	"github.com/forbearing/surrealkv-core/types/consts"
)

// Authorize is the entry point operators call before touching a table: it
// enforces record-user tenancy (§4.3 "Record-user tenancy"), then resolves
// the table-level permission for action, tolerating a missing (schemaless)
// table definition per §4.3 rule 3.
func Authorize(ctx context.Context, view *catalog.View, authDisabled bool, actor types.Actor, action consts.CRUDAction, ns, db, tb string) (catalog.Resolved, error) {
	if err := catalog.CheckTenancy(actor, ns, db); err != nil {
		return catalog.Resolved{}, err
	}

	tbDef, err := view.GetTb(ctx, ns, db, tb)
	if err != nil {
		if errors.Is(err, types.ErrTbNotFound) {
			return catalog.ResolveTable(authDisabled, actor, action, ns, db, nil), nil
		}
		return catalog.Resolved{}, err
	}
	return catalog.ResolveTable(authDisabled, actor, action, ns, db, tbDef), nil
}
