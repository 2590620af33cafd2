package catalog

import (
	"fmt"

	"github.com/stoewer/go-strcase"
)

// Key encoding for §6.5's "persisted catalog layout":
//   root → namespace → database → table → {field|index|event|lq|access|user|…}
// Entity names are snake-cased the same way the teacher converts model field
// names to column names (forbearing-gst/database/database.go structFieldToMap),
// giving catalog keys a stable, case-insensitive-friendly encoding.

func nsKey(ns string) string {
	return fmt.Sprintf("/ns/%s", strcase.SnakeCase(ns))
}

func dbKey(ns, db string) string {
	return fmt.Sprintf("%s/db/%s", nsKey(ns), strcase.SnakeCase(db))
}

func tbKey(ns, db, tb string) string {
	return fmt.Sprintf("%s/tb/%s", dbKey(ns, db), strcase.SnakeCase(tb))
}

func fdKey(ns, db, tb, fd string) string {
	return fmt.Sprintf("%s/fd/%s", tbKey(ns, db, tb), fd)
}

func ixKey(ns, db, tb, ix string) string {
	return fmt.Sprintf("%s/ix/%s", tbKey(ns, db, tb), strcase.SnakeCase(ix))
}

func evKey(ns, db, tb, ev string) string {
	return fmt.Sprintf("%s/ev/%s", tbKey(ns, db, tb), strcase.SnakeCase(ev))
}

func accessKeyRoot(name string) string { return fmt.Sprintf("/ac/%s", strcase.SnakeCase(name)) }
func accessKeyNs(ns, name string) string {
	return fmt.Sprintf("%s/ac/%s", nsKey(ns), strcase.SnakeCase(name))
}
func accessKeyDb(ns, db, name string) string {
	return fmt.Sprintf("%s/ac/%s", dbKey(ns, db), strcase.SnakeCase(name))
}

// accessGenKey{Root,Ns,Db} address a single counter per scope, bumped every
// time any access method in that scope is redefined. It lets a caller decide
// whether a previously fetched AccessMethodDefinition is still current
// without re-fetching and re-decoding it (§3.3 supplement), the same
// coarse-but-cheap version-stamp trick TableDefinition.CacheFieldsTs already
// plays for fields/indexes/events, just scoped to "every access method under
// ns/db" rather than one table.
func accessGenKeyRoot() string        { return "/ac_gen" }
func accessGenKeyNs(ns string) string { return fmt.Sprintf("%s/ac_gen", nsKey(ns)) }
func accessGenKeyDb(ns, db string) string {
	return fmt.Sprintf("%s/ac_gen", dbKey(ns, db))
}

func userKeyRoot(name string) string { return fmt.Sprintf("/user/%s", strcase.SnakeCase(name)) }
func userKeyNs(ns, name string) string {
	return fmt.Sprintf("%s/user/%s", nsKey(ns), strcase.SnakeCase(name))
}
func userKeyDb(ns, db, name string) string {
	return fmt.Sprintf("%s/user/%s", dbKey(ns, db), strcase.SnakeCase(name))
}

func paramKey(ns, db, name string) string {
	return fmt.Sprintf("%s/pa/%s", dbKey(ns, db), strcase.SnakeCase(name))
}

func analyzerKey(ns, db, name string) string {
	return fmt.Sprintf("%s/az/%s", dbKey(ns, db), strcase.SnakeCase(name))
}

func lqNodeKey(node, lqID string) string { return fmt.Sprintf("/nd/%s/lq/%s", node, lqID) }
func lqNodePrefix(node string) string    { return fmt.Sprintf("/nd/%s/lq/", node) }
func lqTableKey(ns, db, tb, lqID string) string {
	return fmt.Sprintf("%s/lq/%s", tbKey(ns, db, tb), lqID)
}
func lqTablePrefix(ns, db, tb string) string { return fmt.Sprintf("%s/lq/", tbKey(ns, db, tb)) }

func heartbeatKey(node string) string { return fmt.Sprintf("/hb/%s", node) }
func heartbeatPrefix() string         { return "/hb/" }
func nodeKey(node string) string      { return fmt.Sprintf("/nd/%s", node) }
func nodePrefix() string              { return "/nd/" }

// recordPrefix is the key-range prefix for every record in a table, per
// §4.6.1's "key-range stream prefix(table) .. suffix(table)".
func recordPrefix(ns, db, tb string) string {
	return fmt.Sprintf("%s/*", tbKey(ns, db, tb))
}

func recordKey(ns, db, tb, keyEncoded string) string {
	return fmt.Sprintf("%s/*/%s", tbKey(ns, db, tb), keyEncoded)
}
