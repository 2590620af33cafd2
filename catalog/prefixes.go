package catalog

// Exported cascade-delete prefixes, consumed by the ddl package (C8) via
// View.ClrChildren per §4.8 step 6. Each wraps the corresponding unexported
// key builder so ddl never needs to duplicate catalog's key encoding.

func NamespacePrefix(ns string) string        { return nsKey(ns) }
func DatabasePrefix(ns, db string) string     { return dbKey(ns, db) }
func TablePrefix(ns, db, tb string) string    { return tbKey(ns, db, tb) }

// IndexEntriesPrefix is the key-range prefix covering every stored entry of
// one index, distinct from the index's own definition key.
func IndexEntriesPrefix(ns, db, tb, ix string) string { return indexPrefix(ns, db, tb, ix) }
