// Package catalog holds the typed schema definitions of §3 (NamespaceId,
// DatabaseId, TableId and the catalog entity table) plus the typed lookups
// over a kvs.Transaction described in §4.2. Structurally this mirrors the
// teacher's generics-constrained Database[M] accessor pattern
// (forbearing-gst/types/interface.go Database[M Model]), but the "model" here
// is a fixed catalog entity rather than an arbitrary user struct, and the
// backing store is kvs.Transaction rather than *gorm.DB.
package catalog

import "github.com/forbearing/surrealkv-core/types/consts"

// NamespaceId, DatabaseId, TableId are opaque numeric surrogates allocated
// monotonically per §3 "Identifiers and ownership".
type (
	NamespaceId uint64
	DatabaseId  uint64
	TableId     uint64
)

// NamespaceDefinition — name unique in root.
type NamespaceDefinition struct {
	ID      NamespaceId
	Name    string
	Comment string
}

// DatabaseDefinition — (ns_id,name) unique.
type DatabaseDefinition struct {
	NamespaceID NamespaceId
	ID          DatabaseId
	Name        string
	Changefeed  *string
	Strict      bool
}

// TableKind tags Normal/Relation/Any table kinds.
type TableKind int

const (
	TableNormal TableKind = iota
	TableRelation
	TableAny
)

// RelationSpec names the in/out table constraint for TableKind == TableRelation.
type RelationSpec struct {
	In  string
	Out string
}

// TablePermissions is the table-level CRUD permission set.
type TablePermissions struct {
	Create Permission
	Select Permission
	Update Permission
	Delete Permission
}

// Get returns the permission configured for action.
func (p TablePermissions) Get(action consts.CRUDAction) Permission {
	switch action {
	case consts.ActionCreate:
		return p.Create
	case consts.ActionUpdate:
		return p.Update
	case consts.ActionDelete:
		return p.Delete
	default:
		return p.Select
	}
}

// TableDefinition carries the four cache-version stamps that invalidate
// cached projections of fields/indexes/events/views (§3 invariant: "cache
// timestamps strictly monotonic per table").
type TableDefinition struct {
	NamespaceID NamespaceId
	DatabaseID  DatabaseId
	ID          TableId
	Name        string

	Permissions TablePermissions
	SchemaFull  bool
	Kind        TableKind
	Relation    *RelationSpec
	View        *ViewSpec
	Changefeed  *string

	CacheFieldsTs  uint64
	CacheEventsTs  uint64
	CacheIndexesTs uint64
	CacheTablesTs  uint64
}

// ViewSpec is a projection pipeline definition; view tables are written via
// this pipeline only (§3 TableDefinition invariant).
type ViewSpec struct {
	Expr  string // serialized SELECT expression that defines the projection
	What  []string
	Cond  string
	Group []string
}

// DefaultValueKind tags how a field's default behaves.
type DefaultValueKind int

const (
	DefaultNone DefaultValueKind = iota
	DefaultSet
	DefaultAlways
)

// FieldDefinition. computed fields form a DAG over ComputedDeps; permission
// None ⇒ field elided on read (§3).
type FieldDefinition struct {
	Table string
	Name  string // idiom, e.g. "address.city"

	Kind     *string
	Flex     bool
	Value    *string // PhysicalExpr serialized form for VALUE clause
	Computed *string // PhysicalExpr serialized form for computed fields

	// ComputedDeps is authoritative when present; when absent (legacy
	// definitions) callers must extract deps by walking Computed (§9).
	ComputedDeps []string

	Assert   *string
	Default  DefaultValueKind
	ReadOnly bool

	Reference *string // FK-ish pointer to another table

	SelectPermission Permission
	UpdatePermission Permission
	CreatePermission Permission
	DeletePermission Permission
}

// IndexVariant tags the physical index flavor, per §3.
type IndexVariant struct {
	Kind       consts.IndexKind
	FullText   *FullTextParams
	Hnsw       *HnswParams
}

type FullTextParams struct {
	AnalyzerName string
	Highlight    bool
}

type HnswParams struct {
	VectorType string // e.g. "F32"
	Dimension  int
	Distance   string // "euclidean" | "cosine" | "manhattan" | "minkowski"
	M          int
	EfConstruction int
}

type IndexDefinition struct {
	Table         string
	Name          string
	Columns       []string
	Variant       IndexVariant
	Concurrently  bool
}

func (i IndexDefinition) Unique() bool { return i.Variant.Kind == consts.IndexKindUniq }

type EventDefinition struct {
	Table string
	Name  string
	When  string   // serialized PhysicalExpr condition
	Then  []string // serialized PhysicalExpr actions, fired in order
}

// JwtVerify is Key(alg,key) | Jwks(url), per §3 AccessMethodDefinition.
type JwtVerify struct {
	Alg      string
	Key      string // PEM or HS secret; empty when JwksURL set
	JwksURL  string
	JwksKid  string
}

type AccessMethodDefinition struct {
	Level consts.Level
	Name  string
	Type  consts.AccessType

	JwtVerify JwtVerify
	JwtIssue  *JwtVerify // nil unless WITH ISSUER KEY was given

	SigninExpr      *string
	SignupExpr      *string
	AuthenticateExpr *string

	BearerSubject BearerSubjectConfig
	WithRefresh   bool

	DurationGrant  *int64 // seconds; refresh-grant validity
	DurationToken  int64
	DurationSession int64
}

type BearerSubjectConfig struct {
	Subject consts.BearerSubject
	Kind    consts.BearerKind
}

type UserDefinition struct {
	Level           consts.Level
	Name            string
	Passhash        string // argon2id encoded hash
	Code            string // per-user random HS secret
	Roles           []consts.Role
	TokenDuration   int64
	SessionDuration int64
	TotpSecret      string // base32 TOTP secret; empty means no second factor enrolled
}

// ParamDefinition is a database-scoped $param, per §1's DDL scope ("create/
// alter/remove for ... parameters"). Value is the serialized PhysicalExpr
// form, the same convention FieldDefinition.Computed/Value use for stored
// expression source.
type ParamDefinition struct {
	Name       string
	Value      string
	Permission Permission
}

// AnalyzerDefinition configures a FULLTEXT index's tokenization pipeline
// (§3's IndexVariant.FullText requires an Analyzer by name).
type AnalyzerDefinition struct {
	Name       string
	Tokenizers []string
	Filters    []string
}

// SubscriptionDefinition is a live query (§3, §4.9).
type SubscriptionDefinition struct {
	ID      string
	Node    string
	Table   string
	Fields  []string
	Cond    *string
	Fetch   []string
	Auth    *string
	Session *string
}
