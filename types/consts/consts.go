// Package consts holds the enumerations shared across the query engine core:
// actor levels and roles, phases used for contextual logging, access-path
// kinds, lock/transaction modes and index kinds.
package consts

// FrameworkName is used as the default JWT issuer and as a log-file prefix.
const FrameworkName = "surrealkv"

// Phase names a point in a request's lifecycle for contextual logging, mirroring
// the teacher's consts.Phase used throughout logger.WithXContext(ctx, phase) calls.
type Phase string

const (
	PhasePlan     Phase = "plan"
	PhaseExec     Phase = "exec"
	PhaseScan     Phase = "scan"
	PhaseIndex    Phase = "index"
	PhaseKnn      Phase = "knn"
	PhaseFullText Phase = "fulltext"
	PhaseCreate   Phase = "create"
	PhaseDelete   Phase = "delete"
	PhaseDDL      Phase = "ddl"
	PhaseAuth     Phase = "auth"
	PhaseLive     Phase = "live"
	PhaseBoot     Phase = "bootstrap"
)

// Level is the scope that contains an actor or a resource: Root, Namespace, Database, Record.
type Level int

const (
	LevelRoot Level = iota
	LevelNamespace
	LevelDatabase
	LevelRecord
)

func (l Level) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelNamespace:
		return "namespace"
	case LevelDatabase:
		return "database"
	case LevelRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Role is a capability grantable to a non-record actor.
type Role int

const (
	RoleViewer Role = iota
	RoleEditor
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleEditor:
		return "editor"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// CRUDAction is one of the four table-level permissioned actions.
type CRUDAction int

const (
	ActionSelect CRUDAction = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a CRUDAction) String() string {
	switch a {
	case ActionSelect:
		return "select"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// RequiredRole returns the role a non-record actor needs to be auto-allowed for the action
// under permission resolution rule §4.3.2 (Viewer for reads, Editor for writes).
func (a CRUDAction) RequiredRole() Role {
	if a == ActionSelect {
		return RoleViewer
	}
	return RoleEditor
}

// TxMode is Read|Write crossed with Optimistic|Serializable, per §4.1.
type TxMode int

const (
	TxReadOptimistic TxMode = iota
	TxReadSerializable
	TxWriteOptimistic
	TxWriteSerializable
)

func (m TxMode) Writable() bool {
	return m == TxWriteOptimistic || m == TxWriteSerializable
}

func (m TxMode) Serializable() bool {
	return m == TxReadSerializable || m == TxWriteSerializable
}

// Direction of a key-range or index scan.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// IndexKind distinguishes the physical index flavors in §3's IndexDefinition.
type IndexKind int

const (
	IndexKindIdx IndexKind = iota
	IndexKindUniq
	IndexKindFullText
	IndexKindHnsw
)

// DefineMode controls how a DEFINE statement behaves on name collision, §4.8 step 3.
type DefineMode int

const (
	DefineDefault DefineMode = iota
	DefineIfNotExists
	DefineOverwrite
)

// AccessType is the three kinds of AccessMethodDefinition.
type AccessType int

const (
	AccessJwt AccessType = iota
	AccessRecord
	AccessBearer
)

// BearerSubject distinguishes BEARER access method subject kinds.
type BearerSubject int

const (
	BearerUser BearerSubject = iota
	BearerRecord
)

// BearerKind distinguishes BEARER access method token kinds.
type BearerKind int

const (
	BearerGrant BearerKind = iota
	BearerRefresh
)

// DefaultBatchSize is the nominal streaming window size from §4.6.
const DefaultBatchSize = 1000

// DefaultKnnEf is the default HNSW search breadth when a statement omits EF.
const DefaultKnnEf = 100
