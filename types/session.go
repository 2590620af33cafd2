package types

import (
	"time"

	"github.com/forbearing/surrealkv-core/types/consts"
)

// Actor is an authenticated principal: an id plus roles plus a level, per GLOSSARY.
// Record actors carry no roles (§3 "Session & Auth").
type Actor struct {
	ID       string
	Level    consts.Level
	Roles    []consts.Role
	Ns       string
	Db       string
	RecordID *RecordId // set only when Level == LevelRecord
}

func AnonymousActor() Actor {
	return Actor{Level: consts.LevelRoot}
}

// HasRole reports whether the actor was granted role.
func (a Actor) HasRole(role consts.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ContainsScope reports whether the actor's level contains the given (ns,db)
// scope, per §4.3 rule 2 ("the actor's level contains (ns,db)").
func (a Actor) ContainsScope(ns, db string) bool {
	switch a.Level {
	case consts.LevelRoot:
		return true
	case consts.LevelNamespace:
		return a.Ns == ns
	case consts.LevelDatabase:
		return a.Ns == ns && a.Db == db
	case consts.LevelRecord:
		return a.Ns == ns && a.Db == db
	default:
		return false
	}
}

// Session carries a namespace, database, optional access-method id, optional
// token value, optional record id (when authenticated as a record), expiration,
// and an Auth actor, per §3.
type Session struct {
	Ns       string
	Db       string
	Ac       string // access-method id/name
	Token    string
	RecordID *RecordId
	Exp      time.Time
	Auth     Actor
}

// IsRecord reports whether the session is authenticated as a record actor.
func (s *Session) IsRecord() bool { return s.Auth.Level == consts.LevelRecord }

// Expired reports whether the session expiration has passed as of now.
func (s *Session) Expired(now time.Time) bool {
	return !s.Exp.IsZero() && now.After(s.Exp)
}
