package core

import (
	"fmt"
	"strings"
)

type ActorKind string

const (
	ActorSelf   ActorKind = "self"
	ActorSystem ActorKind = "system"
	ActorAdmin  ActorKind = "admin"
)

// Actor identifies who performs a lifecycle operation. For admin actors ID
// carries the admin's account id; for self actors it carries the id of the
// account being acted on.
type Actor struct {
	Kind  ActorKind
	ID    string
	Email string
	Role  Role
}

func SelfActor(accountID string) Actor {
	return Actor{Kind: ActorSelf, ID: accountID, Role: RoleUser}
}

func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

func AdminActor(adminID, email string, role Role) Actor {
	return Actor{Kind: ActorAdmin, ID: adminID, Email: email, Role: role}
}

// String renders the actor in the stable form stored on ledger rows and
// audit entries: "self", "system" or "admin:<id>".
func (a Actor) String() string {
	switch a.Kind {
	case ActorAdmin:
		return fmt.Sprintf("admin:%s", a.ID)
	case ActorSystem:
		return "system"
	default:
		return "self"
	}
}

// ParseActor reverses String. Email and role are live-actor properties and
// cannot be recovered from a stored stamp.
func ParseActor(s string) Actor {
	if id, ok := strings.CutPrefix(s, "admin:"); ok {
		return Actor{Kind: ActorAdmin, ID: id}
	}
	if s == "system" {
		return Actor{Kind: ActorSystem}
	}
	return Actor{Kind: ActorSelf}
}

func (a Actor) IsAdmin() bool {
	return a.Kind == ActorAdmin && (a.Role == RoleAdmin || a.Role == RoleRootAdmin)
}

func (a Actor) IsRoot() bool {
	return a.Kind == ActorAdmin && a.Role == RoleRootAdmin
}
