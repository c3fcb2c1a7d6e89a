// Package policy decides whether an actor may read or write a resource.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

type Kind string

const (
	KindMovie     Kind = "movie"
	KindGenre     Kind = "genre"
	KindTag       Kind = "tag"
	KindItem      Kind = "item"
	KindWatchlist Kind = "watchlist"
	KindFavorite  Kind = "favorite"
)

type Action string

const (
	Read  Action = "read"
	Write Action = "write"
)

// Roles an actor can hold relative to one resource.
const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
	RoleOwner     = "owner"
)

// Actor is the identity a request acts as. The zero value is anonymous.
type Actor struct {
	UserID uint
}

func (a Actor) Anonymous() bool { return a.UserID == 0 }

// Owned is implemented by resources with a single owning user.
type Owned interface {
	OwnerKey() uint
}

// Denial messages.
var (
	ErrNotAuthenticated = errors.New("Authentication credentials were not provided.")
	ErrForbidden        = errors.New("You do not have permission to perform this action.")
)

// Policy is the authorization predicate. resource may be nil when the
// action does not target an existing row (listing, creating).
type Policy interface {
	Allow(actor Actor, kind Kind, resource any, action Action) bool
	// Check is Allow returning the matching denial error.
	Check(actor Actor, kind Kind, resource any, action Action) error
}

// CasbinPolicy evaluates the embedded role model.
type CasbinPolicy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewCasbinPolicy() (*CasbinPolicy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &CasbinPolicy{enforcer: enforcer}, nil
}

// MustCasbinPolicy panics if the embedded model cannot be loaded.
func MustCasbinPolicy() *CasbinPolicy {
	p, err := NewCasbinPolicy()
	if err != nil {
		panic(err)
	}
	return p
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] != "p" || len(parts) != 4 {
			return fmt.Errorf("malformed policy line %q", line)
		}
		if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
		}
	}
	return nil
}

// RoleOf returns the role actor holds with respect to resource.
func RoleOf(actor Actor, resource any) string {
	if actor.Anonymous() {
		return RoleAnonymous
	}
	if owned, ok := resource.(Owned); ok && owned.OwnerKey() == actor.UserID {
		return RoleOwner
	}
	return RoleMember
}

func (p *CasbinPolicy) Allow(actor Actor, kind Kind, resource any, action Action) bool {
	ok, err := p.enforcer.Enforce(RoleOf(actor, resource), string(kind), string(action))
	return err == nil && ok
}

func (p *CasbinPolicy) Check(actor Actor, kind Kind, resource any, action Action) error {
	if p.Allow(actor, kind, resource, action) {
		return nil
	}
	if actor.Anonymous() {
		return ErrNotAuthenticated
	}
	return ErrForbidden
}
