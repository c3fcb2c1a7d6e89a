package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedThing struct{ owner uint }

func (o ownedThing) OwnerKey() uint { return o.owner }

func TestReadAlwaysAllowed(t *testing.T) {
	p, err := NewCasbinPolicy()
	require.NoError(t, err)

	kinds := []Kind{KindMovie, KindGenre, KindTag, KindItem, KindWatchlist, KindFavorite}
	actors := []Actor{{}, {UserID: 1}, {UserID: 2}}
	for _, kind := range kinds {
		for _, actor := range actors {
			assert.True(t, p.Allow(actor, kind, ownedThing{owner: 2}, Read), "%s read by %d", kind, actor.UserID)
			assert.NoError(t, p.Check(actor, kind, nil, Read))
		}
	}
}

func TestAnonymousWriteDenied(t *testing.T) {
	p := MustCasbinPolicy()

	for _, kind := range []Kind{KindMovie, KindGenre, KindTag, KindItem, KindWatchlist, KindFavorite} {
		assert.False(t, p.Allow(Actor{}, kind, nil, Write))
		assert.ErrorIs(t, p.Check(Actor{}, kind, nil, Write), ErrNotAuthenticated)
	}
}

func TestMemberWrites(t *testing.T) {
	p := MustCasbinPolicy()
	alice := Actor{UserID: 1}

	for _, kind := range []Kind{KindMovie, KindGenre, KindTag, KindWatchlist, KindFavorite} {
		assert.True(t, p.Allow(alice, kind, nil, Write), string(kind))
	}
}

func TestItemWriteRequiresOwner(t *testing.T) {
	p := MustCasbinPolicy()
	alice, bob := Actor{UserID: 1}, Actor{UserID: 2}
	item := ownedThing{owner: 1}

	assert.True(t, p.Allow(alice, KindItem, item, Write))
	assert.False(t, p.Allow(bob, KindItem, item, Write))
	assert.ErrorIs(t, p.Check(bob, KindItem, item, Write), ErrForbidden)
	assert.False(t, p.Allow(bob, KindItem, nil, Write), "no resource means no ownership")
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, RoleAnonymous, RoleOf(Actor{}, ownedThing{owner: 0}))
	assert.Equal(t, RoleOwner, RoleOf(Actor{UserID: 3}, ownedThing{owner: 3}))
	assert.Equal(t, RoleMember, RoleOf(Actor{UserID: 3}, ownedThing{owner: 4}))
	assert.Equal(t, RoleMember, RoleOf(Actor{UserID: 3}, "not owned"))
}
