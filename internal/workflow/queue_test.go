package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/agentmux/agentmux-core/pkg/api/v1"
)

func TestEnqueueDuplicatePathRejected(t *testing.T) {
	q := NewAssignmentQueue()
	require.NoError(t, q.Enqueue("open/task-1.md", "proj-1", v1.RoleDeveloper, 1))
	err := q.Enqueue("open/task-1.md", "proj-1", v1.RoleDeveloper, 1)
	assert.ErrorIs(t, err, ErrEntryExists)
	assert.Equal(t, 1, q.Len())
}

func TestDequeueForRoleOrdersByPriorityThenArrival(t *testing.T) {
	q := NewAssignmentQueue()
	require.NoError(t, q.Enqueue("open/low.md", "proj-1", v1.RoleDeveloper, 1))
	require.NoError(t, q.Enqueue("open/high.md", "proj-1", v1.RoleDeveloper, 5))
	require.NoError(t, q.Enqueue("open/mid.md", "proj-1", v1.RoleDeveloper, 3))

	first := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, first)
	assert.Equal(t, "open/high.md", first.FilePath)

	second := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, second)
	assert.Equal(t, "open/mid.md", second.FilePath)

	third := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, third)
	assert.Equal(t, "open/low.md", third.FilePath)

	assert.Nil(t, q.DequeueForRole(v1.RoleDeveloper))
}

func TestDequeueForRoleSkipsNonMatchingRoles(t *testing.T) {
	q := NewAssignmentQueue()
	require.NoError(t, q.Enqueue("open/qa.md", "proj-1", v1.RoleQA, 1))
	require.NoError(t, q.Enqueue("open/dev.md", "proj-1", v1.RoleDeveloper, 1))

	entry := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, entry)
	assert.Equal(t, "open/dev.md", entry.FilePath)
	assert.Equal(t, 1, q.Len())

	assert.Nil(t, q.DequeueForRole(v1.RoleTester))
}

func TestDequeueForRoleFindsTrueMaxAmongInterleavedRoles(t *testing.T) {
	q := NewAssignmentQueue()
	// Enqueue order chosen so the heap's internal array does not place the
	// priority-4 roleA entry ahead of the priority-3 roleA entry: a raw
	// array scan would wrongly return priority 3 before priority 4.
	require.NoError(t, q.Enqueue("open/a-low.md", "proj-1", v1.RoleDeveloper, 3))
	require.NoError(t, q.Enqueue("open/b-high.md", "proj-1", v1.RoleQA, 5))
	require.NoError(t, q.Enqueue("open/a-high.md", "proj-1", v1.RoleDeveloper, 4))

	first := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, first)
	assert.Equal(t, "open/a-high.md", first.FilePath)

	// The roleQA entry must still be queued: DequeueForRole must re-push
	// every non-matching entry it popped while scanning for role.
	assert.Equal(t, 2, q.Len())

	second := q.DequeueForRole(v1.RoleDeveloper)
	require.NotNil(t, second)
	assert.Equal(t, "open/a-low.md", second.FilePath)

	qaEntry := q.DequeueForRole(v1.RoleQA)
	require.NotNil(t, qaEntry)
	assert.Equal(t, "open/b-high.md", qaEntry.FilePath)
}

func TestRemoveAndLen(t *testing.T) {
	q := NewAssignmentQueue()
	require.NoError(t, q.Enqueue("open/a.md", "proj-1", v1.RoleDeveloper, 1))
	require.NoError(t, q.Enqueue("open/b.md", "proj-1", v1.RoleDeveloper, 1))

	assert.True(t, q.Remove("open/a.md"))
	assert.False(t, q.Remove("open/a.md"))
	assert.Equal(t, 1, q.Len())

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, "open/b.md", list[0].FilePath)
}
