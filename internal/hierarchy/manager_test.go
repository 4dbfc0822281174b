package hierarchy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sietch-labs/sietch/internal/sqlite"
	"github.com/sietch-labs/sietch/pkg/types"
)

// testManager returns a manager over a fresh sqlite backend seeded with
// skill nodes "1" through "5".
func testManager(t *testing.T) (*Manager, *sqlite.Backend) {
	t.Helper()

	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Detach() })

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%d", i)
		_, err := b.UpsertEntity(&types.Entity{
			Kind: types.KindSkillNode,
			ID:   id,
			Name: "Node " + id,
		})
		require.NoError(t, err)
	}
	return NewManager(b), b
}

func node(id string) types.Ref {
	return types.Ref{Kind: types.KindSkillNode, ID: id}
}

func childIDs(t *testing.T, b *sqlite.Backend, parent types.Ref) []string {
	t.Helper()
	edges, err := b.ChildEdges(parent)
	require.NoError(t, err)
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.ChildID
		assert.Equal(t, i, e.OrderIndex, "sibling order must stay dense")
	}
	return ids
}

func TestAddChild(t *testing.T) {
	m, b := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))

	assert.Equal(t, []string{"2", "3"}, childIDs(t, b, node("1")))

	roots, err := m.Roots(types.KindSkillNode)
	require.NoError(t, err)
	assert.Equal(t, []types.Ref{node("1"), node("4"), node("5")}, roots)
}

func TestAddChild_Position(t *testing.T) {
	m, b := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))
	// Insert at the head; existing siblings shift right.
	require.NoError(t, m.AddChild(node("1"), node("4"), 0))

	assert.Equal(t, []string{"4", "2", "3"}, childIDs(t, b, node("1")))
}

func TestAddChild_AlreadyParented(t *testing.T) {
	m, _ := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	err := m.AddChild(node("3"), node("2"), PositionEnd)
	assert.ErrorIs(t, err, types.ErrAlreadyParented)
}

func TestAddChild_Validation(t *testing.T) {
	m, _ := testManager(t)

	assert.ErrorIs(t, m.AddChild(node("1"), node("1"), PositionEnd), types.ErrCycleDetected)
	assert.ErrorIs(t, m.AddChild(node("1"), node("99"), PositionEnd), types.ErrNotFound)
	assert.ErrorIs(t,
		m.AddChild(types.Ref{Kind: types.KindResource, ID: "x"}, types.Ref{Kind: types.KindResource, ID: "y"}, PositionEnd),
		types.ErrSchemaViolation)
}

func TestMoveNode_CycleDetection(t *testing.T) {
	m, b := testManager(t)

	// 1 is the root with children 2 (order 0) and 3 (order 1).
	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))

	// Moving 2 under 3 is legal and leaves 3 as 1's only direct child.
	require.NoError(t, m.MoveNode(node("2"), node("3"), PositionEnd))
	assert.Equal(t, []string{"3"}, childIDs(t, b, node("1")))
	assert.Equal(t, []string{"2"}, childIDs(t, b, node("3")))

	// Moving 3 under 2 would close a loop.
	err := m.MoveNode(node("3"), node("2"), PositionEnd)
	assert.ErrorIs(t, err, types.ErrCycleDetected)

	// The failed move changed nothing.
	assert.Equal(t, []string{"3"}, childIDs(t, b, node("1")))
	assert.Equal(t, []string{"2"}, childIDs(t, b, node("3")))
}

func TestMoveNode_SameParentReorder(t *testing.T) {
	m, b := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("4"), PositionEnd))

	require.NoError(t, m.MoveNode(node("4"), node("1"), 0))
	assert.Equal(t, []string{"4", "2", "3"}, childIDs(t, b, node("1")))

	require.NoError(t, m.MoveNode(node("4"), node("1"), PositionEnd))
	assert.Equal(t, []string{"2", "3", "4"}, childIDs(t, b, node("1")))
}

func TestMoveNode_RootGainsParent(t *testing.T) {
	m, b := testManager(t)

	// A root can be moved under another node without a prior edge.
	require.NoError(t, m.MoveNode(node("2"), node("1"), PositionEnd))
	assert.Equal(t, []string{"2"}, childIDs(t, b, node("1")))
}

func TestRemoveNode(t *testing.T) {
	m, b := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))
	require.NoError(t, m.AddChild(node("2"), node("4"), PositionEnd))

	// Non-cascade refuses while children remain.
	assert.ErrorIs(t, m.RemoveNode(node("2"), false), types.ErrNonEmptySubtree)

	// Cascade detaches the whole subtree; entities survive.
	require.NoError(t, m.RemoveNode(node("2"), true))
	assert.Equal(t, []string{"3"}, childIDs(t, b, node("1")))
	assert.Empty(t, childIDs(t, b, node("2")))

	_, err := b.GetEntity(node("4"))
	require.NoError(t, err, "cascade removes edges, not entities")

	roots, err := m.Roots(types.KindSkillNode)
	require.NoError(t, err)
	assert.Contains(t, roots, node("2"))
	assert.Contains(t, roots, node("4"))
}

func TestRemoveNode_Leaf(t *testing.T) {
	m, b := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))

	require.NoError(t, m.RemoveNode(node("2"), false))
	assert.Equal(t, []string{"3"}, childIDs(t, b, node("1")))

	// Removing a parentless leaf is a no-op.
	require.NoError(t, m.RemoveNode(node("2"), false))
}

func TestSubtree_PreOrder(t *testing.T) {
	m, _ := testManager(t)

	//    1
	//   / \
	//  2   3
	//  |
	//  4
	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("1"), node("3"), PositionEnd))
	require.NoError(t, m.AddChild(node("2"), node("4"), PositionEnd))

	var ids []string
	for e, err := range m.Subtree(node("1")) {
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "2", "4", "3"}, ids)

	// Stopping early and ranging again restarts the walk.
	seq := m.Subtree(node("1"))
	for range seq {
		break
	}
	count := 0
	for _, err := range seq {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 4, count)
}

func TestDepth(t *testing.T) {
	m, _ := testManager(t)

	require.NoError(t, m.AddChild(node("1"), node("2"), PositionEnd))
	require.NoError(t, m.AddChild(node("2"), node("3"), PositionEnd))

	for id, want := range map[string]int{"1": 0, "2": 1, "3": 2} {
		got, err := m.Depth(node(id))
		require.NoError(t, err)
		assert.Equal(t, want, got, "depth of node %s", id)
	}
}
