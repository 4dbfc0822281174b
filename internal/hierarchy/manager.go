// Package hierarchy enforces tree invariants over the store's raw edge
// primitives: every node has at most one parent, no path of parent
// edges forms a cycle, and siblings keep a dense order. All structural
// changes are staged as edge edits and applied in one atomic batch, so
// readers never observe a half-moved subtree.
//
// See docs/ARCHITECTURE.md § Hierarchy Manager.
package hierarchy

import (
	"fmt"
	"iter"

	"github.com/sietch-labs/sietch/pkg/types"
)

// Store is the slice of the data layer the manager needs: entity
// resolution plus raw edge storage.
type Store interface {
	GetEntity(ref types.Ref) (*types.Entity, error)
	types.HierarchyStore
}

// Manager validates and applies tree operations for one store.
type Manager struct {
	store Store
}

// NewManager returns a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// PositionEnd appends a node after its new siblings.
const PositionEnd = -1

// AddChild attaches child under parent at the given sibling position
// (PositionEnd appends). The child must currently be a root of its
// tree; attaching an already-parented node returns ErrAlreadyParented,
// and attaching a node above itself returns ErrCycleDetected.
func (m *Manager) AddChild(parent, child types.Ref, position int) error {
	if err := m.checkPair(parent, child); err != nil {
		return err
	}

	existing, err := m.store.ParentEdge(child)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s is under %s", types.ErrAlreadyParented,
			child, types.Ref{Kind: child.Kind, ID: existing.ParentID})
	}
	if err := m.checkNoCycle(parent, child); err != nil {
		return err
	}

	edits, err := m.insertEdits(parent, child, position)
	if err != nil {
		return err
	}
	return m.store.ApplyEdgeEdits(edits)
}

// MoveNode re-parents node under newParent at the given sibling
// position. The old sibling run is closed up and the new one opened in
// the same atomic batch. Moving a node into its own subtree returns
// ErrCycleDetected.
func (m *Manager) MoveNode(node, newParent types.Ref, position int) error {
	if err := m.checkPair(newParent, node); err != nil {
		return err
	}
	if err := m.checkNoCycle(newParent, node); err != nil {
		return err
	}

	old, err := m.store.ParentEdge(node)
	if err != nil {
		return err
	}

	var edits []types.EdgeEdit
	if old != nil {
		closing, err := m.closeGapEdits(types.Ref{Kind: node.Kind, ID: old.ParentID}, node)
		if err != nil {
			return err
		}
		edits = append(edits, closing...)
	}

	inserting, err := m.insertEdits(newParent, node, position)
	if err != nil {
		return err
	}
	edits = append(edits, inserting...)
	return m.store.ApplyEdgeEdits(edits)
}

// RemoveNode detaches node from the tree. Without cascade a node that
// still has children returns ErrNonEmptySubtree; with cascade every
// edge in the subtree is removed and the descendants become roots.
// Entities themselves are never deleted here.
func (m *Manager) RemoveNode(node types.Ref, cascade bool) error {
	if err := m.checkNode(node); err != nil {
		return err
	}

	children, err := m.store.ChildEdges(node)
	if err != nil {
		return err
	}
	if len(children) > 0 && !cascade {
		return fmt.Errorf("%w: %s has %d children", types.ErrNonEmptySubtree, node, len(children))
	}

	var edits []types.EdgeEdit
	if old, err := m.store.ParentEdge(node); err != nil {
		return err
	} else if old != nil {
		closing, err := m.closeGapEdits(types.Ref{Kind: node.Kind, ID: old.ParentID}, node)
		if err != nil {
			return err
		}
		edits = append(edits, closing...)
	}

	if cascade {
		refs, err := m.collectSubtree(node)
		if err != nil {
			return err
		}
		// Skip the node itself; its own edge is handled above.
		for _, ref := range refs[1:] {
			edits = append(edits, types.EdgeEdit{Op: types.EdgeDelete, Edge: types.HierarchyEdge{
				TreeKind: ref.Kind,
				ChildID:  ref.ID,
			}})
		}
	}

	if len(edits) == 0 {
		// A root leaf: nothing stored to remove.
		return nil
	}
	return m.store.ApplyEdgeEdits(edits)
}

// Subtree produces the pre-order traversal rooted at root: the root
// entity first, then each child's subtree in sibling order. The
// sequence is lazy and restartable; ranging again re-walks the current
// tree.
func (m *Manager) Subtree(root types.Ref) iter.Seq2[*types.Entity, error] {
	return func(yield func(*types.Entity, error) bool) {
		m.walk(root, yield)
	}
}

// walk yields one node and recurses into its children. Returns false
// once the consumer stops.
func (m *Manager) walk(ref types.Ref, yield func(*types.Entity, error) bool) bool {
	e, err := m.store.GetEntity(ref)
	if err != nil {
		yield(nil, err)
		return false
	}
	if !yield(e, nil) {
		return false
	}

	children, err := m.store.ChildEdges(ref)
	if err != nil {
		yield(nil, err)
		return false
	}
	for _, edge := range children {
		if !m.walk(edge.Child(), yield) {
			return false
		}
	}
	return true
}

// Roots returns the parentless entities of the tree kind.
func (m *Manager) Roots(treeKind string) ([]types.Ref, error) {
	return m.store.Roots(treeKind)
}

// Depth returns the number of parent edges between node and its root.
func (m *Manager) Depth(node types.Ref) (int, error) {
	if err := m.checkNode(node); err != nil {
		return 0, err
	}
	depth := 0
	current := node
	seen := map[string]bool{node.ID: true}
	for {
		edge, err := m.store.ParentEdge(current)
		if err != nil {
			return 0, err
		}
		if edge == nil {
			return depth, nil
		}
		if seen[edge.ParentID] {
			return 0, fmt.Errorf("%w: stored edges loop at %s", types.ErrCycleDetected, current)
		}
		seen[edge.ParentID] = true
		current = types.Ref{Kind: node.Kind, ID: edge.ParentID}
		depth++
	}
}

// checkPair validates a (parent, child) operation: both refs resolve,
// share a registered tree kind, and differ.
func (m *Manager) checkPair(parent, child types.Ref) error {
	if parent.Kind != child.Kind {
		return fmt.Errorf("%w: %s and %s are different kinds", types.ErrSchemaViolation, parent, child)
	}
	if parent.ID == child.ID {
		return fmt.Errorf("%w: %s cannot parent itself", types.ErrCycleDetected, child)
	}
	if err := m.checkNode(parent); err != nil {
		return err
	}
	return m.checkNode(child)
}

// checkNode validates that ref is an existing entity of a tree kind.
func (m *Manager) checkNode(ref types.Ref) error {
	if !types.TreeKind(ref.Kind) {
		return fmt.Errorf("%w: %q is not a tree kind", types.ErrSchemaViolation, ref.Kind)
	}
	if _, err := m.store.GetEntity(ref); err != nil {
		return err
	}
	return nil
}

// checkNoCycle walks parent's ancestor chain. The walk is O(depth);
// finding child on the chain means the edit would close a loop.
func (m *Manager) checkNoCycle(parent, child types.Ref) error {
	current := parent
	seen := map[string]bool{parent.ID: true}
	for {
		if current.ID == child.ID {
			return fmt.Errorf("%w: %s is an ancestor position of %s", types.ErrCycleDetected, child, parent)
		}
		edge, err := m.store.ParentEdge(current)
		if err != nil {
			return err
		}
		if edge == nil {
			return nil
		}
		if seen[edge.ParentID] {
			return fmt.Errorf("%w: stored edges loop at %s", types.ErrCycleDetected, current)
		}
		seen[edge.ParentID] = true
		current = types.Ref{Kind: parent.Kind, ID: edge.ParentID}
	}
}

// insertEdits stages the edge put for child at position under parent,
// plus puts re-indexing any displaced siblings. Out-of-range positions
// append.
func (m *Manager) insertEdits(parent, child types.Ref, position int) ([]types.EdgeEdit, error) {
	siblings, err := m.store.ChildEdges(parent)
	if err != nil {
		return nil, err
	}
	// A move within the same parent: drop the node's current slot
	// before computing the insertion point.
	kept := siblings[:0:0]
	for _, s := range siblings {
		if s.ChildID != child.ID {
			kept = append(kept, s)
		}
	}

	if position == PositionEnd || position < 0 || position > len(kept) {
		position = len(kept)
	}

	var edits []types.EdgeEdit
	put := func(id string, index int) {
		edits = append(edits, types.EdgeEdit{Op: types.EdgePut, Edge: types.HierarchyEdge{
			TreeKind:   parent.Kind,
			ParentID:   parent.ID,
			ChildID:    id,
			OrderIndex: index,
		}})
	}

	// Re-index every sibling unconditionally. These puts come last in a
	// move batch, so they settle any earlier gap-closing edits touching
	// the same children.
	for i, s := range kept[:position] {
		put(s.ChildID, i)
	}
	put(child.ID, position)
	for i, s := range kept[position:] {
		put(s.ChildID, position+1+i)
	}
	return edits, nil
}

// closeGapEdits stages puts re-indexing parent's children after
// leaving is detached, keeping sibling order dense.
func (m *Manager) closeGapEdits(parent, leaving types.Ref) ([]types.EdgeEdit, error) {
	siblings, err := m.store.ChildEdges(parent)
	if err != nil {
		return nil, err
	}

	edits := []types.EdgeEdit{{Op: types.EdgeDelete, Edge: types.HierarchyEdge{
		TreeKind: leaving.Kind,
		ChildID:  leaving.ID,
	}}}
	index := 0
	for _, s := range siblings {
		if s.ChildID == leaving.ID {
			continue
		}
		if s.OrderIndex != index {
			edits = append(edits, types.EdgeEdit{Op: types.EdgePut, Edge: types.HierarchyEdge{
				TreeKind:   parent.Kind,
				ParentID:   parent.ID,
				ChildID:    s.ChildID,
				OrderIndex: index,
			}})
		}
		index++
	}
	return edits, nil
}

// collectSubtree returns the pre-order refs of node's subtree,
// including node itself.
func (m *Manager) collectSubtree(node types.Ref) ([]types.Ref, error) {
	refs := []types.Ref{node}
	children, err := m.store.ChildEdges(node)
	if err != nil {
		return nil, err
	}
	for _, edge := range children {
		sub, err := m.collectSubtree(edge.Child())
		if err != nil {
			return nil, err
		}
		refs = append(refs, sub...)
	}
	return refs, nil
}
