package entity

import "fmt"

// spawnOrder derives the deterministic spawn order from the parent
// references: depth-first from every root, visiting a parent immediately
// before its children, siblings in registration order. The forest is
// rebuilt on every call; it is derived state, never stored.
//
// A parent outside the registered set or a parent cycle is a programming
// error and fails before any remote call is made.
func spawnOrder(entities []*Entity) ([]*Entity, error) {
	registered := make(map[*Entity]bool, len(entities))
	for _, e := range entities {
		registered[e] = true
	}

	children := make(map[*Entity][]*Entity, len(entities))
	var roots []*Entity
	for _, e := range entities {
		parent := e.Parent()
		if parent == nil {
			roots = append(roots, e)
			continue
		}
		if !registered[parent] {
			return nil, fmt.Errorf("entity %s, parent %s: %w", e.Name(), parent.Name(), ErrParentUnknown)
		}
		children[parent] = append(children[parent], e)
	}

	if err := detectCycles(entities); err != nil {
		return nil, err
	}

	order := make([]*Entity, 0, len(entities))
	var visit func(e *Entity)
	visit = func(e *Entity) {
		order = append(order, e)
		for _, child := range children[e] {
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root)
	}

	if len(order) != len(entities) {
		// Entities unreachable from any root can only sit on a cycle.
		return nil, fmt.Errorf("%d entities unreachable from roots: %w", len(entities)-len(order), ErrDependencyCycle)
	}
	return order, nil
}

// detectCycles walks every parent chain; since each entity has at most one
// parent, a cycle shows up as the chain revisiting a node.
func detectCycles(entities []*Entity) error {
	for _, start := range entities {
		seen := map[*Entity]bool{start: true}
		for cur := start.Parent(); cur != nil; cur = cur.Parent() {
			if seen[cur] {
				return fmt.Errorf("entity %s is transitively its own parent: %w", start.Name(), ErrDependencyCycle)
			}
			seen[cur] = true
		}
	}
	return nil
}

// destroyOrder is the reverse of spawnOrder: leaves before parents, so the
// server never sees a dangling attachment.
func destroyOrder(entities []*Entity) ([]*Entity, error) {
	order, err := spawnOrder(entities)
	if err != nil {
		return nil, err
	}
	reversed := make([]*Entity, len(order))
	for i, e := range order {
		reversed[len(order)-1-i] = e
	}
	return reversed, nil
}
