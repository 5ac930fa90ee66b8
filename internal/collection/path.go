// Package collection resolves entity locations inside collection trees and
// mirrors source collection paths onto destination servers.
package collection

import "github.com/BartekS5/cardsync/pkg/models"

// Find returns the node with the given id, searching depth-first.
func Find(tree *models.Collection, id int) *models.Collection {
	if tree == nil {
		return nil
	}
	if tree.ID == id {
		return tree
	}
	for _, child := range tree.Children {
		if n := Find(child, id); n != nil {
			return n
		}
	}
	return nil
}

// findByName returns the first node named name, searching depth-first.
func findByName(tree *models.Collection, name string) *models.Collection {
	if tree == nil {
		return nil
	}
	if tree.Name == name {
		return tree
	}
	for _, child := range tree.Children {
		if n := findByName(child, name); n != nil {
			return n
		}
	}
	return nil
}

func findChild(node *models.Collection, name string) *models.Collection {
	if node == nil {
		return nil
	}
	for _, child := range node.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ResolvePath returns the collection names from rootID (inclusive) down to
// targetID (inclusive), or nil when targetID is not reachable from rootID.
// rootID == models.NoRestriction starts at the tree's true root.
func ResolvePath(tree *models.Collection, targetID, rootID int) []string {
	start := tree
	if rootID != models.NoRestriction {
		start = Find(tree, rootID)
	}
	if start == nil {
		return nil
	}
	var path []string
	if descend(start, targetID, &path) {
		return path
	}
	return nil
}

func descend(node *models.Collection, targetID int, path *[]string) bool {
	*path = append(*path, node.Name)
	if node.ID == targetID {
		return true
	}
	for _, child := range node.Children {
		if descend(child, targetID, path) {
			return true
		}
	}
	*path = (*path)[:len(*path)-1]
	return false
}

// ResolveIDByName is the name-keyed counterpart of ResolvePath, used on the
// destination side where ids are unknown. It locates the first node named
// startName and returns the id of its child named name. An empty startName
// searches the whole tree for name. Passing a subtree and its own name as
// startName anchors the lookup to that node's direct children.
func ResolveIDByName(tree *models.Collection, name, startName string) (int, bool) {
	if startName == "" {
		if n := findByName(tree, name); n != nil {
			return n.ID, true
		}
		return 0, false
	}
	start := findByName(tree, startName)
	if n := findChild(start, name); n != nil {
		return n.ID, true
	}
	return 0, false
}

// SubtreeIDs lists the ids of rootID and every collection below it.
// rootID == models.NoRestriction returns nil, meaning no filtering.
func SubtreeIDs(tree *models.Collection, rootID int) map[int]bool {
	if rootID == models.NoRestriction {
		return nil
	}
	ids := map[int]bool{}
	var collect func(n *models.Collection)
	collect = func(n *models.Collection) {
		ids[n.ID] = true
		for _, c := range n.Children {
			collect(c)
		}
	}
	if start := Find(tree, rootID); start != nil {
		collect(start)
	}
	return ids
}
