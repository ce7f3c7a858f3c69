// Package hierarchy computes category ancestor paths and aggregated product counts
// from a snapshot of every category.
package hierarchy

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// MaxDepth bounds the parent walk. Chains longer than this, or chains that revisit a
// category, are truncated rather than rejected.
const MaxDepth = 32

// Path is a root-to-leaf ancestor chain ending at the category itself.
type Path struct {
	Names     []string
	Handles   []string
	IDs       []string
	Truncated bool
}

// Tree indexes a category snapshot by id and by parent. Build one per sync pass.
type Tree struct {
	byID     map[string]*models.Category
	children map[string][]string
}

func NewTree(all []models.Category) *Tree {
	t := &Tree{
		byID:     make(map[string]*models.Category, len(all)),
		children: make(map[string][]string),
	}
	for i := range all {
		c := &all[i]
		t.byID[c.ID] = c
	}
	for i := range all {
		c := &all[i]
		if c.ParentCategoryID != nil && *c.ParentCategoryID != "" && *c.ParentCategoryID != c.ID {
			t.children[*c.ParentCategoryID] = append(t.children[*c.ParentCategoryID], c.ID)
		}
	}
	for parent := range t.children {
		sort.Strings(t.children[parent])
	}
	return t
}

func (t *Tree) Get(id string) *models.Category {
	return t.byID[id]
}

func (t *Tree) Len() int {
	return len(t.byID)
}

// Path walks parent ids from the category to the root. An unknown parent ends the
// walk as if the category were a root.
func (t *Tree) Path(c models.Category) Path {
	var leafToRoot []*models.Category
	visited := map[string]bool{}
	truncated := false

	current := &c
	for current != nil {
		if visited[current.ID] {
			truncated = true
			break
		}
		if len(leafToRoot) == MaxDepth {
			truncated = true
			break
		}
		visited[current.ID] = true
		leafToRoot = append(leafToRoot, current)

		if current.ParentCategoryID == nil || *current.ParentCategoryID == "" {
			break
		}
		current = t.byID[*current.ParentCategoryID]
	}

	path := Path{
		Names:     make([]string, 0, len(leafToRoot)),
		Handles:   make([]string, 0, len(leafToRoot)),
		IDs:       make([]string, 0, len(leafToRoot)),
		Truncated: truncated,
	}
	for i := len(leafToRoot) - 1; i >= 0; i-- {
		path.Names = append(path.Names, leafToRoot[i].Name)
		path.Handles = append(path.Handles, leafToRoot[i].Handle)
		path.IDs = append(path.IDs, leafToRoot[i].ID)
	}
	return path
}

// Ancestors returns the ids above the category, nearest first.
func (t *Tree) Ancestors(id string) []string {
	c := t.byID[id]
	if c == nil {
		return nil
	}
	ids := t.Path(*c).IDs
	out := make([]string, 0, len(ids))
	for i := len(ids) - 2; i >= 0; i-- {
		out = append(out, ids[i])
	}
	return out
}

// Descendants returns every category below id in breadth-first order.
func (t *Tree) Descendants(id string) []string {
	visited := map[string]bool{id: true}
	queue := append([]string(nil), t.children[id]...)
	var out []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, t.children[next]...)
	}
	return out
}

// AggregatedCount sums the direct counts of the category and all of its descendants.
func (t *Tree) AggregatedCount(id string, direct map[string]int) int {
	total := direct[id]
	for _, d := range t.Descendants(id) {
		total += direct[d]
	}
	return total
}

// ComputeHierarchyPath returns the root-to-leaf path of category within all.
func ComputeHierarchyPath(category models.Category, all []models.Category) Path {
	return NewTree(all).Path(category)
}

// ComputeAggregatedCount returns the category's direct count plus every descendant's.
func ComputeAggregatedCount(category models.Category, all []models.Category, direct map[string]int) int {
	return NewTree(all).AggregatedCount(category.ID, direct)
}

// BrandProductCount looks up a brand's product count, defaulting to zero.
func BrandProductCount(brandID string, counts map[string]int) int {
	return counts[brandID]
}
