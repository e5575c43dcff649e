// Package hierarchy turns a flat snapshot file list into a folder tree.
package hierarchy

import (
	"cmp"
	"slices"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

const separator = "/"

// Node is a folder or a file. The root is a folder with an empty Path.
// Folders carry the highest LastModifiedIndex below them and the number
// of files they contain in Value.
type Node struct {
	Name              string       `json:"name"`
	Path              string       `json:"path"`
	Dir               bool         `json:"dir,omitempty"`
	LastModifiedIndex int          `json:"lastModifiedIndex"`
	Color             cursor.Color `json:"color,omitempty"`
	Language          string       `json:"language,omitempty"`
	Value             int          `json:"value"`
	Children          []*Node      `json:"children,omitempty"`
}

// Build creates the tree of snap. Files take their colour from colors.
func Build(snap *snapshot.Snapshot, colors cursor.Coloring) *Node {
	root := &Node{Dir: true}
	folders := map[string]*Node{"": root}

	for _, entry := range snap.AllFiles {
		parent := root
		dir, name := splitDir(entry.Path)

		if dir != "" {
			parent = folder(folders, dir)
		}

		parent.Children = append(parent.Children, &Node{
			Name:              name,
			Path:              entry.Path,
			LastModifiedIndex: entry.LastModifiedIndex,
			Color:             colors.Of(entry.Path),
			Language:          entry.Language,
			Value:             1,
		})
	}

	summarize(root)

	return root
}

// folder returns the folder node of path, creating it and its ancestors.
func folder(folders map[string]*Node, path string) *Node {
	if n, ok := folders[path]; ok {
		return n
	}

	dir, name := splitDir(path)
	parent := folders[""]

	if dir != "" {
		parent = folder(folders, dir)
	}

	n := &Node{Name: name, Path: path, Dir: true}
	parent.Children = append(parent.Children, n)
	folders[path] = n

	return n
}

func splitDir(path string) (dir, name string) {
	i := strings.LastIndex(path, separator)
	if i < 0 {
		return "", path
	}

	return path[:i], path[i+1:]
}

// summarize sorts children and fills folder aggregates bottom up.
func summarize(n *Node) {
	if !n.Dir {
		return
	}

	n.Value = 0
	n.LastModifiedIndex = 0

	for _, child := range n.Children {
		summarize(child)

		n.Value += child.Value
		n.LastModifiedIndex = max(n.LastModifiedIndex, child.LastModifiedIndex)
	}

	slices.SortFunc(n.Children, func(a, b *Node) int {
		if a.Dir != b.Dir {
			if a.Dir {
				return -1
			}

			return 1
		}

		return cmp.Compare(a.Name, b.Name)
	})
}

// Find returns the node at path, or nil. The empty path is the root.
func (n *Node) Find(path string) *Node {
	if path == "" {
		return n
	}

	cur := n

	for part := range strings.SplitSeq(path, separator) {
		var next *Node

		for _, child := range cur.Children {
			if child.Name == part {
				next = child

				break
			}
		}

		if next == nil {
			return nil
		}

		cur = next
	}

	return cur
}

// Walk visits n and its descendants depth first in child order. Returning
// false from fn skips the children of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}

	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Row is one visible line of a flattened tree.
type Row struct {
	Node  *Node
	Depth int
}

// Flatten lists the nodes visible when the folders in expanded are open.
// The root itself is omitted and its children are always shown.
func Flatten(root *Node, expanded map[string]bool) []Row {
	var rows []Row

	root.Walk(func(node *Node, depth int) bool {
		if node == root {
			return true
		}

		rows = append(rows, Row{Node: node, Depth: depth - 1})

		return node.Dir && expanded[node.Path]
	})

	return rows
}

// Chart renders the tree as a treemap sized by file count.
func Chart(cOpts *plotpage.ChartOpts, title string, root *Node) *charts.TreeMap {
	return plotpage.BuildTreeMap(cOpts, title, treeMapNodes(root.Children))
}

func treeMapNodes(nodes []*Node) []opts.TreeMapNode {
	out := make([]opts.TreeMapNode, len(nodes))

	for i, n := range nodes {
		out[i] = opts.TreeMapNode{Name: n.Name, Value: n.Value, Children: treeMapNodes(n.Children)}
	}

	return out
}
