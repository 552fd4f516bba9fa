package inspect

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/referenceframe"
)

// FormatForPath picks a graphviz output format from a file extension, defaulting to SVG.
func FormatForPath(path string) graphviz.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return graphviz.PNG
	case ".jpg", ".jpeg":
		return graphviz.JPG
	case ".dot", ".gv":
		return graphviz.XDOT
	default:
		return graphviz.SVG
	}
}

// WriteGraph renders the kinematic tree with links as boxes and joints as labeled edges. Skipped
// joints are drawn dashed when both of their links exist.
func WriteGraph(tree *referenceframe.Tree, format graphviz.Format, w io.Writer) error {
	g := graphviz.New()
	defer func() {
		//nolint:errcheck
		g.Close()
	}()
	graph, err := g.Graph()
	if err != nil {
		return errors.Wrap(err, "failed to create graph")
	}
	defer func() {
		//nolint:errcheck
		graph.Close()
	}()

	nodes := make([]*cgraph.Node, len(tree.Links))
	for i, rec := range tree.Links {
		n, err := graph.CreateNode(rec.Link.Name)
		if err != nil {
			return errors.Wrapf(err, "link %q", rec.Link.Name)
		}
		n.SetShape(cgraph.BoxShape)
		if referenceframe.LinkIndex(i) == tree.Root {
			n.SetStyle(cgraph.BoldNodeStyle)
		}
		nodes[i] = n
	}
	for _, rec := range tree.Joints {
		e, err := graph.CreateEdge(rec.Joint.Name, nodes[rec.Parent], nodes[rec.Child])
		if err != nil {
			return errors.Wrapf(err, "joint %q", rec.Joint.Name)
		}
		e.SetLabel(rec.Joint.Name + "\n" + string(rec.Joint.Type))
	}
	for _, s := range tree.Skipped {
		parent, okParent := tree.LinkByName(s.Joint.Parent)
		child, okChild := tree.LinkByName(s.Joint.Child)
		if !okParent || !okChild {
			continue
		}
		e, err := graph.CreateEdge(s.Joint.Name, nodes[parent], nodes[child])
		if err != nil {
			return errors.Wrapf(err, "joint %q", s.Joint.Name)
		}
		e.SetLabel(s.Joint.Name + "\n" + s.Reason)
		e.SetStyle(cgraph.DashedEdgeStyle)
	}
	return g.Render(graph, format, w)
}
