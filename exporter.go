package deeply

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNilWriter indicates that a nil writer was provided to an exporter.
var ErrNilWriter = errors.New("deeply: nil writer")

// DOTOption configures the behaviour of ExportDOT.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
}

func defaultDOTConfig(root Task) dotConfig {
	name := root.Name()
	if name == "" {
		name = "deeply"
	}
	return dotConfig{
		graphName: name,
		rankDir:   "TB",
	}
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction (e.g. "LR", "TB") for the exported DOT graph.
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// ExportDOT renders the task tree in Graphviz DOT format. Composites are drawn
// as boxes, leaves as ellipses, and edges run from parent to child in
// captured order. Node identifiers follow walk order, so same-named siblings
// stay distinct.
func ExportDOT(w io.Writer, root Task, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}
	if root == nil {
		return fmt.Errorf("%w: nil root task", ErrInvalidArgument)
	}

	cfg := defaultDOTConfig(root)
	for _, opt := range opts {
		opt(&cfg)
	}

	ids := make(map[*Base]string)
	var nodes, edges []string
	_ = Walk(root, func(task Task, _ int) error {
		id := fmt.Sprintf("n%d", len(ids))
		ids[task.base()] = id
		shape := "ellipse"
		if _, ok := task.(Container); ok {
			shape = "box"
		}
		nodes = append(nodes, fmt.Sprintf("%s [label=%s, shape=%s];", id, dotQuoteIdentifier(task.Name()), shape))
		if parent := task.Parent(); parent != nil {
			if pid, ok := ids[parent.base()]; ok {
				edges = append(edges, fmt.Sprintf("%s -> %s;", pid, id))
			}
		}
		return nil
	})

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuoteIdentifier(cfg.graphName)); err != nil {
		return err
	}
	if cfg.rankDir != "" {
		if _, err := fmt.Fprintf(w, "    rankdir=%s;\n", cfg.rankDir); err != nil {
			return err
		}
	}
	for _, line := range append(nodes, edges...) {
		if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotQuoteIdentifier(name string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range name {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
