package deeply

import (
	"bytes"
	"errors"
	"testing"
)

func TestExportDOT(t *testing.T) {
	lint := NewAction(WithName("lint"))
	unit := NewAction(WithName("unit"))
	checks, err := Parallel("checks", lint, unit)
	if err != nil {
		t.Fatalf("parallel checks: %v", err)
	}
	root, err := Sequence("release", checks, NewAction(WithName("ship \"it\"")))
	if err != nil {
		t.Fatalf("sequence release: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportDOT(&buf, root, DOTWithGraphName("pipeline"), DOTWithRankDir("LR")); err != nil {
		t.Fatalf("export DOT: %v", err)
	}

	want := `digraph "pipeline" {
    rankdir=LR;
    n0 [label="release", shape=box];
    n1 [label="checks", shape=box];
    n2 [label="lint", shape=ellipse];
    n3 [label="unit", shape=ellipse];
    n4 [label="ship \"it\"", shape=ellipse];
    n0 -> n1;
    n1 -> n2;
    n1 -> n3;
    n0 -> n4;
}
`
	if got := buf.String(); got != want {
		t.Fatalf("unexpected DOT output:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestExportDOTDefaultsToRootName(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportDOT(&buf, NewAction(WithName("solo"))); err != nil {
		t.Fatalf("export DOT: %v", err)
	}
	want := "digraph \"solo\" {\n    rankdir=TB;\n    n0 [label=\"solo\", shape=ellipse];\n}\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected DOT output:\n%s", got)
	}
}

func TestExportDOTMissingWriter(t *testing.T) {
	err := ExportDOT(nil, NewAction())
	if !errors.Is(err, ErrNilWriter) {
		t.Fatalf("expected ErrNilWriter, got %v", err)
	}
	if err := ExportDOT(&bytes.Buffer{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
