package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/papyrender/dsl"
)

const sampleFragment = `
// heading first
font: "lmroman"
size: 1.2x
text size 1.6x color #0F62FE align center { "Invoice" }

"Paragraph one"
rule width 0.5pt color #999
gap 4pt; image "logo.png" width 20pt
`

func TestParseFragment(t *testing.T) {
	frag, err := dsl.ParseString("sample.papyrus", sampleFragment)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := len(frag.Statements); got != 7 {
		t.Fatalf("expected 7 statements, got %d", got)
	}

	font := frag.Statements[0].Assignment
	if font == nil || font.Key != "font" || font.Value.Raw() != "lmroman" {
		t.Fatalf("expected font assignment, got %+v", frag.Statements[0])
	}
	size := frag.Statements[1].Assignment
	if size == nil || size.Value.Number == nil || *size.Value.Number != "1.2x" {
		t.Fatalf("expected size 1.2x, got %+v", frag.Statements[1])
	}

	text := frag.Statements[2].Command
	if text == nil || text.Name != "text" {
		t.Fatalf("expected text command, got %+v", frag.Statements[2])
	}
	if len(text.Args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(text.Args))
	}
	if text.Args[3].Type != "Color" || text.Args[3].Value != "#0F62FE" {
		t.Fatalf("unexpected color arg %+v", text.Args[3])
	}
	if text.Block == nil || len(text.Block.Statements) != 1 || string(text.Block.Statements[0].Text.Value) != "Invoice" {
		t.Fatalf("expected block with Invoice literal, got %+v", text.Block)
	}

	if lit := frag.Statements[3].Text; lit == nil || string(lit.Value) != "Paragraph one" {
		t.Fatalf("expected paragraph literal, got %+v", frag.Statements[3])
	}
	if cmd := frag.Statements[5].Command; cmd == nil || cmd.Name != "gap" || cmd.Args[0].Value != "4pt" {
		t.Fatalf("expected gap command, got %+v", frag.Statements[5])
	}
	img := frag.Statements[6].Command
	if img == nil || img.Name != "image" || img.Args[0].Type != "String" || img.Args[0].Value != "logo.png" {
		t.Fatalf("expected image command with string path, got %+v", frag.Statements[6])
	}
}

func TestParseEmptyFragment(t *testing.T) {
	frag, err := dsl.Parse("empty", strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(frag.Statements) != 0 {
		t.Fatalf("expected no statements, got %d", len(frag.Statements))
	}
}

func TestParseReportsPosition(t *testing.T) {
	_, err := dsl.ParseString("bad.papyrus", "text {\n  \"unterminated\n")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "bad.papyrus") {
		t.Fatalf("expected error to mention source name, got %v", err)
	}
}
