package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/papyrender/config"
)

func TestRunWritesRenderedDocument(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PAPYRUS_CONFIG", "")
	t.Setenv("PAPYRUS_ELEMENT_FORMAT", "svg")
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	dir := t.TempDir()
	in := filepath.Join(dir, "doc.html")
	out := filepath.Join(dir, "out", "doc.html")
	src := `<html><body>
<p>Inline <papyrus-render>"x + y"</papyrus-render> math.</p>
<papyrus-render display>size: 1.4x
"Title"
rule</papyrus-render>
<papyrus-render display>frobnicate</papyrus-render>
<p>Raster <papyrus-render format="image">"z"</papyrus-render> too.</p>
</body></html>`
	if err := os.WriteFile(in, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := run(context.Background(), cfg, in, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.total != 4 || s.rendered != 3 || s.failed != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	if strings.Count(html, "<svg") != 2 {
		t.Fatalf("expected two inline svgs:\n%s", html)
	}
	if !strings.Contains(html, `<pre style="white-space: pre;">LayoutError: `) {
		t.Fatalf("failed fragment should be shown as text:\n%s", html)
	}
	if !strings.Contains(html, `data-src="data:image/png;base64,`) {
		t.Fatalf("an element asking for an image should get a canvas:\n%s", html)
	}
	if !strings.Contains(html, `em"`) {
		t.Fatalf("svg size should be in em:\n%s", html)
	}
}

func TestRunMissingInput(t *testing.T) {
	if _, err := run(context.Background(), config.Config{}, filepath.Join(t.TempDir(), "nope.html"), "-"); err == nil {
		t.Fatalf("expected error for missing input")
	}
}
