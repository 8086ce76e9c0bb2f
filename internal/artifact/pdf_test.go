package artifact

import (
	"bytes"
	"testing"
)

func TestRenderPDF_Deterministic(t *testing.T) {
	md := "# Mietrecht Zusammenfassung\n\nDer Mandant berichtet von einem Heizungsschaden.\n\n## Sachverhalt\n\n- Heizung defekt seit 3 Wochen\n- Vermieter informiert\n"
	ref := "SUM-20250127-A3F2K"

	first, err := RenderPDF(md, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := RenderPDF(md, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected RenderPDF to be deterministic for fixed input")
	}
	if len(first) == 0 {
		t.Fatalf("expected non-empty PDF bytes")
	}
}

func TestRenderPDF_EmptyMarkdownStillProducesDocument(t *testing.T) {
	out, err := RenderPDF("", "SUM-20250127-00000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected non-empty PDF bytes even for empty markdown")
	}
}
