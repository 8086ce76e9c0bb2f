package artifact

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"
)

// Fixed legal-document layout constants, translated from the CSS in
// original_source/app/services/pdf_service.py's PDFService.css_style: A4,
// 2.5cm top/bottom margin, 2cm left/right margin, a centered running
// header/footer, justified body paragraphs.
const (
	pageWidthMM   = 210.0
	marginLeftMM  = 20.0
	marginTopMM   = 25.0
	marginRightMM = 20.0
	contentWidthMM = pageWidthMM - marginLeftMM - marginRightMM

	headerText     = "Sumii - Rechtliche Zusammenfassung"
	disclaimerText = "Diese Zusammenfassung wurde automatisiert erstellt und ersetzt keine individuelle Rechtsberatung."
)

type docBlock struct {
	kind string // h1..h6, p, li, blockquote, code, hr
	text string
}

// RenderPDF is the pure `(markdown, reference_number) -> bytes` function
// spec §4.5 step 4 requires: markdown is converted to HTML (MarkdownToHTML),
// the HTML's block structure is walked, and each block is drawn into a
// fixed A4 legal-document layout with running header/footer and a
// reference-number banner. Deterministic and synchronous — no goroutines,
// no wall-clock-dependent content.
func RenderPDF(markdownContent, referenceNumber string) ([]byte, error) {
	htmlContent, err := MarkdownToHTML(markdownContent)
	if err != nil {
		return nil, fmt.Errorf("artifact.RenderPDF: %w", err)
	}

	blocks, err := parseBlocks(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("artifact.RenderPDF: parse html: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeftMM, marginTopMM, marginRightMM)
	pdf.SetAutoPageBreak(true, marginTopMM)
	pdf.SetTitle("Rechtliche Zusammenfassung", false)
	// gofpdf stamps the current time as CreationDate unless one is set.
	pdf.SetCreationDate(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	pdf.SetHeaderFunc(func() {
		pdf.SetY(10)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 10, headerText, "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 10, fmt.Sprintf("Seite %d von {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AliasNbPages("{nb}")
	pdf.AddPage()

	if referenceNumber != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Aktenzeichen: %s", referenceNumber), "", 1, "L", false, 0, "")
		pdf.Ln(4)
	}

	for _, b := range blocks {
		drawBlock(pdf, b)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(102, 102, 102)
	pdf.MultiCell(0, 5, disclaimerText, "", "L", false)
	pdf.SetTextColor(0, 0, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("artifact.RenderPDF: output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBlock(pdf *gofpdf.Fpdf, b docBlock) {
	switch b.kind {
	case "h1":
		pdf.SetFont("Arial", "B", 20)
		pdf.SetTextColor(26, 26, 26)
		pdf.MultiCell(0, 10, b.text, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	case "h2":
		pdf.SetFont("Arial", "B", 16)
		pdf.SetTextColor(42, 42, 42)
		pdf.MultiCell(0, 9, b.text, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	case "h3", "h4", "h5", "h6":
		pdf.SetFont("Arial", "B", 13)
		pdf.SetTextColor(58, 58, 58)
		pdf.MultiCell(0, 8, b.text, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	case "blockquote":
		pdf.SetFont("Arial", "I", 11)
		pdf.SetTextColor(102, 102, 102)
		pdf.MultiCell(0, 6, b.text, "L", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	case "code":
		pdf.SetFont("Courier", "", 10)
		pdf.MultiCell(0, 5, b.text, "1", "L", true)
		pdf.Ln(2)
	case "li":
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, "- "+b.text, "", "L", false)
	case "hr":
		y := pdf.GetY()
		pdf.Line(marginLeftMM, y, pageWidthMM-marginRightMM, y)
		pdf.Ln(4)
	default: // "p"
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, b.text, "", "J", false)
		pdf.Ln(2)
	}
}

// parseBlocks walks the parsed HTML fragment and flattens it into ordered
// block-level elements, the shape drawBlock consumes. Inline formatting
// (bold, italic, links) is collapsed to its text content — gofpdf's plain
// MultiCell has no rich-text runs, matching the fixed, non-interactive
// layout spec §4.5 describes.
func parseBlocks(htmlContent string) ([]docBlock, error) {
	doc, err := html.Parse(strings.NewReader("<html><body>" + htmlContent + "</body></html>"))
	if err != nil {
		return nil, err
	}
	var blocks []docBlock
	collectBlocks(doc, &blocks)
	return blocks, nil
}

var blockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "blockquote": true, "pre": true, "hr": true,
}

func collectBlocks(n *html.Node, blocks *[]docBlock) {
	if n.Type == html.ElementNode && blockTags[n.Data] {
		if n.Data == "hr" {
			*blocks = append(*blocks, docBlock{kind: "hr"})
			return
		}
		kind := n.Data
		if kind == "pre" {
			kind = "code"
		}
		if text := textContent(n); text != "" {
			*blocks = append(*blocks, docBlock{kind: kind, text: text})
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectBlocks(c, blocks)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
