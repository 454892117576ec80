package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

const (
	pageMargin = 72 // one inch on letter paper
	bodyFont   = "Helvetica"
)

// Builder renders an order into an archival PDF: a typed header, the title,
// a small metadata block, the full text, and an attribution footer. The
// document metadata mirrors what later lands in the primary sink.
type Builder struct {
	now func() time.Time
}

var _ ports.ArtifactBuilder = (*Builder)(nil)

// NewBuilder returns a ready builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Render produces the PDF artifact for one order.
func (b *Builder) Render(ctx context.Context, order domain.Order) (domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}

	capturedAt := b.now().UTC()
	meta := buildMetadata(order, capturedAt)

	doc := fpdf.New("P", "pt", "Letter", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle(meta.Title, true)
	doc.SetAuthor("The White House", true)
	doc.SetSubject(order.Type.Label(), true)
	doc.SetKeywords(keywords(order), true)
	doc.SetCreator("Executive Orders Monitor", true)
	doc.SetCreationDate(capturedAt)

	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()

	pageWidth, _ := doc.GetPageSize()

	doc.SetFont(bodyFont, "B", 18)
	doc.SetTextColor(0, 0, 128)
	doc.MultiCell(0, 22, tr(strings.ToUpper(order.Type.Label())), "", "C", false)
	doc.Ln(8)

	doc.SetFont(bodyFont, "B", 14)
	doc.SetTextColor(0, 0, 0)
	doc.MultiCell(0, 18, tr(order.Title), "", "L", false)
	doc.Ln(8)

	doc.SetFont(bodyFont, "", 10)
	for _, row := range metadataRows(order, capturedAt) {
		doc.SetTextColor(100, 100, 100)
		doc.CellFormat(110, 14, tr(row.label), "", 0, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		doc.MultiCell(0, 14, tr(row.value), "", "L", false)
	}
	doc.Ln(10)

	separator(doc, pageWidth)
	doc.Ln(14)

	body := strings.TrimSpace(order.BodyText)
	if body == "" {
		body = "No content available."
	}
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if text, ok := headingText(para); ok {
			doc.SetFont(bodyFont, "B", 12)
			doc.MultiCell(0, 16, tr(text), "", "L", false)
			doc.SetFont(bodyFont, "", 11)
			doc.Ln(4)
			continue
		}
		doc.SetFont(bodyFont, "", 11)
		doc.MultiCell(0, 14, tr(para), "", "L", false)
		doc.Ln(6)
	}

	doc.Ln(10)
	separator(doc, pageWidth)
	doc.Ln(8)

	doc.SetFont(bodyFont, "", 8)
	doc.SetTextColor(100, 100, 100)
	footer := fmt.Sprintf("Archived by Executive Orders Monitor\nOriginal source: %s\nArchive timestamp: %s",
		order.URL, capturedAt.Format("2006-01-02 15:04:05 UTC"))
	doc.MultiCell(0, 11, tr(footer), "", "C", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return domain.Artifact{}, fmt.Errorf("render pdf for %s: %w", order.ID, err)
	}

	return domain.Artifact{
		Content:     buf.Bytes(),
		ContentType: "application/pdf",
		Meta:        meta,
	}, nil
}

func separator(doc *fpdf.Fpdf, pageWidth float64) {
	y := doc.GetY()
	doc.SetDrawColor(150, 150, 150)
	doc.Line(pageMargin, y, pageWidth-pageMargin, y)
}

// buildMetadata derives the upload record for one order.
func buildMetadata(order domain.Order, capturedAt time.Time) domain.Metadata {
	// Prefix the number unless the headline already carries it.
	title := order.Title
	if order.Number != "" && !strings.Contains(title, order.Number) {
		title = fmt.Sprintf("EO %s: %s", order.Number, order.Title)
	}

	src := "White House"
	if !order.PublishedAt.IsZero() {
		src += " - " + order.PublishedAt.Format("January 2, 2006")
	}

	return domain.Metadata{
		Title:       title,
		Source:      src,
		Description: fmt.Sprintf("%s scraped from %s", order.Type.Label(), order.URL),
		Language:    "eng",
		OrderID:     order.ID,
		OrderNumber: order.Number,
		OrderType:   order.Type,
		SourceURL:   order.URL,
		CapturedAt:  capturedAt,
	}
}

type metadataRow struct {
	label string
	value string
}

func metadataRows(order domain.Order, capturedAt time.Time) []metadataRow {
	rows := make([]metadataRow, 0, 4)
	if order.Number != "" {
		rows = append(rows, metadataRow{"Order Number:", order.Number})
	}
	if !order.PublishedAt.IsZero() {
		rows = append(rows, metadataRow{"Issue Date:", order.PublishedAt.Format("January 2, 2006")})
	}
	rows = append(rows,
		metadataRow{"Source URL:", order.URL},
		metadataRow{"Archived:", capturedAt.Format("2006-01-02 15:04:05 UTC")},
	)
	return rows
}

func keywords(order domain.Order) string {
	parts := []string{"executive order", "white house", "presidential action"}
	if order.Number != "" {
		parts = append(parts, "EO "+order.Number)
	}
	return strings.Join(parts, ", ")
}

var romanPrefixes = []string{"I.", "II.", "III.", "IV.", "V.", "VI.", "VII."}

// headingText reports whether a paragraph is a section heading and returns
// it with any Markdown marker stripped.
func headingText(para string) (string, bool) {
	if strings.HasPrefix(para, "#") {
		return strings.TrimSpace(strings.TrimLeft(para, "#")), true
	}
	if para == strings.ToUpper(para) && para != strings.ToLower(para) {
		return para, true
	}
	for _, prefix := range romanPrefixes {
		if strings.HasPrefix(para, prefix+" ") {
			return para, true
		}
	}
	return para, false
}
