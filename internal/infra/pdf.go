package infra

// pdf.go — withdrawal slip for a sortie using go-pdf/fpdf.
// A5 portrait page with:
//   - facility header and slip title
//   - sortie date, issuer and reference
//   - item table (product, quantity)
//   - QR code carrying the sortie id, for scanning the paper slip back in
//   - signature boxes

import (
	"bytes"
	"fmt"

	"economat/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// SlipGenerator renders sortie slips. Title is printed in the header.
type SlipGenerator struct {
	Title string
}

func NewSlipGenerator(title string) *SlipGenerator {
	if title == "" {
		title = "Economat"
	}
	return &SlipGenerator{Title: title}
}

// SortieSlip returns the PDF bytes of the withdrawal slip.
func (g *SlipGenerator) SortieSlip(s *model.Sortie) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, g.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Withdrawal slip", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Sortie info + QR ──────────────────────────────────────────────────────
	qr, err := qrcode.Encode(s.ID.String(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("pdf: qr code: %w", err)
	}
	imgName := "qr_" + s.ID.String()
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	top := pdf.GetY()
	pdf.ImageOptions(imgName, pageW-10-28, top, 28, 28, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	infoW := contentW - 32
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(infoW, 5, "Date: "+s.Date.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	issuer := s.IssuerName
	if issuer == "" {
		issuer = "-"
	}
	pdf.CellFormat(infoW, 5, "Issued by: "+issuer, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(infoW, 5, "Ref: "+s.ID.String(), "", 1, "L", false, 0, "")
	if !s.Applied {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(infoW, 5, "NOT APPLIED TO STOCK", "", 1, "L", false, 0, "")
	}
	pdf.SetY(top + 30)

	// ── Items ─────────────────────────────────────────────────────────────────
	col1 := contentW * 0.10
	col2 := contentW * 0.65
	col3 := contentW * 0.25

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "#", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col2, 6, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Quantity", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	total := 0
	for i, item := range s.Items {
		name := item.ProductName
		if len(name) > 48 {
			name = name[:47] + "."
		}
		pdf.CellFormat(col1, 6, fmt.Sprintf("%d", i+1), "", 0, "C", false, 0, "")
		pdf.CellFormat(col2, 6, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 6, fmt.Sprintf("%d", item.Quantity), "", 1, "R", false, 0, "")
		total += item.Quantity
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "Total units", "T", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, fmt.Sprintf("%d", total), "T", 1, "R", false, 0, "")

	// ── Signatures ────────────────────────────────────────────────────────────
	pdf.Ln(12)
	half := contentW / 2
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(half, 5, "Storekeeper", "", 0, "C", false, 0, "")
	pdf.CellFormat(half, 5, "Receiver", "", 1, "C", false, 0, "")
	pdf.Ln(14)
	pdf.CellFormat(half, 5, "____________________", "", 0, "C", false, 0, "")
	pdf.CellFormat(half, 5, "____________________", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
