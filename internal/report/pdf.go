package report

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/geoattend/internal/geofence"
)

// column widths of the timesheet in mm, summing to the A4 landscape body
var timesheetWidths = []float64{38, 60, 50, 40, 40, 42}

// TimesheetPDF renders rows as an A4 landscape table with a repeating header
func TimesheetPDF(title string, rows []Row) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	// The core fonts are cp1252; translate the non-breaking space and en dash
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range timesheetHeader {
			pdf.CellFormat(timesheetWidths[i], 8, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
	}
	pdf.SetHeaderFunc(header)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No attendance records.", "", 1, "L", false, 0, "")
	}
	for i, r := range rows {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for col, v := range []string{r.Date, r.Worker, r.Worksite, r.CheckIn, r.CheckOut, r.Duration} {
			pdf.CellFormat(timesheetWidths[col], 7, tr(v), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckInURL is the link a worksite poster points workers to
func CheckInURL(publicURL string, site geofence.Worksite) string {
	return strings.TrimRight(publicURL, "/") + "/?worksite=" + url.QueryEscape(site.Name)
}

// WorksiteQR encodes link as a PNG QR code of size pixels
func WorksiteQR(link string, size int) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, size)
}

// WorksitePoster renders an A4 poster with the worksite name, a QR code
// linking to the check-in page and the boundary vertices
func WorksitePoster(site geofence.Worksite, link string) ([]byte, error) {
	qrPng, err := WorksiteQR(link, 512)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 16, tr(site.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, "Scan to check in or out", "", 1, "C", false, 0, "")

	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", imgOptions, bytes.NewReader(qrPng))
	qrSize := 120.0
	pdf.ImageOptions("qr", (210-qrSize)/2, 60, qrSize, qrSize, false, imgOptions, 0, "")

	pdf.SetXY(20, 190)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(link), "", "C", false)

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Boundary", "", 1, "L", false, 0, "")
	pdf.SetFont("Courier", "", 8)
	for i, c := range site.Boundary {
		pdf.CellFormat(0, 4, fmt.Sprintf("%2d  lng %.6f  lat %.6f", i+1, c.Lng, c.Lat), "", 1, "L", false, 0, "")
		if pdf.GetY() > 285 {
			break
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
