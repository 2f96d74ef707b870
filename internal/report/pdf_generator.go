package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/pes_analyzer_go/internal/analysis"
)

const (
	pdfPageWidth    = 210.0 // A4 portrait, mm
	pdfPageHeight   = 297.0
	pdfMargin       = 15.0
	pdfContentWidth = pdfPageWidth - 2*pdfMargin
)

// ReportInput is everything BuildPDFReport lays out. Either half may be
// missing; the report then says so in place of that section.
type ReportInput struct {
	GridFile   string
	Grid       *analysis.EnergyGrid
	ContourPNG []byte

	PESFile string
	Fit     *analysis.MorseFit
	FitPNG  []byte

	Generated time.Time
}

// pdfStyler holds reusable styling and the flowing Y position.
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	tr          func(string) string
	styles      map[string]func()
	lineHeight  float64
	currentY    float64
	pageBottom  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""), // core fonts are cp1252
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageBottom:  pdfPageHeight - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	return s
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageBottom {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text, styleName, align string) {
	s.applyStyle(styleName)
	s.checkAddPage(s.lineHeight)
	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, s.tr(text), "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

// addTable draws a two-column key/value table.
func (s *pdfStyler) addTable(headers [2]string, rows [][2]string) {
	widths := [2]float64{0.45 * pdfContentWidth, 0.55 * pdfContentWidth}
	s.checkAddPage(s.lineHeight * float64(len(rows)+1))

	x := pdfMargin
	s.applyStyle("tableHeader")
	for i, h := range headers {
		s.pdf.SetXY(x, s.currentY)
		s.pdf.CellFormat(widths[i], s.lineHeight, s.tr(h), "1", 0, "C", true, 0, "")
		x += widths[i]
	}
	s.currentY += s.lineHeight

	s.applyStyle("tableCell")
	for _, row := range rows {
		s.checkAddPage(s.lineHeight)
		x = pdfMargin
		for i, cell := range row {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, s.tr(cell), "1", 0, "L", false, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width, height float64, caption string) {
	s.pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(imageBytes))
	if width > pdfContentWidth {
		height *= pdfContentWidth / width
		width = pdfContentWidth
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.ImageOptions(imageName, x, s.currentY, width, height, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

// BuildPDFReport writes a PDF with the grid minimum, the Morse fit
// parameters, and both plots.
func BuildPDFReport(filepath string, in ReportInput) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	styler := newPDFStyler(pdf)
	styler.newPage()

	styler.writeParagraph("Energy Surface and Bond Curve Report", "h1", "C")
	if !in.Generated.IsZero() {
		styler.writeParagraph(fmt.Sprintf("Generated %s", in.Generated.Format(time.RFC1123)), "normal", "C")
	}
	styler.addSpacer(5)

	styler.writeParagraph("Variational energy surface", "h2", "L")
	if in.Grid == nil {
		styler.writeParagraph("No energy grid was supplied.", "normal", "L")
	} else {
		rows := [][2]string{
			{"Source file", in.GridFile},
			{"Grid size", fmt.Sprintf("%d x %d", in.Grid.Size(), in.Grid.Size())},
		}
		lo, hi := in.Grid.MeanRange()
		rows = append(rows, [2]string{"Mean energy range", fmt.Sprintf("%.6f .. %.6f", lo, hi)})
		if best, ok := in.Grid.Minimum(); ok {
			rows = append(rows,
				[2]string{"Lowest mean energy", fmt.Sprintf("%.6f ± %.6f", best.Mean, best.Std)},
				[2]string{"At (c, alpha)", fmt.Sprintf("(%.4f, %.4f)", best.Param1, best.Param2)},
			)
		}
		styler.addTable([2]string{"Quantity", "Value"}, rows)
		styler.addSpacer(4)
		if len(in.ContourPNG) > 0 {
			w := pdfContentWidth * 0.9
			styler.addImage(in.ContourPNG, "contour", w, w*0.75, "Mean energy over the trial wave function parameters")
		}
	}

	styler.addSpacer(4)
	styler.writeParagraph("Morse fit of the bond energy curve", "h2", "L")
	if in.Fit == nil {
		styler.writeParagraph("No bond curve fit was supplied.", "normal", "L")
	} else {
		styler.addTable([2]string{"Parameter", "Value"}, [][2]string{
			{"Source file", in.PESFile},
			{"De (eV)", fmt.Sprintf("%.6f", in.Fit.De)},
			{"a (1/Å)", fmt.Sprintf("%.6f", in.Fit.A)},
			{"r0 (Å, fixed)", fmt.Sprintf("%.4f", in.Fit.R0)},
			{"Points", fmt.Sprintf("%d", in.Fit.Points)},
			{"RMSE (eV)", fmt.Sprintf("%.3e", in.Fit.RMSE)},
			{"R²", fmt.Sprintf("%.6f", in.Fit.RSquared)},
			{"Method", in.Fit.Method},
		})
		styler.addSpacer(4)
		if len(in.FitPNG) > 0 {
			w := pdfContentWidth * 0.9
			styler.addImage(in.FitPNG, "fit", w, w*0.75, "Bond energy data and fitted Morse curve")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out PDF: %w", err)
	}
	return pdf.OutputFileAndClose(filepath)
}
