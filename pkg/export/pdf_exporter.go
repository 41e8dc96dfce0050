package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var gradeColumns = []struct {
	title string
	width float64
	align string
}{
	{"Subject", 50, "L"},
	{"Code", 22, "C"},
	{"Score", 28, "C"},
	{"Score/20", 25, "C"},
	{"Type", 40, "C"},
	{"Coefficient", 25, "C"},
}

// PDFExporter lays out A4 report cards.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderStudent produces a standalone report card for one student.
func (e *PDFExporter) RenderStudent(report ClassReport, student StudentReport) ([]byte, error) {
	pdf := newReportPDF()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	writeReportCard(pdf, tr, report, student)
	return output(pdf)
}

// RenderClass produces one document holding every student, each starting on a new page.
func (e *PDFExporter) RenderClass(report ClassReport) ([]byte, error) {
	if len(report.Students) == 0 {
		return nil, fmt.Errorf("render class: no students")
	}
	pdf := newReportPDF()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, student := range report.Students {
		pdf.AddPage()
		writeReportCard(pdf, tr, report, student)
	}
	return output(pdf)
}

func newReportPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	return pdf
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeReportCard(pdf *gofpdf.Fpdf, tr func(string) string, report ClassReport, student StudentReport) {
	if report.SchoolName != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(report.SchoolName), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "REPORT CARD", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	info := [][2]string{
		{"Full name", student.FullName()},
		{"Student number", student.StudentNumber},
		{"Class", report.ClassName},
		{"Semester", report.Semester},
		{"Academic year", report.AcademicYear},
	}
	for _, row := range info {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, tr(row[0]+":"), "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(145, 7, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "GRADE DETAILS", "", 1, "L", false, 0, "")

	if len(student.Lines) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No grades recorded for this semester.", "", 1, "L", false, 0, "")
	} else {
		writeGradeTable(pdf, tr, student)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Rank: "+formatRank(student.Rank, student.ClassSize), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "GENERAL APPRECIATION", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, tr(student.MentionText), "", "L", false)
	if text := strings.TrimSpace(student.Appreciation); text != "" {
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Generated on "+report.GeneratedAt.Format("02/01/2006"), "", 1, "R", false, 0, "")
}

func writeGradeTable(pdf *gofpdf.Fpdf, tr func(string) string, student StudentReport) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(54, 96, 146)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range gradeColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 9)
	for _, line := range student.Lines {
		cells := []string{
			line.SubjectName,
			line.SubjectCode,
			formatNumber(line.Score) + "/" + formatNumber(line.MaxScore),
			fmt.Sprintf("%.2f", line.Normalized),
			line.Kind,
			formatNumber(line.Coefficient),
		}
		for i, col := range gradeColumns {
			pdf.CellFormat(col.width, 7, tr(cells[i]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	labelWidth := gradeColumns[0].width + gradeColumns[1].width + gradeColumns[2].width
	valueWidth := gradeColumns[3].width + gradeColumns[4].width + gradeColumns[5].width
	average := "-"
	if student.Average != nil {
		average = formatAverage(student.Average) + "/20"
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(220, 230, 241)
	pdf.CellFormat(labelWidth, 8, "OVERALL AVERAGE", "1", 0, "R", true, 0, "")
	pdf.CellFormat(valueWidth, 8, average, "1", 1, "C", true, 0, "")
}
