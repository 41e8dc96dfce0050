package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	detailSheet  = "Grades by Subject"
	headerFill   = "366092"
	maxSheetName = 31
)

var (
	summaryHeaders = []interface{}{"N°", "Surname", "Given name", "Student number", "Average", "Rank", "Mention", "Grade count"}
	detailHeaders  = []interface{}{"Student", "Student number", "Subject", "Code", "Score", "Score/20", "Type", "Date", "Coefficient"}
	studentHeaders = []interface{}{"Subject", "Code", "Score", "Score/20", "Type", "Date", "Coefficient"}
)

// XLSXExporter writes a class workbook: a ranked summary, a flat grade list and one sheet per student.
type XLSXExporter struct{}

// NewXLSXExporter constructs a spreadsheet exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render builds the workbook for the class report.
func (e *XLSXExporter) Render(report ClassReport) ([]byte, error) {
	if len(report.Students) == 0 {
		return nil, fmt.Errorf("render workbook: no students")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	w := &workbook{file: f, header: headerStyle, title: titleStyle}
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := w.writeSummary(report); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, fmt.Errorf("create detail sheet: %w", err)
	}
	if err := w.writeDetail(report); err != nil {
		return nil, err
	}

	names := newSheetNames(summarySheet, detailSheet)
	for _, student := range report.Students {
		sheet := names.claim(studentSheetName(student))
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := w.writeStudent(sheet, report, student); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type workbook struct {
	file   *excelize.File
	header int
	title  int
}

func (w *workbook) writeSummary(report ClassReport) error {
	title := fmt.Sprintf("Report cards - %s", report.ClassName)
	subtitle := fmt.Sprintf("Semester %s - Academic year %s", report.Semester, report.AcademicYear)
	if err := w.writeTitle(summarySheet, title, subtitle); err != nil {
		return err
	}
	if err := w.writeHeader(summarySheet, 4, summaryHeaders); err != nil {
		return err
	}
	for i, student := range byRank(report.Students) {
		row := []interface{}{
			i + 1,
			student.LastName,
			student.FirstName,
			student.StudentNumber,
			averageCell(student.Average),
			rankCell(student.Rank),
			student.Mention,
			len(student.Lines),
		}
		if err := w.setRow(summarySheet, i+5, row); err != nil {
			return err
		}
	}
	return w.file.SetColWidth(summarySheet, "A", "H", 16)
}

func (w *workbook) writeDetail(report ClassReport) error {
	if err := w.writeHeader(detailSheet, 1, detailHeaders); err != nil {
		return err
	}
	rowIdx := 2
	for _, student := range report.Students {
		for _, line := range student.Lines {
			row := []interface{}{
				student.FullName(),
				student.StudentNumber,
				line.SubjectName,
				line.SubjectCode,
				formatNumber(line.Score) + "/" + formatNumber(line.MaxScore),
				round2(line.Normalized),
				line.Kind,
				line.EvaluatedOn.Format("02/01/2006"),
				line.Coefficient,
			}
			if err := w.setRow(detailSheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return w.file.SetColWidth(detailSheet, "A", "I", 16)
}

func (w *workbook) writeStudent(sheet string, report ClassReport, student StudentReport) error {
	subtitle := fmt.Sprintf("%s - %s - Semester %s - %s", student.StudentNumber, report.ClassName, report.Semester, report.AcademicYear)
	if err := w.writeTitle(sheet, "REPORT CARD - "+student.FullName(), subtitle); err != nil {
		return err
	}
	if err := w.writeHeader(sheet, 4, studentHeaders); err != nil {
		return err
	}
	rowIdx := 5
	if len(student.Lines) == 0 {
		if err := w.setRow(sheet, rowIdx, []interface{}{"No grades recorded for this semester."}); err != nil {
			return err
		}
		rowIdx++
	}
	for _, line := range student.Lines {
		row := []interface{}{
			line.SubjectName,
			line.SubjectCode,
			formatNumber(line.Score) + "/" + formatNumber(line.MaxScore),
			round2(line.Normalized),
			line.Kind,
			line.EvaluatedOn.Format("02/01/2006"),
			line.Coefficient,
		}
		if err := w.setRow(sheet, rowIdx, row); err != nil {
			return err
		}
		rowIdx++
	}
	rowIdx++
	footer := [][]interface{}{
		{"Overall average", averageCell(student.Average)},
		{"Rank", formatRank(student.Rank, student.ClassSize)},
		{"Mention", student.Mention},
		{"Appreciation", strings.TrimSpace(strings.Join([]string{student.MentionText, student.Appreciation}, " "))},
	}
	for _, row := range footer {
		if err := w.setRow(sheet, rowIdx, row); err != nil {
			return err
		}
		rowIdx++
	}
	return w.file.SetColWidth(sheet, "A", "G", 16)
}

func (w *workbook) writeTitle(sheet, title, subtitle string) error {
	if err := w.file.SetCellValue(sheet, "A1", title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := w.file.SetCellStyle(sheet, "A1", "A1", w.title); err != nil {
		return fmt.Errorf("style title: %w", err)
	}
	if err := w.file.SetCellValue(sheet, "A2", subtitle); err != nil {
		return fmt.Errorf("write subtitle: %w", err)
	}
	return nil
}

func (w *workbook) writeHeader(sheet string, row int, headers []interface{}) error {
	if err := w.setRow(sheet, row, headers); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := w.file.SetCellStyle(sheet, first, last, w.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

func (w *workbook) setRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// byRank orders ranked students first by rank, then the unranked ones in class order.
func byRank(students []StudentReport) []StudentReport {
	ordered := make([]StudentReport, len(students))
	copy(ordered, students)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Rank, ordered[j].Rank
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri < *rj
		}
	})
	return ordered
}

func averageCell(avg *float64) interface{} {
	if avg == nil {
		return ""
	}
	return round2(*avg)
}

func rankCell(rank *int) interface{} {
	if rank == nil {
		return ""
	}
	return *rank
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func studentSheetName(student StudentReport) string {
	return truncateRunes(student.LastName, 10) + "_" + truncateRunes(student.FirstName, 10)
}

func truncateRunes(value string, n int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

type sheetNames map[string]struct{}

func newSheetNames(reserved ...string) sheetNames {
	s := make(sheetNames)
	for _, name := range reserved {
		s[strings.ToLower(name)] = struct{}{}
	}
	return s
}

// claim cleans a sheet name and makes it unique within the workbook.
func (s sheetNames) claim(raw string) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, raw)
	base = strings.Trim(truncateRunes(base, maxSheetName), "' ")
	if base == "" || base == "_" {
		base = "Student"
	}

	candidate := base
	for i := 2; ; i++ {
		if _, taken := s[strings.ToLower(candidate)]; !taken {
			break
		}
		suffix := fmt.Sprintf("_%d", i)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	s[strings.ToLower(candidate)] = struct{}{}
	return candidate
}
