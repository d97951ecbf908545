package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// CircularLetterhead carries the institutional header and signature
// block printed on every circular.
type CircularLetterhead struct {
	Institution    string
	Office         string
	RefNumber      string
	IssuedOn       string
	Signatory      string
	SignatoryTitle string
	Address        string
}

// CircularCell is one subject entry in the date/department matrix.
type CircularCell struct {
	SubjectCode string
	SubjectName string
	ExamTime    string
}

// CircularSchedule is the date-by-department examination matrix.
type CircularSchedule struct {
	Departments []string
	Dates       []string
	Cells       map[string]map[string]CircularCell
}

// CircularRenderer produces the official examination circular PDF.
type CircularRenderer struct{}

// NewCircularRenderer constructs a circular renderer.
func NewCircularRenderer() *CircularRenderer {
	return &CircularRenderer{}
}

// Render lays out the circular: letterhead, subject line, body text,
// the schedule matrix, notes, and the signature block.
func (r *CircularRenderer) Render(head CircularLetterhead, subjectLine, body string, sched CircularSchedule, notes []string) ([]byte, error) {
	if len(sched.Departments) == 0 {
		return nil, fmt.Errorf("circular requires at least one department column")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, head.Institution, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "(Autonomous)", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, head.Office, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Ref: %s", head.RefNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", head.IssuedOn), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "BU", 12)
	pdf.CellFormat(0, 8, "CIRCULAR", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Sub: %s", subjectLine), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	lines := pdf.SplitText(body, pageWidth-30)
	for _, line := range lines {
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "EXAMINATION SCHEDULE", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	dateColWidth := 30.0
	deptColWidth := (pageWidth - 30 - dateColWidth) / float64(len(sched.Departments))

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(dateColWidth, 10, "DATE", "1", 0, "C", false, 0, "")
	for _, dept := range sched.Departments {
		pdf.CellFormat(deptColWidth, 10, dept, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, date := range sched.Dates {
		x := pdf.GetX()
		y := pdf.GetY()
		pdf.CellFormat(dateColWidth, 12, date, "1", 0, "C", false, 0, "")
		for i, dept := range sched.Departments {
			cellX := x + dateColWidth + float64(i)*deptColWidth
			pdf.Rect(cellX, y, deptColWidth, 12, "D")
			if cell, ok := sched.Cells[date][dept]; ok {
				pdf.SetXY(cellX+1, y+1)
				pdf.CellFormat(deptColWidth-2, 3.5, cell.SubjectCode, "", 2, "L", false, 0, "")
				pdf.CellFormat(deptColWidth-2, 3.5, cell.SubjectName, "", 2, "L", false, 0, "")
				pdf.CellFormat(deptColWidth-2, 3.5, cell.ExamTime, "", 2, "L", false, 0, "")
			} else {
				pdf.SetXY(cellX+1, y+4)
				pdf.CellFormat(deptColWidth-2, 4, "-", "", 0, "C", false, 0, "")
			}
		}
		pdf.SetXY(x, y+12)
	}
	pdf.Ln(6)

	if len(notes) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "IMPORTANT NOTES:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, note := range notes {
			pdf.CellFormat(0, 5, note, "", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, head.Signatory, "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, head.SignatoryTitle, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, head.Address, "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render circular: %w", err)
	}
	return buf.Bytes(), nil
}
