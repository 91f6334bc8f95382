// Package reports renders run results on the terminal: the per-semester
// analysis table, the withdrawal registry, and the carryover listing.
package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/models"
)

// PrintAnalysis renders the semester analysis rows the way they appear on
// the workbook's ANALYSIS sheet.
func PrintAnalysis(w io.Writer, rows []mastersheet.AnalysisRow) {
	color.Yellow("\nSemester Analysis")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"Semester", "Students", "Pass", "Carry Over", "Probation",
		"Withdrawn", "Avg GPA", "Pass Rate",
	})

	for _, row := range rows {
		table.Append([]string{
			row.Semester,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Passed),
			fmt.Sprintf("%d", row.Carryover),
			fmt.Sprintf("%d", row.Probation),
			fmt.Sprintf("%d", row.Withdrawn),
			fmt.Sprintf("%.2f", row.AverageGPA),
			fmt.Sprintf("%.1f%%", row.PassRate),
		})
	}
	table.Render()
}

// PrintWithdrawals renders the withdrawal registry. Reappearances are
// flagged loudly; each one is a data-integrity problem for the exam office.
func PrintWithdrawals(w io.Writer, records []models.WithdrawalRecord) {
	if len(records) == 0 {
		color.Green("\nNo withdrawn students on record.")
		return
	}

	color.Yellow("\nWithdrawal Registry (%d students)", len(records))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Exam Number", "Name", "Withdrawn In", "Date", "Reappeared In"})

	anomalies := 0
	for _, rec := range records {
		reappeared := "-"
		if len(rec.ReappearedSemesters) > 0 {
			reappeared = strings.Join(rec.ReappearedSemesters, ", ")
			anomalies++
		}
		table.Append([]string{
			rec.ExamNumber,
			rec.Name,
			rec.WithdrawnSemester,
			rec.WithdrawnDate.Format("2006-01-02"),
			reappeared,
		})
	}
	table.Render()

	if anomalies > 0 {
		color.Red("%d withdrawn student(s) reappeared on later result sheets. Review before release.", anomalies)
	}
}

// PrintCarryovers renders outstanding carryover courses per student.
func PrintCarryovers(w io.Writer, records []models.CarryoverRecord) {
	if len(records) == 0 {
		color.Green("\nNo outstanding carryover courses.")
		return
	}

	color.Yellow("\nCarryover Records (%d students)", len(records))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Exam Number", "Name", "Course", "CU", "Original", "Resit", "Status"})

	for _, rec := range records {
		for _, fc := range rec.FailedCourses {
			resit := "-"
			if fc.ResitScore != nil {
				resit = fmt.Sprintf("%.0f", *fc.ResitScore)
			}
			table.Append([]string{
				rec.ExamNumber,
				rec.Name,
				fc.CourseCode,
				fmt.Sprintf("%d", fc.CreditUnit),
				fmt.Sprintf("%.0f", fc.OriginalScore),
				resit,
				fc.Status,
			})
		}
	}
	table.Render()
}

// PrintSummary renders the end-of-run tallies for one semester sheet.
func PrintSummary(sheet *mastersheet.Sheet) {
	counts := sheet.Summary()
	color.Cyan("\n%s / %s", sheet.Set, sheet.Semester)
	fmt.Printf("  Students:   %d\n", len(sheet.Records))
	fmt.Printf("  Pass:       %d\n", counts.Passed)
	fmt.Printf("  Carry Over: %d\n", counts.Carryover)
	fmt.Printf("  Probation:  %d\n", counts.Probation)
	fmt.Printf("  Withdrawn:  %d\n", counts.Withdrawn)
	if sheet.UpgradeMin > 0 {
		fmt.Printf("  Scores upgraded to %.0f: %d (rule: %d-49)\n",
			sheet.PassThreshold, sheet.UpgradedScores, sheet.UpgradeMin)
	}
}
