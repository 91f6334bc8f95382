package mastersheet

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/tracker"
)

// Protocol steps, in execution order.
type Step string

const (
	StepBackup            Step = "Backup"
	StepLoad              Step = "SingleSessionLoad"
	StepApplyScoreUpdates Step = "ApplyScoreUpdates"
	StepRecomputeRecords  Step = "RecomputeAggregates"
	StepRecomputeSummary  Step = "RecomputeSummarySection"
	StepRecomputeDerived  Step = "RecomputeDerivedSheets"
	StepSortAndSerials    Step = "ApplySortAndSerials"
	StepSave              Step = "Save"
	StepVerify            Step = "Verify"
)

// StepResult records one protocol step's outcome for the run report.
type StepResult struct {
	Step   Step
	OK     bool
	Detail string
}

// UpdateResult is the full report of one protocol run.
type UpdateResult struct {
	Committed       bool
	RolledBack      bool
	BackupPath      string
	StudentsUpdated int
	CoursesUpdated  int
	Steps           []StepResult
	MissingStudents []string
	MissingCourses  []string
}

func (r *UpdateResult) step(s Step, ok bool, detail string) {
	r.Steps = append(r.Steps, StepResult{Step: s, OK: ok, Detail: detail})
}

// IntegrityError reports that the saved workbook failed post-save
// verification and the pre-update backup was restored.
type IntegrityError struct {
	Path   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("workbook integrity check failed for %s: %s", e.Path, e.Reason)
}

// verifySizeFloor is the sanity floor for a saved workbook. An empty xlsx
// container is ~3.5 KiB; any populated mastersheet exceeds 4 KiB.
const verifySizeFloor = 4 * 1024

// Updater runs the mastersheet update protocol: the single writer of the
// authoritative workbook. The whole mutation happens against one in-memory
// workbook session with no intermediate saves.
type Updater struct {
	Catalog       *catalog.Catalog
	PassThreshold float64
	// SizeFloor overrides verifySizeFloor when nonzero (tests).
	SizeFloor int64
}

// Apply runs the protocol against the workbook at path for one semester:
// backup, single-session load, score updates, aggregate and summary
// recomputation, derived-sheet rebuild, sort, save, verify. On verify
// failure the backup is restored and the result reports Committed=false.
//
// updates maps normalized exam number -> course code -> new score. An empty
// map is valid: everything is recomputed from current cell values, so the
// run is idempotent.
func (u *Updater) Apply(path, semesterKey string, updates map[string]map[string]float64) (*UpdateResult, error) {
	res := &UpdateResult{}

	// Backup before any mutation. Failure is a warning, not a stop.
	backupPath, err := backupFile(path)
	if err != nil {
		log.Printf("mastersheet: backup failed for %s: %v", path, err)
		res.step(StepBackup, false, err.Error())
	} else {
		res.BackupPath = backupPath
		res.step(StepBackup, true, backupPath)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		res.step(StepLoad, false, err.Error())
		return res, fmt.Errorf("opening mastersheet %s: %w", path, err)
	}
	defer f.Close()

	sheets, target, err := u.loadSemesterSheets(f, semesterKey)
	if err != nil {
		res.step(StepLoad, false, err.Error())
		return res, err
	}
	res.step(StepLoad, true, fmt.Sprintf("%d semester sheets", len(sheets)))

	u.applyScoreUpdates(target, updates, res)
	res.step(StepApplyScoreUpdates, true,
		fmt.Sprintf("%d scores across %d students", res.CoursesUpdated, res.StudentsUpdated))

	// Aggregates are re-derived from the post-update scores, never from
	// cached pre-update values.
	target.Recompute()
	u.recomputeCGPAs(sheets)
	res.step(StepRecomputeRecords, true, "")
	res.step(StepRecomputeSummary, true, "")

	if err := writeDerivedSheets(f, sheets); err != nil {
		res.step(StepRecomputeDerived, false, err.Error())
		return res, err
	}
	res.step(StepRecomputeDerived, true, "")

	target.Sort()
	res.step(StepSortAndSerials, true, "")

	// Only the target semester sheet is rewritten; every other sheet's
	// cells stay untouched.
	if err := rewriteSheet(f, target); err != nil {
		res.step(StepSave, false, err.Error())
		return res, err
	}

	if err := f.Save(); err != nil {
		res.step(StepSave, false, err.Error())
		return res, fmt.Errorf("saving mastersheet: %w", err)
	}
	res.step(StepSave, true, "")

	if reason := u.verify(path, semesterKey); reason != "" {
		res.step(StepVerify, false, reason)
		if res.BackupPath != "" {
			if rbErr := copyFile(res.BackupPath, path); rbErr != nil {
				log.Printf("mastersheet: rollback failed: %v", rbErr)
			} else {
				res.RolledBack = true
				color.Red("Mastersheet verification failed, restored backup %s", res.BackupPath)
			}
		}
		return res, &IntegrityError{Path: path, Reason: reason}
	}
	res.step(StepVerify, true, "")
	res.Committed = true
	return res, nil
}

// loadSemesterSheets reads every semester sheet of the workbook in catalog
// order and locates the update target.
func (u *Updater) loadSemesterSheets(f *excelize.File, semesterKey string) ([]*Sheet, *Sheet, error) {
	var sheets []*Sheet
	var target *Sheet

	names := f.GetSheetList()
	for _, key := range u.Catalog.Semesters() {
		sc, _ := u.Catalog.Semester(key)
		name := matchSheetName(names, key)
		if name == "" {
			continue
		}
		s, err := ReadSheet(f, name, sc, u.PassThreshold)
		if err != nil {
			log.Printf("mastersheet: skipping sheet %s: %v", name, err)
			continue
		}
		sheets = append(sheets, s)
		if strings.EqualFold(key, semesterKey) || strings.EqualFold(name, semesterKey) {
			target = s
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("no sheet found for semester %s", semesterKey)
	}
	return sheets, target, nil
}

// applyScoreUpdates writes only the courses present in the update map; all
// other scores are untouched.
func (u *Updater) applyScoreUpdates(target *Sheet, updates map[string]map[string]float64, res *UpdateResult) {
	units := target.Units()
	for examNo, courses := range updates {
		rec := target.Find(examNo)
		if rec == nil {
			res.MissingStudents = append(res.MissingStudents, tracker.NormalizeExamNumber(examNo))
			continue
		}
		applied := 0
		for code, score := range courses {
			code = strings.ToUpper(strings.TrimSpace(code))
			if _, known := units[code]; !known {
				res.MissingCourses = append(res.MissingCourses, code)
				continue
			}
			rec.Scores[code] = score
			applied++
		}
		if applied > 0 {
			res.StudentsUpdated++
			res.CoursesUpdated += applied
		}
	}
}

// recomputeCGPAs rebuilds every record's CGPA from the semester sequence up
// to and including the record's own semester.
func (u *Updater) recomputeCGPAs(sheets []*Sheet) {
	type hist struct {
		gpa float64
		cu  int
	}
	perStudent := make(map[string][]hist)
	for _, s := range sheets {
		for _, rec := range s.Records {
			key := tracker.NormalizeExamNumber(rec.ExamNumber)
			perStudent[key] = append(perStudent[key], hist{rec.GPA, rec.TotalCU})
			var points float64
			var credits int
			for _, h := range perStudent[key] {
				points += h.gpa * float64(h.cu)
				credits += h.cu
			}
			if credits > 0 {
				rec.CGPA = round2(points / float64(credits))
			} else {
				rec.CGPA = rec.GPA
			}
		}
	}
}

// rewriteSheet replaces a semester sheet's content with the in-memory state.
func rewriteSheet(f *excelize.File, s *Sheet) error {
	name := matchSheetName(f.GetSheetList(), s.Semester)
	if name == "" {
		name = s.Semester
	}
	if err := f.DeleteSheet(name); err != nil {
		return err
	}
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	saved := s.Semester
	s.Semester = name
	err := writeSemesterSheet(f, s)
	s.Semester = saved
	return err
}

// verify reopens the saved file and confirms it parses, clears the size
// floor and still carries the target sheet. Empty string means pass.
func (u *Updater) verify(path, semesterKey string) string {
	floor := u.SizeFloor
	if floor == 0 {
		floor = verifySizeFloor
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("stat: %v", err)
	}
	if info.Size() < floor {
		return fmt.Sprintf("file size %d below sanity floor %d", info.Size(), floor)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Sprintf("reopen: %v", err)
	}
	defer f.Close()
	name := matchSheetName(f.GetSheetList(), semesterKey)
	if name == "" {
		return fmt.Sprintf("semester sheet %s missing after save", semesterKey)
	}
	if _, err := f.GetRows(name); err != nil {
		return fmt.Sprintf("sheet %s unreadable: %v", name, err)
	}
	return ""
}

func matchSheetName(names []string, semesterKey string) string {
	for _, n := range names {
		if strings.EqualFold(n, semesterKey) {
			return n
		}
	}
	norm := catalog.Normalize(semesterKey)
	for _, n := range names {
		if strings.Contains(catalog.Normalize(n), norm) {
			return n
		}
	}
	return ""
}

func backupFile(path string) (string, error) {
	backup := fmt.Sprintf("%s.bak-%s", path, time.Now().Format("20060102-150405"))
	if err := copyFile(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
