package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/xuri/excelize/v2"

	"github.com/mtechcomputers/examresults/archive"
	"github.com/mtechcomputers/examresults/carryover"
	"github.com/mtechcomputers/examresults/catalog"
	"github.com/mtechcomputers/examresults/config"
	"github.com/mtechcomputers/examresults/grading"
	"github.com/mtechcomputers/examresults/mastersheet"
	"github.com/mtechcomputers/examresults/migrations"
	"github.com/mtechcomputers/examresults/models"
	"github.com/mtechcomputers/examresults/packaging"
	"github.com/mtechcomputers/examresults/process"
	"github.com/mtechcomputers/examresults/reconcile"
	"github.com/mtechcomputers/examresults/reports"
	"github.com/mtechcomputers/examresults/tracker"
)

const mastersheetFile = "MASTERSHEET.xlsx"

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, reading configuration from the environment")
	}
}

type app struct {
	cfg      config.Config
	catalog  *catalog.Catalog
	db       *sql.DB
	archiver *archive.Archiver

	withdrawals *tracker.WithdrawalTracker
	students    *tracker.StudentTracker
	carryovers  *tracker.CarryoverTracker

	// sheets processed this session, in semester order.
	sheets []*mastersheet.Sheet
	outDir string

	stdin *bufio.Scanner
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	cat, err := catalog.Load(cfg.CoursePath())
	if err != nil {
		log.Fatalf("course catalog: %v", err)
	}

	a := &app{
		cfg:         cfg,
		catalog:     cat,
		withdrawals: tracker.NewWithdrawalTracker(),
		students:    tracker.NewStudentTracker(),
		carryovers:  tracker.NewCarryoverTracker(),
		stdin:       bufio.NewScanner(os.Stdin),
	}

	if cfg.DB.Enabled() {
		db, err := sql.Open("postgres", cfg.DB.ConnString())
		if err != nil {
			log.Printf("archive database unavailable: %v", err)
		} else if err := db.Ping(); err != nil {
			log.Printf("archive database unreachable: %v", err)
			db.Close()
		} else {
			if err := migrations.InitSchema(db); err != nil {
				log.Printf("archive schema: %v", err)
			}
			a.db = db
			a.archiver = archive.New(db)
			defer db.Close()
		}
	}

	if !cfg.Interactive {
		a.runBatch()
		return
	}

	for {
		displayMenu(cfg)
		switch a.readLine("") {
		case "1":
			a.handleProcessSemester()
		case "2":
			a.handleCarryoverReport()
		case "3":
			a.handleResitReconciliation()
		case "4":
			reports.PrintWithdrawals(os.Stdout, a.withdrawals.Records())
		case "5":
			a.handleAnalysis()
		case "6":
			a.handlePackage()
		case "7":
			a.handleArchive()
		case "8":
			color.Green("Goodbye.")
			return
		default:
			color.Red("Invalid choice. Please try again.")
		}
	}
}

func displayMenu(cfg config.Config) {
	color.Cyan("\n=== %s Results Processing ===", cfg.Program.Name)
	fmt.Println("1. Process Semester Results")
	fmt.Println("2. Carryover Records")
	fmt.Println("3. Reconcile Resit Results")
	fmt.Println("4. Withdrawal Report")
	fmt.Println("5. Semester Analysis")
	fmt.Println("6. Package Output Folder")
	fmt.Println("7. Archive Run to Database")
	fmt.Println("8. Exit")
	fmt.Print("\nEnter your choice (1-8): ")
}

func (a *app) readLine(prompt string) string {
	if prompt != "" {
		fmt.Print(prompt)
	}
	if a.stdin.Scan() {
		return strings.TrimSpace(a.stdin.Text())
	}
	return ""
}

// runBatch processes every configured semester for the selected set without
// prompts, then packages and optionally archives the run.
func (a *app) runBatch() {
	set := a.cfg.SelectedSet
	if set == "" {
		log.Fatal("batch mode needs SELECTED_SET")
	}
	color.Cyan("Batch run: %s, semesters %s", set, strings.Join(a.cfg.Semesters, ", "))

	for _, semester := range a.cfg.Semesters {
		if err := a.processSemester(set, semester); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Printf("no raw results for %s, skipping", semester)
				continue
			}
			log.Fatalf("processing %s: %v", semester, err)
		}
	}
	if len(a.sheets) == 0 {
		log.Fatal("no semesters produced results")
	}

	if err := a.saveMastersheet(); err != nil {
		log.Fatalf("saving mastersheet: %v", err)
	}
	a.archiveLatest()
	if zipPath, err := packaging.ZipFolder(a.outDir); err != nil {
		log.Printf("packaging: %v", err)
	} else {
		color.Green("Batch packaged: %s", zipPath)
	}
}

func (a *app) handleProcessSemester() {
	set := a.cfg.SelectedSet
	if set == "" {
		set = a.readLine("Academic set (e.g. ND-2024): ")
	}
	if set == "" {
		color.Red("A set name is required.")
		return
	}

	fmt.Println("Semesters:")
	for i, key := range a.cfg.Program.SemesterKeys() {
		year, sem := a.cfg.Program.SemesterDisplay(key)
		fmt.Printf("  %d. %s %s (%s)\n", i+1, year, sem, key)
	}
	semester := a.readLine("Semester key: ")
	if a.cfg.Program.SemesterOrdinal(semester) == 0 {
		color.Red("Unknown semester %q for program %s.", semester, a.cfg.Program.Code)
		return
	}

	if err := a.processSemester(set, semester); err != nil {
		color.Red("Processing failed: %v", err)
		return
	}
	if err := a.saveMastersheet(); err != nil {
		color.Red("Saving mastersheet failed: %v", err)
	}
}

func (a *app) processSemester(set, semester string) error {
	raw := filepath.Join(a.cfg.BaseDir, set, semester+".xlsx")
	f, err := excelize.OpenFile(raw)
	if err != nil {
		return fmt.Errorf("opening raw results %s: %w", raw, err)
	}
	defer f.Close()

	sc, ok := a.catalog.Semester(semester)
	if !ok {
		return fmt.Errorf("semester %s is not in the course catalog", semester)
	}

	previous := a.sessionHistory(semester)
	if len(previous) == 0 && a.cfg.Program.SemesterOrdinal(semester) > 1 {
		previous = a.storedHistory(set, semester)
	}

	res := process.Run(f, sc, process.Options{
		Semester:      semester,
		Set:           set,
		PassThreshold: a.cfg.PassThreshold,
		UpgradeMin:    a.cfg.UpgradeMin,
		Previous:      previous,
		Withdrawals:   a.withdrawals,
	})
	for _, skipped := range res.SkippedSheets {
		color.Yellow("Sheet %s skipped: %v", skipped.Name, skipped.Err)
	}
	if len(res.Removed) > 0 {
		color.Red("%d previously withdrawn student(s) reappeared and were removed. See the withdrawal report.", len(res.Removed))
	}

	a.replaceSheet(res.Sheet)
	a.students.Track(semester, res.Sheet.Records)

	records := carryover.Identify(res.Sheet)
	for i := range records {
		a.carryovers.Put(&records[i])
	}
	if a.outDir == "" {
		stamp := time.Now().Format("20060102_150405")
		a.outDir = filepath.Join(a.cfg.BaseDir, fmt.Sprintf("RESULT_%s_%s", sanitize(set), stamp))
	}
	if len(records) > 0 {
		jsonPath, _, err := carryover.Save(filepath.Join(a.outDir, "carryover"), set, semester, records)
		if err != nil {
			return fmt.Errorf("saving carryover records: %w", err)
		}
		color.Yellow("%d carryover record(s) saved to %s", len(records), jsonPath)
	}

	reports.PrintSummary(res.Sheet)
	return nil
}

// replaceSheet inserts the sheet in semester order, replacing a previous run
// of the same semester.
func (a *app) replaceSheet(sheet *mastersheet.Sheet) {
	for i, existing := range a.sheets {
		if existing.Semester == sheet.Semester {
			a.sheets[i] = sheet
			return
		}
	}
	a.sheets = append(a.sheets, sheet)
	ord := func(s *mastersheet.Sheet) int { return a.cfg.Program.SemesterOrdinal(s.Semester) }
	for i := len(a.sheets) - 1; i > 0 && ord(a.sheets[i]) < ord(a.sheets[i-1]); i-- {
		a.sheets[i], a.sheets[i-1] = a.sheets[i-1], a.sheets[i]
	}
}

// sessionHistory builds each student's (GPA, credit-unit) history from the
// sheets already processed this session. Only semesters before upTo count,
// so re-processing a semester does not fold its previous run into its own
// CGPA.
func (a *app) sessionHistory(upTo string) map[string][]grading.SemesterWeight {
	limit := a.cfg.Program.SemesterOrdinal(upTo)
	history := make(map[string][]grading.SemesterWeight)
	for _, sheet := range a.sheets {
		if a.cfg.Program.SemesterOrdinal(sheet.Semester) >= limit {
			continue
		}
		for _, rec := range sheet.Records {
			key := tracker.NormalizeExamNumber(rec.ExamNumber)
			history[key] = append(history[key], grading.SemesterWeight{GPA: rec.GPA, CU: rec.TotalCU})
		}
	}
	return history
}

// storedHistory recovers GPA history from the newest saved mastersheet of
// the set when this session has not processed the earlier semesters itself.
func (a *app) storedHistory(set, upTo string) map[string][]grading.SemesterWeight {
	source, isZip, err := process.FindSource(a.cfg.BaseDir, set)
	if err != nil || isZip {
		return nil
	}
	f, err := excelize.OpenFile(filepath.Join(source, mastersheetFile))
	if err != nil {
		return nil
	}
	defer f.Close()
	return process.LoadPreviousGPAs(f, a.cfg.Program.SemesterKeys(), upTo, a.catalog, a.cfg.PassThreshold)
}

func (a *app) saveMastersheet() error {
	if len(a.sheets) == 0 || a.outDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.outDir, mastersheetFile)
	if err := mastersheet.WriteWorkbook(path, a.sheets); err != nil {
		return err
	}
	color.Green("Mastersheet written: %s", path)
	return nil
}

func (a *app) handleCarryoverReport() {
	records := a.carryovers.Records()
	out := make([]models.CarryoverRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, *rec)
	}
	reports.PrintCarryovers(os.Stdout, out)
}

func (a *app) handleResitReconciliation() {
	semester := a.readLine("Semester key of the results being resat: ")
	sc, ok := a.catalog.Semester(semester)
	if !ok {
		color.Red("Unknown semester %q.", semester)
		return
	}
	resitPath := a.readLine("Path to the resit results file: ")
	rows, err := reconcile.LoadResitFile(resitPath, catalog.NewMatcher(sc))
	if err != nil {
		color.Red("Loading resit file: %v", err)
		return
	}
	if len(rows) == 0 {
		color.Yellow("Resit file has no usable rows.")
		return
	}

	sheetPath, sheet, err := a.findSemesterSheet(semester, sc)
	if err != nil {
		color.Red("Locating mastersheet: %v", err)
		return
	}

	outcome := reconcile.Reconcile(sheet, rows)
	for _, st := range outcome.Students {
		fmt.Printf("  %s: GPA %.2f, %s, %s\n",
			st.ExamNumber, st.NewGPA, st.NewStatus, st.Remarks)
	}
	for _, skipped := range outcome.Skipped {
		color.Yellow("  %s: not on the semester sheet, skipped", skipped.ExamNumber)
	}
	if len(outcome.Updates) == 0 {
		color.Yellow("No resit scores were accepted; the mastersheet is unchanged.")
		return
	}

	updater := &mastersheet.Updater{Catalog: a.catalog, PassThreshold: a.cfg.PassThreshold}
	result, err := updater.Apply(sheetPath, semester, outcome.Updates)
	if err != nil {
		if result != nil && result.RolledBack {
			color.Red("Update failed and was rolled back from %s: %v", result.BackupPath, err)
		} else {
			color.Red("Update failed: %v", err)
		}
		return
	}
	color.Green("Mastersheet updated: %d student(s), %d score(s). Backup at %s.",
		result.StudentsUpdated, result.CoursesUpdated, result.BackupPath)

	kept := carryover.ApplyOutcome(a.carryoverRecords(semester), outcome, a.cfg.PassThreshold)
	a.refreshCarryovers(semester, kept)
}

// findSemesterSheet locates the newest mastersheet for the selected set and
// reads the requested semester sheet out of it, extracting a packaged ZIP
// when that is all that remains.
func (a *app) findSemesterSheet(semester string, sc *catalog.SemesterCourses) (string, *mastersheet.Sheet, error) {
	if a.outDir != "" {
		path := filepath.Join(a.outDir, mastersheetFile)
		if sheet, err := openSemesterSheet(path, semester, sc, a.cfg.PassThreshold); err == nil {
			return path, sheet, nil
		}
	}

	set := a.cfg.SelectedSet
	if set == "" {
		set = a.readLine("Academic set to search for: ")
	}
	source, isZip, err := process.FindSource(a.cfg.BaseDir, set)
	if err != nil {
		return "", nil, err
	}
	if isZip {
		extracted := strings.TrimSuffix(source, ".zip")
		if err := packaging.Unzip(source, extracted); err != nil {
			return "", nil, err
		}
		source = extracted
		color.Yellow("Extracted %s for updating. Re-package when done.", source)
	}
	path := filepath.Join(source, mastersheetFile)
	sheet, err := openSemesterSheet(path, semester, sc, a.cfg.PassThreshold)
	if err != nil {
		return "", nil, err
	}
	return path, sheet, nil
}

func openSemesterSheet(path, semester string, sc *catalog.SemesterCourses, passThreshold float64) (*mastersheet.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mastersheet.ReadSheet(f, semester, sc, passThreshold)
}

func (a *app) carryoverRecords(semester string) []models.CarryoverRecord {
	var out []models.CarryoverRecord
	for _, rec := range a.carryovers.Records() {
		if rec.Semester == semester {
			out = append(out, *rec)
		}
	}
	return out
}

func (a *app) refreshCarryovers(semester string, kept []models.CarryoverRecord) {
	for _, rec := range a.carryoverRecords(semester) {
		a.carryovers.Remove(rec.ExamNumber, semester)
	}
	for i := range kept {
		a.carryovers.Put(&kept[i])
	}
}

func (a *app) handleAnalysis() {
	if len(a.sheets) == 0 {
		color.Yellow("No semesters processed this session yet.")
		return
	}
	reports.PrintAnalysis(os.Stdout, mastersheet.BuildAnalysis(a.sheets))
}

func (a *app) handlePackage() {
	if a.outDir == "" {
		color.Yellow("Nothing to package yet.")
		return
	}
	if err := a.saveMastersheet(); err != nil {
		color.Red("Saving mastersheet: %v", err)
		return
	}
	zipPath, err := packaging.ZipFolder(a.outDir)
	if err != nil {
		color.Red("Packaging: %v", err)
		return
	}
	color.Green("Packaged: %s", zipPath)
	a.outDir = ""
}

func (a *app) handleArchive() {
	a.archiveLatest()
}

func (a *app) archiveLatest() {
	if a.archiver == nil {
		color.Yellow("Archive database is not configured (set DB_HOST).")
		return
	}
	if len(a.sheets) == 0 {
		color.Yellow("No processed semester to archive.")
		return
	}
	sheet := a.sheets[len(a.sheets)-1]

	var carryovers []models.CarryoverRecord
	for _, rec := range a.carryovers.Records() {
		carryovers = append(carryovers, *rec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	summary, err := a.archiver.ArchiveRun(ctx, a.cfg.Program.Code, sheet, a.withdrawals.Records(), carryovers)
	if err != nil {
		log.Printf("archive failed, workbook remains authoritative: %v", err)
		return
	}
	color.Green("Archived run %s (%d records).", summary.RunID, summary.Records)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}
