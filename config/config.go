package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default processing parameters
const (
	DefaultPassThreshold = 50.0
	DefaultBaseDir       = "EXAMS_INTERNAL"
)

// Program identifies one academic program and the shape of its curriculum.
type Program struct {
	Code          string
	Name          string
	SemesterCount int
	KeyPrefix     string
	CourseFile    string
}

var programs = []Program{
	{
		Code:          "ND",
		Name:          "National Diploma",
		SemesterCount: 4,
		KeyPrefix:     "ND-",
		CourseFile:    "course-code-creditUnit.xlsx",
	},
	{
		Code:          "BN",
		Name:          "Basic Nursing",
		SemesterCount: 6,
		KeyPrefix:     "BN-",
		CourseFile:    "bn-course-code-creditUnit.xlsx",
	},
	{
		Code:          "BM",
		Name:          "Basic Midwifery",
		SemesterCount: 6,
		KeyPrefix:     "BM-",
		CourseFile:    "bm-course-code-creditUnit.xlsx",
	},
}

// ProgramByCode resolves a program from its code (case-insensitive).
func ProgramByCode(code string) (Program, error) {
	clean := strings.ToUpper(strings.TrimSpace(code))
	for _, p := range programs {
		if p.Code == clean {
			return p, nil
		}
	}
	return Program{}, fmt.Errorf("unknown program: %s", code)
}

// Programs returns all known programs in registry order.
func Programs() []Program {
	out := make([]Program, len(programs))
	copy(out, programs)
	return out
}

var yearWords = []string{"FIRST", "SECOND", "THIRD", "FOURTH"}
var yearDisplay = []string{"YEAR ONE", "YEAR TWO", "YEAR THREE", "YEAR FOUR"}

// SemesterKey returns the canonical key for the n-th semester (1-based),
// e.g. "ND-FIRST-YEAR-SECOND-SEMESTER" for n=2 of the ND program.
func (p Program) SemesterKey(n int) string {
	year := (n - 1) / 2
	sem := (n - 1) % 2
	return fmt.Sprintf("%s%s-YEAR-%s-SEMESTER", p.KeyPrefix, yearWords[year], yearWords[sem])
}

// SemesterKeys returns all semester keys for the program in curriculum order.
func (p Program) SemesterKeys() []string {
	keys := make([]string, 0, p.SemesterCount)
	for i := 1; i <= p.SemesterCount; i++ {
		keys = append(keys, p.SemesterKey(i))
	}
	return keys
}

// SemesterOrdinal returns the 1-based curriculum position of a semester key,
// or 0 when the key does not belong to the program.
func (p Program) SemesterOrdinal(key string) int {
	for i := 1; i <= p.SemesterCount; i++ {
		if strings.EqualFold(p.SemesterKey(i), strings.TrimSpace(key)) {
			return i
		}
	}
	return 0
}

// SemesterDisplay returns the human labels for a semester key,
// e.g. ("YEAR ONE", "SECOND SEMESTER").
func (p Program) SemesterDisplay(key string) (string, string) {
	n := p.SemesterOrdinal(key)
	if n == 0 {
		return "", ""
	}
	year := (n - 1) / 2
	sem := (n - 1) % 2
	return yearDisplay[year], yearWords[sem] + " SEMESTER"
}

// DBConfig holds the optional results-archive database connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Enabled reports whether archiving to Postgres was configured for this run.
func (d DBConfig) Enabled() bool { return d.Host != "" }

func (d DBConfig) ConnString() string {
	port := d.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, port, d.User, d.Password, d.Name)
}

// Config is the full run configuration, resolved once at startup and passed
// down explicitly. Nothing below main reads the environment.
type Config struct {
	Program       Program
	BaseDir       string
	SelectedSet   string
	Semesters     []string
	PassThreshold float64
	// UpgradeMin is the lower bound of the threshold upgrade rule
	// (45-49); 0 disables the rule.
	UpgradeMin  int
	Interactive bool
	DB          DBConfig
}

// Load resolves the run configuration from the environment. godotenv is
// expected to have been loaded by the caller.
func Load() (Config, error) {
	cfg := Config{
		BaseDir:       envOr("BASE_DIR", DefaultBaseDir),
		SelectedSet:   strings.TrimSpace(os.Getenv("SELECTED_SET")),
		PassThreshold: DefaultPassThreshold,
		Interactive:   os.Getenv("SELECTED_SET") == "" && os.Getenv("PROCESSING_MODE") == "",
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
	}

	prog, err := ProgramByCode(envOr("PROGRAM", "ND"))
	if err != nil {
		return Config{}, err
	}
	cfg.Program = prog

	if v := os.Getenv("PASS_THRESHOLD"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t <= 0 || t > 100 {
			return Config{}, fmt.Errorf("invalid PASS_THRESHOLD: %q", v)
		}
		cfg.PassThreshold = t
	}

	if v := os.Getenv("UPGRADE_MIN"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 45 || m > 49 {
			return Config{}, fmt.Errorf("UPGRADE_MIN must be 45-49, got %q", v)
		}
		cfg.UpgradeMin = m
	}

	if v := os.Getenv("SELECTED_SEMESTERS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if prog.SemesterOrdinal(part) == 0 {
				return Config{}, fmt.Errorf("semester %q does not belong to program %s", part, prog.Code)
			}
			cfg.Semesters = append(cfg.Semesters, part)
		}
	}
	if len(cfg.Semesters) == 0 {
		cfg.Semesters = prog.SemesterKeys()
	}

	return cfg, nil
}

// CoursePath returns the catalog workbook location for the configured program.
func (c Config) CoursePath() string {
	return fmt.Sprintf("%s/%s-COURSES/%s", c.BaseDir, c.Program.Code, c.Program.CourseFile)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
