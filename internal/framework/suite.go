package framework

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// Version is stamped into every suite result file as "script version".
const Version = "0.9.0"

// Reporter generates the dashboard and document reports for a completed
// results directory. It is an external collaborator of the framework.
type Reporter func(directory, title, description string) error

// Options enumerates the recognized suite configuration. Unknown options do
// not exist by construction; there is no dynamic attribute injection.
type Options struct {
	// Title of the suite. Required; also determines the run directory name.
	Title string

	// Description of the suite. The first line becomes the short description
	// in result files, the full text is kept as details.
	Description string

	// Nvme is the NVMe drive number under test.
	Nvme int

	// Volume is the filesystem volume backing the drive, used by IO
	// workloads.
	Volume string

	// RunID, when set, replaces the timestamp uid in the run directory name.
	RunID string

	// Verbose lowers the log level from info to debug.
	Verbose bool

	// StopOnFail stops the suite after the first failed case.
	StopOnFail bool

	// ResultsRoot is the parent of all suite run directories. Defaults to
	// <home>/nvmeharness/suites.
	ResultsRoot string

	// UserSpecDir and SpecDir are searched, in that order, for the device
	// specification file named after the normalized model string.
	UserSpecDir string
	SpecDir     string

	// Model is the device model used for the specification lookup. May be
	// empty, in which case the generic default specification is used.
	Model string

	// Reporter is invoked with the final directory, title, and description
	// when the suite closes. Nil disables report generation.
	Reporter Reporter

	// LogWriter is an additional log destination beside the suite's
	// console.log. Defaults to os.Stdout.
	LogWriter io.Writer
}

// Suite is the top level of the test framework. It owns the run identity,
// the verification counter, the ordered case list, and the logging handle
// passed down to every nested scope.
type Suite struct {
	Title       string
	Description string
	Nvme        int
	Volume      string

	// StopOnFail stops the suite after the first failed case. May be toggled
	// between cases.
	StopOnFail bool

	// Device is the resolved device specification supplying numeric
	// pass/fail thresholds to downstream verifications.
	Device map[string]any

	// Data holds suite-wide recorded measurements persisted with the result.
	Data map[string]any

	// Directory is the unique run directory.
	Directory string

	state    *SuiteState
	log      *slog.Logger
	logFile  *os.File
	reporter Reporter
	start    time.Time

	caseNumber int
	verNumber  int
	forceFail  bool
	stopped    bool
	abortErr   error
	closed     bool
}

// New creates the suite run: a unique run directory (destroyed and recreated
// if a directory of the same name exists), the suite logger, and the device
// specification. The caller must call Close exactly once when every case has
// run.
func New(opts Options) (*Suite, error) {
	if opts.Title == "" {
		return nil, errors.New("suite title is required")
	}
	if opts.ResultsRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve results root: %w", err)
		}
		opts.ResultsRoot = filepath.Join(home, "nvmeharness", "suites")
	}

	now := time.Now()
	uid := opts.RunID
	if uid == "" {
		uid = now.Format("20060102_150405")
	}

	dir, err := filepath.Abs(filepath.Join(opts.ResultsRoot, slug(opts.Title), uid))
	if err != nil {
		return nil, fmt.Errorf("resolve suite directory: %w", err)
	}
	// Reruns under the same uid are not resumable; the old tree would corrupt
	// case numbering.
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove stale suite directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create suite directory: %w", err)
	}

	logger, logFile, err := newSuiteLogger(dir, opts.Verbose, opts.LogWriter)
	if err != nil {
		return nil, err
	}

	device, specFile, err := loadDeviceSpecification(opts.UserSpecDir, opts.SpecDir, opts.Model)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	firstLine, _, _ := strings.Cut(opts.Description, "\n")
	hostname, _ := os.Hostname()

	s := &Suite{
		Title:       opts.Title,
		Description: firstLine,
		Nvme:        opts.Nvme,
		Volume:      opts.Volume,
		StopOnFail:  opts.StopOnFail,
		Device:      device,
		Data:        map[string]any{},
		Directory:   dir,
		log:         logger,
		logFile:     logFile,
		reporter:    opts.Reporter,
		start:       now,
		state: &SuiteState{
			Title:         opts.Title,
			Description:   firstLine,
			Details:       opts.Description,
			Result:        Aborted,
			StartTime:     timestamp(now),
			Directory:     dir,
			ScriptVersion: Version,
			ID:            uid,
			RunID:         uuid.NewString(),
			Model:         "N/A",
			System:        hostname,
			Location:      "N/A",
			Tests:         []CaseState{},
			Verifications: []Verification{},
			Rqmts:         map[string]*RqmtCounts{},
			Data:          map[string]any{},
		},
	}

	s.log.Info("test suite started",
		"title", opts.Title,
		"description", firstLine,
		"directory", dir,
		"run_id", s.state.RunID,
	)
	if specFile != "" {
		s.log.Debug("device specification loaded", "file", specFile)
	} else {
		s.log.Debug("device specification defaulted", "model", opts.Model)
	}
	return s, nil
}

// newSuiteLogger builds the explicit logging handle for one suite run:
// console.log inside the run directory plus the console writer. Two suites
// in one process get independent handles.
func newSuiteLogger(dir string, verbose bool, console io.Writer) (*slog.Logger, *os.File, error) {
	logFile, err := os.Create(filepath.Join(dir, "console.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("create suite log: %w", err)
	}
	if console == nil {
		console = os.Stdout
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(console, logFile), &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), logFile, nil
}

// Log returns the suite's logging handle.
func (s *Suite) Log() *slog.Logger { return s.log }

// Stop requests a controlled suite stop: the current case finishes normally
// and no further cases run. With fail set the suite is forced to FAILED even
// if every completed case passed. The returned signal should be propagated
// from the enclosing case body, if any.
func (s *Suite) Stop(fail bool) error {
	s.requestStop(fail)
	return ErrSuiteStop
}

func (s *Suite) requestStop(fail bool) {
	if !s.stopped {
		s.log.Info("suite stop requested", "fail", fail)
	}
	s.stopped = true
	s.forceFail = s.forceFail || fail
}

// nextVerificationNumber returns the next suite-wide verification display
// number. Numbers are monotonically increasing and never reused. Execution
// is single threaded; an implementation adding concurrency must serialize
// this counter.
func (s *Suite) nextVerificationNumber() int {
	s.verNumber++
	return s.verNumber
}

// Close finalizes the suite: it computes the duration, pulls the device
// model from recorded data, recomputes the rollup, writes the suite result
// file, and triggers report generation. Close absorbs every failure mode, so
// a result file exists for every run that got as far as New; an aborted run
// is recorded and logged, never re-raised. It returns the final suite result
// string.
func (s *Suite) Close() string {
	if s.closed {
		return s.state.Result
	}
	s.closed = true

	now := time.Now()
	seconds := now.Sub(s.start).Seconds()
	s.state.EndTime = timestamp(now)
	s.state.DurationSec = fmt.Sprintf("%.3f", seconds)
	s.state.Duration = conversions.AsDuration(seconds)
	s.state.Data = s.Data

	if model := startInfoModel(s.Data); model != "" {
		s.state.Model = model
		s.state.Location = fmt.Sprintf("NVMe %d", s.Nvme)
	}

	failCases := 0
	abortedCases := 0
	for _, test := range s.state.Tests {
		switch test.Result {
		case Failed:
			failCases++
		case Aborted:
			abortedCases++
		}
	}

	if s.abortErr != nil {
		s.log.Error("test suite aborted", "error", s.abortErr)
		s.state.Result = Aborted
	} else {
		if abortedCases == 0 {
			s.state.Complete = true
		}
		if s.forceFail || failCases > 0 {
			s.state.Result = Failed
		} else {
			s.state.Result = Passed
		}
	}

	UpdateSuiteSummary(s.state)

	// The rollup recomputes the result from the case list alone; a forced
	// failure (suite stop with fail, user interrupt) must survive it even
	// when every recorded case passed or was skipped.
	if s.forceFail && s.state.Result == Passed {
		s.state.Result = Failed
	}

	resultsFile := filepath.Join(s.Directory, ResultsFile)
	if err := writeResults(resultsFile, s.state); err != nil {
		s.log.Error("suite results could not be written", "error", err)
	}

	if s.reporter != nil {
		if err := s.reporter(s.Directory, s.Title, s.Description); err != nil {
			s.log.Error("report generation failed", "error", err)
		}
	}

	s.log.Info("test suite finished",
		"result", s.state.Result,
		"complete", s.state.Complete,
		"duration_sec", s.state.DurationSec,
		"tests_total", s.state.Summary.Tests.Total,
		"tests_pass", s.state.Summary.Tests.Pass,
		"tests_fail", s.state.Summary.Tests.Fail,
		"verifications_total", s.state.Summary.Verifications.Total,
		"verifications_pass", s.state.Summary.Verifications.Pass,
		"verifications_fail", s.state.Summary.Verifications.Fail,
	)

	if s.logFile != nil {
		_ = s.logFile.Close()
	}
	return s.state.Result
}

// State returns the suite's result state. The returned pointer stays owned
// by the suite; callers read it after Close for run-history indexing.
func (s *Suite) State() *SuiteState { return s.state }

// startInfoModel digs the device model out of recorded start info, if a
// start-info case ran.
func startInfoModel(data map[string]any) string {
	startInfo, ok := data["start_info"].(map[string]any)
	if !ok {
		return ""
	}
	switch params := startInfo["parameters"].(type) {
	case map[string]string:
		return params["Model"]
	case map[string]any:
		if model, ok := params["Model"].(string); ok {
			return model
		}
	}
	return ""
}
