// Package scanner reads result artifacts and turns them into a verdict.
package scanner

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
)

const (
	errorMarker           = "<error>true</error>"
	failedAssertionMarker = "<failure>true</failure>"
	failedSampleMarker    = `s="false"`
	nonHttpResponsePrefix = "Non HTTP response code"
	maxLineLength         = 16 * 1024 * 1024
	csvSuccessColumn      = "success"
	csvResponseCodeColumn = "responseCode"
)

// Result is the outcome of scanning one artifact.
type Result struct {
	File     string
	Errors   int
	Failures int
	Passed   bool
}

// Aggregate is the outcome of scanning every artifact of an orchestration.
// Totals always include every error and failure found, whether ignored or not.
type Aggregate struct {
	Results       []Result
	TotalErrors   int
	TotalFailures int
	AnyFailed     bool
}

// TestsRun is the number of artifacts scanned.
func (a *Aggregate) TestsRun() int {
	return len(a.Results)
}

// Scanner counts errors and failures in result artifacts.
type Scanner struct {
	ignoreErrors   bool
	ignoreFailures bool
}

func New(ignoreErrors, ignoreFailures bool) *Scanner {
	return &Scanner{ignoreErrors: ignoreErrors, ignoreFailures: ignoreFailures}
}

// Scan scans every artifact in order. An artifact that can't be read is an execution error.
func (s *Scanner) Scan(paths []string) (*Aggregate, error) {
	agg := &Aggregate{Results: make([]Result, 0, len(paths))}
	for _, path := range paths {
		result, err := s.ScanFile(path)
		if err != nil {
			return nil, err
		}
		agg.Results = append(agg.Results, result)
		agg.TotalErrors += result.Errors
		agg.TotalFailures += result.Failures
		if !result.Passed {
			agg.AnyFailed = true
		}
	}
	return agg, nil
}

// ScanFile scans a single artifact.
func (s *Scanner) ScanFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, gateerrors.NewExecutionError("scan results", err, "Can't read log file %s", path)
	}
	defer fileutil.CloseResource(path, f)

	errorCount, failureCount, err := Count(f)
	if err != nil {
		return Result{}, gateerrors.NewExecutionError("scan results", err, "Can't read log file %s", path)
	}
	return Result{
		File:     path,
		Errors:   errorCount,
		Failures: failureCount,
		Passed:   s.passed(errorCount, failureCount),
	}, nil
}

func (s *Scanner) passed(errorCount, failureCount int) bool {
	return (errorCount == 0 || s.ignoreErrors) && (failureCount == 0 || s.ignoreFailures)
}

// Count counts the errors and failures in a result artifact. Artifacts written as CSV with a
// header row are read per sample; anything else is searched line by line for the markers the
// engine writes in XML results.
func Count(r io.Reader) (errorCount, failureCount int, err error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, 0, errors.WithStack(err)
	}
	firstLine := string(head)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = string(head[:i])
	}
	if csvHeader(firstLine) != nil {
		return countCsv(br)
	}
	return countMarkers(br)
}

func countMarkers(r io.Reader) (errorCount, failureCount int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		errorCount += strings.Count(line, errorMarker)
		// A failed sample already accounts for the failed assertions written on the same line.
		if n := strings.Count(line, failedSampleMarker); n > 0 {
			failureCount += n
		} else {
			failureCount += strings.Count(line, failedAssertionMarker)
		}
	}
	return errorCount, failureCount, errors.WithStack(scanner.Err())
}

// csvHeader returns the columns of line if it looks like the header of a CSV result file.
func csvHeader(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "<") {
		return nil
	}
	columns := strings.Split(line, ",")
	for _, c := range columns {
		if c == csvSuccessColumn {
			return columns
		}
	}
	return nil
}

func countCsv(r io.Reader) (errorCount, failureCount int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}
	success, responseCode := -1, -1
	for i, name := range header {
		switch name {
		case csvSuccessColumn:
			success = i
		case csvResponseCodeColumn:
			responseCode = i
		}
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return errorCount, failureCount, nil
		}
		if err != nil {
			return 0, 0, errors.WithStack(err)
		}
		if success >= len(record) || record[success] != "false" {
			continue
		}
		if responseCode >= 0 && responseCode < len(record) && strings.HasPrefix(record[responseCode], nonHttpResponsePrefix) {
			errorCount++
		} else {
			failureCount++
		}
	}
}
