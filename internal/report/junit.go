// Package report writes machine-readable summaries of an orchestration for CI systems.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"

	"github.com/armadaproject/loadgate/internal/common/fileutil"
	"github.com/armadaproject/loadgate/internal/scanner"
)

// JUnitFileName is the name of the summary written to the report directory.
const JUnitFileName = "loadgate-junit.xml"

// Case is the scan result of one target, together with how it ran.
type Case struct {
	Name     string
	Kind     string
	Duration time.Duration
	Result   scanner.Result
}

// Summary holds everything reported about an orchestration.
type Summary struct {
	RunID          string
	Timestamp      time.Time
	Duration       time.Duration
	IgnoreErrors   bool
	IgnoreFailures bool
	Cases          []Case
	TotalErrors    int
	TotalFailures  int
}

// JUnit builds a single testsuite with one testcase per artifact. Errors and failures that are
// ignored are not reported as such, but are still visible in the suite's properties.
func JUnit(s Summary) junit.Testsuites {
	suite := junit.Testsuite{
		Name: "loadgate",
		Time: formatDuration(s.Duration),
	}
	suite.SetTimestamp(s.Timestamp)
	suite.AddProperty("run_id", s.RunID)
	suite.AddProperty("total_errors", strconv.Itoa(s.TotalErrors))
	suite.AddProperty("total_failures", strconv.Itoa(s.TotalFailures))
	suite.AddProperty("ignore_errors", strconv.FormatBool(s.IgnoreErrors))
	suite.AddProperty("ignore_failures", strconv.FormatBool(s.IgnoreFailures))

	for _, c := range s.Cases {
		tc := junit.Testcase{
			Name:      c.Name,
			Classname: c.Kind,
			Time:      formatDuration(c.Duration),
			SystemOut: &junit.Output{Data: c.Result.File},
		}
		if c.Result.Errors > 0 && !s.IgnoreErrors {
			tc.Error = &junit.Result{
				Message: fmt.Sprintf("%d error(s)", c.Result.Errors),
				Type:    "error",
				Data:    "See " + c.Result.File,
			}
		}
		if c.Result.Failures > 0 && !s.IgnoreFailures {
			tc.Failure = &junit.Result{
				Message: fmt.Sprintf("%d failure(s)", c.Result.Failures),
				Type:    "failure",
				Data:    "See " + c.Result.File,
			}
		}
		suite.AddTestcase(tc)
	}

	suites := junit.Testsuites{Name: "loadgate", Time: suite.Time}
	suites.AddSuite(suite)
	return suites
}

// WriteJUnit writes the JUnit summary into dir and returns the path of the written file.
func WriteJUnit(dir string, s Summary) (string, error) {
	path := filepath.Join(dir, JUnitFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer fileutil.CloseResource(path, f)

	suites := JUnit(s)
	if err := suites.WriteXML(f); err != nil {
		return "", errors.WithMessagef(err, "writing %s", path)
	}
	return path, nil
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
