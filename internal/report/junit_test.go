package report

import (
	"encoding/xml"
	"os"
	"testing"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/loadgate/internal/scanner"
)

func testSummary() Summary {
	return Summary{
		RunID:     "a6f0c1f2-0000-4000-8000-000000000000",
		Timestamp: time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC),
		Duration:  90 * time.Second,
		Cases: []Case{
			{Name: "a.jmx", Kind: "local", Duration: time.Second, Result: scanner.Result{File: "/r/a.jtl", Errors: 1}},
			{Name: "b.jmx", Kind: "local", Duration: 2 * time.Second, Result: scanner.Result{File: "/r/b.jtl", Failures: 2}},
			{Name: "b.jmx@h1", Kind: "remote", Duration: 3 * time.Second, Result: scanner.Result{File: "/r/b-h1.jtl", Passed: true}},
		},
		TotalErrors:   1,
		TotalFailures: 2,
	}
}

func TestJUnit(t *testing.T) {
	suites := JUnit(testSummary())
	require.Len(t, suites.Suites, 1)
	suite := suites.Suites[0]

	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, "90.000", suite.Time)
	assert.Equal(t, "2023-04-05T06:07:08Z", suite.Timestamp)

	require.Len(t, suite.Testcases, 3)
	assert.NotNil(t, suite.Testcases[0].Error)
	assert.Nil(t, suite.Testcases[0].Failure)
	assert.Equal(t, "2 failure(s)", suite.Testcases[1].Failure.Message)
	assert.Nil(t, suite.Testcases[2].Error)
	assert.Nil(t, suite.Testcases[2].Failure)
	assert.Equal(t, "remote", suite.Testcases[2].Classname)

	require.NotNil(t, suite.Properties)
	assert.Contains(t, *suite.Properties, junit.Property{Name: "total_failures", Value: "2"})
}

func TestJUnit_IgnoredProblemsAreNotReported(t *testing.T) {
	s := testSummary()
	s.IgnoreErrors = true
	suites := JUnit(s)
	assert.Equal(t, 0, suites.Errors)
	assert.Equal(t, 1, suites.Failures)
	assert.Contains(t, *suites.Suites[0].Properties, junit.Property{Name: "total_errors", Value: "1"})
}

func TestWriteJUnit(t *testing.T) {
	path, err := WriteJUnit(t.TempDir(), testSummary())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed junit.Testsuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 3, parsed.Tests)
	require.Len(t, parsed.Suites, 1)
	assert.Equal(t, "a.jmx", parsed.Suites[0].Testcases[0].Name)
}

func TestWriteJUnit_MissingDirectory(t *testing.T) {
	_, err := WriteJUnit("/does/not/exist", testSummary())
	assert.Error(t, err)
}
