package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/microsoft/sweep/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one sweep run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one evaluated candidate or to the baseline check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test assertion failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error during test execution.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// baselineCase is the name of the test case that checks the selected model
// against the baseline.
const baselineCase = "baseline check"

// ConvertToJUnit converts a SweepOutcome to JUnit XML format. Every
// candidate becomes a passing test case; the baseline check fails when the
// result is suspect.
func ConvertToJUnit(outcome *models.SweepOutcome) *JUnitTestSuites {
	durationSec := float64(outcome.Digest.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      outcome.SweepName,
		Time:      durationSec,
		Timestamp: outcome.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "run_id", Value: outcome.RunID},
			{Name: "data_source", Value: outcome.Setup.DataSource},
			{Name: "scorer", Value: outcome.Setup.Scorer},
			{Name: "seed", Value: fmt.Sprintf("%d", outcome.Setup.Seed)},
			{Name: "best", Value: outcome.Best.Candidate.String()},
			{Name: "score", Value: fmt.Sprintf("%.4f", outcome.Best.Score)},
			{Name: "verdict", Value: string(outcome.Baseline.Verdict)},
		},
	}
	if outcome.Test != nil {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: "test_score", Value: fmt.Sprintf("%.4f", outcome.Test.Score)})
	}

	for _, c := range outcome.Candidates {
		suite.TestCases = append(suite.TestCases, JUnitTestCase{
			Name:      fmt.Sprintf("%s score=%.4f", c.Candidate, c.Score),
			Classname: classname(outcome.SweepName, c.Search),
			Time:      float64(c.DurationMs) / 1000.0,
		})
	}

	check := JUnitTestCase{Name: baselineCase, Classname: classname(outcome.SweepName, "baseline")}
	if outcome.Suspect() {
		check.Failure = buildFailure(outcome)
		suite.Failures = 1
	}
	suite.TestCases = append(suite.TestCases, check)
	suite.Tests = len(suite.TestCases)

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func classname(sweep, search string) string {
	if search == "" {
		return sweep
	}
	return sweep + "." + search
}

func buildFailure(outcome *models.SweepOutcome) *JUnitFailure {
	b := outcome.Baseline
	return &JUnitFailure{
		Message: fmt.Sprintf("selected score %.4f does not exceed %s baseline %.4f", outcome.Best.Score, b.Family, b.ValidationScore),
		Type:    "SuspectResult",
		Body:    fmt.Sprintf("best: %s\nimprovement: %+.4f\n", outcome.Best.Candidate, b.Improvement),
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(outcome *models.SweepOutcome, path string) error {
	suites := ConvertToJUnit(outcome)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
