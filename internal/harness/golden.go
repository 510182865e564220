package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/vizq/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test package.
const GoldenDir = "testdata/golden"

// OutputSnapshot is the golden form of a pipeline output.
type OutputSnapshot struct {
	Name   string  `json:"name"`
	Output *Output `json:"output"`
}

// Snapshot renders out as canonical JSON followed by a newline.
func Snapshot(name string, out *Output) ([]byte, error) {
	data, err := ir.MarshalCanonical(OutputSnapshot{Name: name, Output: out})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario, fails t on assertion failures and
// compares the output against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result.Output)
}

// AssertGolden compares an output against its golden file without running
// anything.
func AssertGolden(t *testing.T, name string, out *Output) error {
	t.Helper()

	data, err := Snapshot(name, out)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
