package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render produces the deterministic snapshot compared against golden files:
// the step outcomes followed by the full audit trace.
func Render(sc *Scenario, res *Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "scenario: %s\n", sc.Name)
	fmt.Fprintln(&b, "steps:")
	for _, line := range res.StepLines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	fmt.Fprintln(&b, "trace:")
	for _, line := range res.TraceLines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.Bytes()
}

// RunWithGolden executes the scenario and compares its snapshot against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, h *Harness, sc *Scenario) {
	t.Helper()

	res, err := h.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	if !res.Pass {
		t.Errorf("scenario %s failed:\n  %s", sc.Name, strings.Join(res.Errors, "\n  "))
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, sc.Name, Render(sc, res))
}
