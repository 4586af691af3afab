package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	h := New(t.TempDir())
	for _, sc := range scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			RunWithGolden(t, h, sc)
		})
	}
}

func TestLoadScenario_DefaultsNameFromFile(t *testing.T) {
	sc, err := LoadScenario("testdata/happy_path.yaml")
	require.NoError(t, err)
	require.Equal(t, "happy_path", sc.Name)
	require.Len(t, sc.Steps, 8)
	require.Len(t, sc.Expect, 1)
}

func TestRun_ReportsStepMismatch(t *testing.T) {
	h := New(t.TempDir())
	sc := &Scenario{
		Name: "mismatch",
		Steps: []Step{
			{Op: "file", Case: "c1", Actor: "u-law:lawyer", Title: "X v Y", Type: "civil"},
			// Expecting an error that does not happen.
			{Op: "verify", Case: "c1", Actor: "u-reg:registrar", WantError: "unauthorized"},
		},
	}

	res, err := h.Run(context.Background(), sc)
	require.NoError(t, err)
	require.False(t, res.Pass)
	require.NotEmpty(t, res.Errors)
}

func TestRun_UnknownCaseAlias(t *testing.T) {
	h := New(t.TempDir())
	sc := &Scenario{
		Name: "unknown_alias",
		Steps: []Step{
			{Op: "verify", Case: "ghost", Actor: "u-reg:registrar", WantError: "not_found"},
		},
	}

	res, err := h.Run(context.Background(), sc)
	require.NoError(t, err)
	require.True(t, res.Pass, "errors: %v", res.Errors)
}
