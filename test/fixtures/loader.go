// Package fixtures locates the scenario files shared by the integration and
// e2e suites.
package fixtures

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Mohsinsiddi/quarkcheck/internal/accept"
	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// ScenarioDir is the directory holding fixture scenario YAML.
func ScenarioDir() string {
	return filepath.Join(fixturesDir(), "scenarios")
}

// LoadScenarios loads the fixture scenarios matching patterns (all when
// none are given).
func LoadScenarios(t *testing.T, patterns ...string) []accept.AcceptanceTest {
	t.Helper()
	tests, err := accept.LoadDir(ScenarioDir())
	require.NoError(t, err, "failed to load fixture scenarios")
	tests, err = accept.Select(tests, patterns)
	require.NoError(t, err)
	return tests
}
