package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path does not exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario file %q does not exist", e.Path)
}

// FindScenarios expands paths into scenario files. Directories contribute
// their .yaml and .yml files, non-recursively and sorted by name.
func FindScenarios(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

// SuiteResult summarizes a batch of scenario runs.
type SuiteResult struct {
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Results  map[string]*Result `json:"results"`
	Failures []SuiteFailure     `json:"failures,omitempty"`
}

// SuiteFailure is one scenario that failed to load, run or pass.
type SuiteFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RunSuite loads and runs every scenario file in order.
func RunSuite(files []string, opts ...Option) *SuiteResult {
	suite := &SuiteResult{Results: make(map[string]*Result)}

	for _, path := range files {
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		result, err := Run(scenario, opts...)
		if err != nil {
			suite.fail(path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		suite.Results[path] = result

		if !result.Pass {
			suite.fail(path, fmt.Sprintf("scenario assertions failed: %s", strings.Join(result.Errors, "; ")))
			continue
		}
		suite.Passed++
	}
	return suite
}

func (s *SuiteResult) fail(path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, SuiteFailure{Path: path, Error: msg})
}
