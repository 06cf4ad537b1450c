// Package doctor diagnoses a hostwatch installation: config, local tools,
// stored secrets and alert sinks. Checks never contact the targets; use
// `hostwatch check` for that.
package doctor

import (
	"fmt"
	"sync"

	"github.com/rileyhilliard/hostwatch/internal/util"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Categories in report order.
const (
	CategoryConfig      = "CONFIG"
	CategoryTools       = "TOOLS"
	CategoryCredentials = "CREDENTIALS"
	CategoryAlerts      = "ALERTS"
)

// CategoryOrder is the order categories are reported in.
var CategoryOrder = []string{CategoryConfig, CategoryTools, CategoryCredentials, CategoryAlerts}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Fixable    bool        `json:"fixable,omitempty"` // Whether --fix can address this
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns one of the Category constants.
	Category() string

	// Run executes the check and returns the result.
	Run() CheckResult

	// Fix attempts to repair the issue. Checks that can't return nil and
	// never report Fixable.
	Fix() error
}

// RunAll executes checks in order.
func RunAll(checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = check.Run()
	}
	return results
}

// RunAllParallel executes all checks concurrently. Results keep the order of
// checks.
func RunAllParallel(checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup

	for i, check := range checks {
		wg.Add(1)
		go func(idx int, c Check) {
			defer wg.Done()
			results[idx] = c.Run()
		}(i, check)
	}

	wg.Wait()
	return results
}

// FixAll runs Fix on every fixable issue and re-runs those checks.
func FixAll(checks []Check, results []CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	copy(out, results)
	for i, r := range out {
		if !r.Fixable || r.Status == StatusPass {
			continue
		}
		if err := checks[i].Fix(); err == nil {
			out[i] = checks[i].Run()
		}
	}
	return out
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// HasIssues returns true if any result has a fail or warn status.
func HasIssues(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusPass {
			return true
		}
	}
	return false
}

// FixableCount returns the number of issues --fix can address.
func FixableCount(results []CheckResult) int {
	count := 0
	for _, r := range results {
		if r.Fixable && r.Status != StatusPass {
			count++
		}
	}
	return count
}

// Summary returns a one-line summary of the results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	if total == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d %s found", total, util.Pluralize(total, "issue", "issues"))
}

func pass(c Check, msg string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: msg}
}

func warn(c Check, msg, suggestion string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusWarn, Message: msg, Suggestion: suggestion}
}

func fail(c Check, msg, suggestion string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusFail, Message: msg, Suggestion: suggestion}
}
