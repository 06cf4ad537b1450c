package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/doctor"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var (
	doctorJSON bool
	doctorFix  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the local hostwatch setup",
	Long: `Check the config, the local tools hostwatch shells out to, the secret
key and stored credentials, and the alert sinks. Targets are never
contacted; use 'hostwatch check' for that.

Exits with status 1 when any check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output as JSON")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput is the JSON shape of a doctor run.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput holds the results of one category.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput counts results by status.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(cmd *cobra.Command) error {
	// Load errors are reported by the config check rather than returned.
	cfg, path, loadErr := config.LoadFound(cfgFile)
	checks := doctor.Collect(doctor.Input{ConfigPath: path, Config: cfg, LoadErr: loadErr})

	results := doctor.RunAllParallel(checks)
	if doctorFix {
		results = doctor.FixAll(checks, results)
	}

	out := cmd.OutOrStdout()
	if doctorJSON {
		if err := WriteJSONSuccess(out, buildDoctorOutput(checks, results)); err != nil {
			return err
		}
	} else {
		renderDoctorText(out, checks, results)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// groupResults indexes results by category in report order.
func groupResults(checks []doctor.Check, results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}
	return grouped
}

func buildDoctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := groupResults(checks, results)
	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(grouped))}
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func renderDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.BoldStyle().Render("hostwatch diagnostic report"))
	fmt.Fprintln(w)

	grouped := groupResults(checks, results)
	for _, cat := range doctor.CategoryOrder {
		rs, ok := grouped[cat]
		if !ok {
			continue
		}
		fmt.Fprintln(w, ui.BoldStyle().Render(cat))
		for _, r := range rs {
			renderCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
		return
	}
	symbol := ui.WarningStyle().Render(ui.SymbolWarning)
	if doctor.HasFailures(results) {
		symbol = ui.ErrorStyle().Render(ui.SymbolFail)
	}
	fmt.Fprintf(w, "%s %s\n", symbol, doctor.Summary(results))

	if doctor.FixableCount(results) > 0 && !doctorFix {
		fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n",
			ui.MutedStyle().Render("--fix"))
	}
}

func renderCheckResult(w io.Writer, r doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style
	switch r.Status {
	case doctor.StatusPass:
		symbol, style = ui.SymbolSuccess, ui.SuccessStyle()
	case doctor.StatusWarn:
		symbol, style = ui.SymbolWarning, ui.WarningStyle()
	default:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), r.Message)
	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
