package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var (
	targetJSON bool
	targetYes  bool
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "List and manage configured targets",
}

var targetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured targets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetListCommand(cmd)
	},
}

var targetEnableCmd = &cobra.Command{
	Use:               "enable <target>",
	Short:             "Resume polling a target",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetSetEnabledCommand(cmd, args[0], true)
	},
}

var targetDisableCmd = &cobra.Command{
	Use:               "disable <target>",
	Short:             "Stop polling a target without removing it",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetSetEnabledCommand(cmd, args[0], false)
	},
}

var targetRemoveCmd = &cobra.Command{
	Use:   "remove <target>",
	Short: "Forget a target: clear its credentials and stop polling it",
	Long: `Forget a target. Its stored credentials are erased and it is disabled,
so a running 'hostwatch watch' drops it on the next config reload. The
target entry itself stays in hostwatch.yaml; delete it by hand if wanted.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetRemoveCommand(cmd, args[0])
	},
}

func init() {
	targetListCmd.Flags().BoolVar(&targetJSON, "json", false, "output as JSON")
	targetRemoveCmd.Flags().BoolVarP(&targetYes, "yes", "y", false, "skip the confirmation prompt")

	targetCmd.AddCommand(targetListCmd, targetEnableCmd, targetDisableCmd, targetRemoveCmd)
	rootCmd.AddCommand(targetCmd)
}

// TargetInfo is the JSON shape of a configured target.
type TargetInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user"`
	Enabled bool   `json:"enabled"`
	Auth    string `json:"auth"`
}

// authLabel names the credential a target would log in with.
func authLabel(t config.Target) string {
	switch {
	case t.UsesKey():
		return "key"
	case t.UsesPassword():
		return "password"
	default:
		return "none"
	}
}

func targetListCommand(cmd *cobra.Command) error {
	cfg, _, err := config.LoadFound(cfgFile)
	if err != nil {
		return err
	}

	infos := make([]TargetInfo, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		infos = append(infos, TargetInfo{
			ID:      t.ID,
			Name:    t.DisplayName(),
			Host:    t.Host,
			Port:    t.EffectivePort(),
			User:    t.User,
			Enabled: t.IsEnabled(),
			Auth:    authLabel(t),
		})
	}

	out := cmd.OutOrStdout()
	if targetJSON {
		return WriteJSONSuccess(out, infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No targets configured")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := ui.SymbolOnline + " enabled"
		if !info.Enabled {
			status = ui.SymbolDisabled + " disabled"
		}
		host := info.User + "@" + info.Host
		if info.Port != 22 {
			host += ":" + strconv.Itoa(info.Port)
		}
		rows = append(rows, []string{info.ID, info.Name, host, status, info.Auth})
	}
	fmt.Fprint(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "ID", Width: 16},
		{Title: "NAME", Width: 20},
		{Title: "HOST", Width: 32},
		{Title: "STATUS", Width: 12},
		{Title: "AUTH", Width: 8},
	}, rows))
	return nil
}

func targetSetEnabledCommand(cmd *cobra.Command, id string, enabled bool) error {
	cfg, path, err := config.LoadFound(cfgFile)
	if err != nil {
		return err
	}
	t, ok := cfg.FindTarget(id)
	if !ok {
		return errors.New(errors.ErrConfig,
			"Unknown target '"+id+"'",
			"List configured targets with: hostwatch target list")
	}

	if err := config.SetEnabled(path, t.ID, enabled); err != nil {
		return err
	}
	verb := "Enabled"
	if !enabled {
		verb = "Disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), verb, t.DisplayName())
	return nil
}

// targetRemoveCommand goes through the monitor's removal path so the same
// hook that forgets targets during a watch erases the secret here.
func targetRemoveCommand(cmd *cobra.Command, id string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	t, err := a.target(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !targetYes {
		ok, err := newPrompter().Confirm("Remove "+t.DisplayName()+"?",
			"Its stored credentials are erased and it won't be polled again.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	mon := a.newMonitor(monitorOptions{})
	mon.SetTargets(a.cfg.Targets)
	mon.RemoveTarget(t.ID)

	// The hook only logs failures; confirm the file really changed.
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if after, ok := cfg.FindTarget(t.ID); ok && (after.IsEnabled() || after.KeyEnc != "" || after.PasswordEnc != "") {
		return errors.New(errors.ErrFS,
			"Couldn't fully remove "+t.DisplayName(),
			"Check that "+a.cfgPath+" is writable")
	}

	fmt.Fprintf(out, "%s Removed %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), t.DisplayName())
	return nil
}
