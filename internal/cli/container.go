package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/probe"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

var containerJSON bool

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "List and control docker containers on a target",
}

var containerListCmd = &cobra.Command{
	Use:               "ls <target>",
	Aliases:           []string{"list"},
	Short:             "List the containers of a target",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTargetIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return containerListCommand(cmd, args[0])
	},
}

var containerRestartCmd = &cobra.Command{
	Use:   "restart <target> <container>",
	Short: "Restart a container, through docker compose when it is compose-managed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return containerActionCommand(cmd, args[0], args[1], probe.ActionRestart)
	},
	ValidArgsFunction: completeTargetIDs,
}

var containerStartCmd = &cobra.Command{
	Use:   "start <target> <container>",
	Short: "Start a stopped container, through docker compose when it is compose-managed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return containerActionCommand(cmd, args[0], args[1], probe.ActionStart)
	},
	ValidArgsFunction: completeTargetIDs,
}

func init() {
	containerListCmd.Flags().BoolVar(&containerJSON, "json", false, "output as JSON")
	containerCmd.AddCommand(containerListCmd, containerRestartCmd, containerStartCmd)
	rootCmd.AddCommand(containerCmd)
}

func containerListCommand(cmd *cobra.Command, targetID string) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	sess, err := a.session(ctx, targetID)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	containers, err := probe.CollectContainers(ctx, sess)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if containerJSON {
		return WriteJSONSuccess(out, containers)
	}
	if len(containers) == 0 {
		fmt.Fprintf(out, "No containers on %s\n", sess.Target().DisplayName())
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		// Table cells are plain text.
		symbol := ui.SymbolFail
		if c.Running() {
			symbol = ui.SymbolSuccess
		}
		started := ui.Placeholder
		if c.StartedAt != nil {
			started = ui.FormatAge(*c.StartedAt, now)
		}
		id := c.ID
		if id == "" {
			id = ui.Placeholder
		}
		rows = append(rows, []string{symbol + " " + c.Name, id, c.Status, c.Image, started})
	}
	fmt.Fprint(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAME", Width: 28},
		{Title: "ID", Width: 12},
		{Title: "STATUS", Width: 24},
		{Title: "IMAGE", Width: 30},
		{Title: "STARTED", Width: 10},
	}, rows))
	return nil
}

func containerActionCommand(cmd *cobra.Command, targetID, name string, action probe.Action) error {
	a, err := loadApp(appOptions{})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	sess, err := a.session(ctx, targetID)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	ref := probe.ContainerRef{Target: sess.Target(), Container: name}
	a.log.Debug("%s %s", action, ref)

	res, err := probe.RunContainerAction(ctx, sess, name, action)
	if err != nil {
		return err
	}

	verb := "Restarted"
	if action == probe.ActionStart {
		verb = "Started"
	}
	via := "docker"
	if res.Compose {
		via = "docker compose"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s via %s\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), verb, ref, via)
	return nil
}
