package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/util"
)

// Action is a container lifecycle operation.
type Action string

const (
	ActionRestart Action = "restart"
	ActionStart   Action = "start"
)

// ContainerRef identifies one container on one target.
type ContainerRef struct {
	Target    config.Target
	Container string
}

func (r ContainerRef) String() string {
	return r.Target.ID + "/" + r.Container
}

// ComposeLabels are the docker compose labels of a container.
type ComposeLabels struct {
	Project    string
	WorkingDir string
	Service    string
}

// Managed reports whether all labels needed to act through compose exist.
func (l ComposeLabels) Managed() bool {
	return l.Project != "" && l.WorkingDir != "" && l.Service != ""
}

const composeLabelsFormat = `{{index .Config.Labels "com.docker.compose.project"}}|` +
	`{{index .Config.Labels "com.docker.compose.project.working_dir"}}|` +
	`{{index .Config.Labels "com.docker.compose.service"}}`

// ParseComposeLabels parses project|working_dir|service.
func ParseComposeLabels(out string) ComposeLabels {
	parts := strings.Split(strings.TrimSpace(out), "|")
	if len(parts) != 3 {
		return ComposeLabels{}
	}
	clean := func(s string) string {
		s = strings.TrimSpace(s)
		if s == "<no value>" {
			return ""
		}
		return s
	}
	return ComposeLabels{Project: clean(parts[0]), WorkingDir: clean(parts[1]), Service: clean(parts[2])}
}

// ActionCommand returns the command for action. Compose-managed
// containers go through compose so the change survives the next
// reconciliation; both the plugin and the standalone binary are tried.
func ActionCommand(name string, action Action, labels ComposeLabels) string {
	if labels.Managed() {
		svc := util.ShellQuote(labels.Service)
		return fmt.Sprintf("cd %s && (docker compose %s %s || docker-compose %s %s)",
			util.ShellQuote(labels.WorkingDir), action, svc, action, svc)
	}
	return fmt.Sprintf("docker %s %s", action, util.ShellQuote(name))
}

// ActionResult describes what ran.
type ActionResult struct {
	Command string
	Compose bool
}

// RunContainerAction inspects the container's compose labels and runs the
// matching restart or start command.
func RunContainerAction(ctx context.Context, ex Execer, name string, action Action) (ActionResult, error) {
	if action != ActionRestart && action != ActionStart {
		return ActionResult{}, errors.New(errors.ErrCommand,
			fmt.Sprintf("Unknown container action %q", action),
			"Use restart or start")
	}

	var labels ComposeLabels
	if out, err := runOutput(ctx, ex, "docker inspect -f '"+composeLabelsFormat+"' "+util.ShellQuote(name)); err == nil {
		labels = ParseComposeLabels(out)
	}

	cmd := ActionCommand(name, action, labels)
	if _, err := runOutput(ctx, ex, cmd); err != nil {
		return ActionResult{Command: cmd, Compose: labels.Managed()}, errors.WrapWithCode(err, errors.ErrCommand,
			fmt.Sprintf("Couldn't %s container %s", action, name),
			"Check the container exists: docker ps -a")
	}
	return ActionResult{Command: cmd, Compose: labels.Managed()}, nil
}
