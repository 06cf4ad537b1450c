package probe

import (
	"context"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/util"
)

// Container is one entry of `docker ps -a`.
type Container struct {
	Name      string     `json:"name"`
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Image     string     `json:"image"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Running reports whether the status text says the container is up.
func (c Container) Running() bool {
	return strings.Contains(strings.ToLower(c.Status), "up")
}

const (
	dockerPipeFormat  = `docker ps -a --format '{{.Names}}|{{.ID}}|{{.Status}}|{{.Image}}'`
	dockerSpaceFormat = `docker ps -a --format '{{.Names}} {{.Status}} {{.Image}}'`
	dockerTable       = `docker ps -a`
)

// ContainerStrategies lists the docker listing variants, most structured
// first. A variant whose output has no container rows counts as failed so
// the next one gets a turn; empty reports whether any variant ran cleanly
// but listed nothing.
func ContainerStrategies(empty *bool) []Strategy[[]Container] {
	wrap := func(parse func(string) []Container) func(string) ([]Container, error) {
		return func(out string) ([]Container, error) {
			cs := parse(out)
			if len(cs) == 0 {
				*empty = true
				return nil, responseError("no container rows")
			}
			return cs, nil
		}
	}
	return []Strategy[[]Container]{
		commandStrategy("docker ps pipe", dockerPipeFormat, wrap(ParseDockerPipe)),
		commandStrategy("docker ps space", dockerSpaceFormat, wrap(ParseDockerSpace)),
		commandStrategy("docker ps table", dockerTable, wrap(ParseDockerTable)),
	}
}

// CollectContainers lists containers and fills in start times for the
// running ones. A host whose docker answers but lists nothing yields an
// empty, non-nil slice.
func CollectContainers(ctx context.Context, ex Execer) ([]Container, error) {
	var empty bool
	containers, _, err := Chain(ctx, ex, ContainerStrategies(&empty)...)
	if err != nil {
		if empty {
			return []Container{}, nil
		}
		return nil, err
	}

	for i := range containers {
		if !containers[i].Running() {
			continue
		}
		ref := containers[i].ID
		if ref == "" {
			ref = containers[i].Name
		}
		out, err := runOutput(ctx, ex, "docker inspect -f '{{.State.StartedAt}}' "+util.ShellQuote(ref))
		if err != nil {
			continue
		}
		if t, ok := ParseStartedAt(out); ok {
			containers[i].StartedAt = &t
		}
	}
	return containers, nil
}

// ParseDockerPipe parses name|id|status|image rows.
func ParseDockerPipe(out string) []Container {
	var cs []Container
	for _, line := range nonEmptyLines(out) {
		parts := strings.Split(line, "|")
		if len(parts) != 4 || parts[0] == "NAMES" {
			continue
		}
		cs = append(cs, Container{
			Name:   strings.TrimSpace(parts[0]),
			ID:     strings.TrimSpace(parts[1]),
			Status: strings.TrimSpace(parts[2]),
			Image:  strings.TrimSpace(parts[3]),
		})
	}
	return cs
}

// ParseDockerSpace parses "name status... image" rows. Status text has
// spaces of its own, so it is everything between the first and last field.
func ParseDockerSpace(out string) []Container {
	var cs []Container
	for _, line := range nonEmptyLines(out) {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] == "NAMES" {
			continue
		}
		cs = append(cs, Container{
			Name:   fields[0],
			Status: strings.Join(fields[1:len(fields)-1], " "),
			Image:  fields[len(fields)-1],
		})
	}
	return cs
}

// ParseDockerTable parses the default `docker ps -a` table using the
// header's column offsets.
func ParseDockerTable(out string) []Container {
	lines := nonEmptyLines(out)
	if len(lines) < 2 {
		return nil
	}

	header := lines[0]
	cols := map[string]int{}
	for _, name := range []string{"CONTAINER ID", "IMAGE", "COMMAND", "CREATED", "STATUS", "PORTS", "NAMES"} {
		cols[name] = strings.Index(header, name)
	}
	if cols["CONTAINER ID"] < 0 || cols["STATUS"] < 0 || cols["NAMES"] < 0 {
		return nil
	}

	var cs []Container
	for _, line := range lines[1:] {
		c := Container{
			ID:     column(line, cols["CONTAINER ID"], nextOffset(cols, cols["CONTAINER ID"])),
			Image:  column(line, cols["IMAGE"], nextOffset(cols, cols["IMAGE"])),
			Status: column(line, cols["STATUS"], nextOffset(cols, cols["STATUS"])),
			Name:   column(line, cols["NAMES"], -1),
		}
		if c.Name == "" {
			continue
		}
		cs = append(cs, c)
	}
	return cs
}

// nextOffset returns the start of the column after start, or -1.
func nextOffset(cols map[string]int, start int) int {
	next := -1
	for _, off := range cols {
		if off > start && (next < 0 || off < next) {
			next = off
		}
	}
	return next
}

// column slices by rune offset; docker pads columns by characters and
// truncates commands with a multi-byte ellipsis.
func column(line string, start, end int) string {
	runes := []rune(line)
	if start < 0 || start >= len(runes) {
		return ""
	}
	if end < 0 || end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[start:end]))
}

// ParseStartedAt parses docker's StartedAt, with fractional seconds first.
func ParseStartedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.IsZero() || t.Year() <= 1 {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func nonEmptyLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines
}
