package probe

import (
	"context"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComposeLabels(t *testing.T) {
	assert.Equal(t, ComposeLabels{Project: "shop", WorkingDir: "/srv/shop", Service: "api"},
		ParseComposeLabels("shop|/srv/shop|api\n"))
	assert.False(t, ParseComposeLabels("||\n").Managed())
	assert.False(t, ParseComposeLabels("<no value>|<no value>|<no value>").Managed())
	assert.False(t, ParseComposeLabels("garbage").Managed())
}

func TestActionCommand(t *testing.T) {
	labels := ComposeLabels{Project: "shop", WorkingDir: "/srv/my shop", Service: "api"}

	assert.Equal(t,
		`cd '/srv/my shop' && (docker compose restart 'api' || docker-compose restart 'api')`,
		ActionCommand("shop-api-1", ActionRestart, labels))
	assert.Equal(t, `docker start 'it'"'"'s'`, ActionCommand("it's", ActionStart, ComposeLabels{}))
}

func TestRunContainerAction(t *testing.T) {
	t.Run("compose managed", func(t *testing.T) {
		ex := newFakeExec(map[string]remote.Result{
			"docker inspect": ok("shop|/srv/shop|api\n"),
			"cd '/srv/shop'": ok(""),
		})

		res, err := RunContainerAction(context.Background(), ex, "shop-api-1", ActionRestart)

		require.NoError(t, err)
		assert.True(t, res.Compose)
		assert.Contains(t, res.Command, "docker compose restart 'api'")
	})

	t.Run("standalone", func(t *testing.T) {
		ex := newFakeExec(map[string]remote.Result{
			"docker inspect": ok("||\n"),
			"docker start":   ok("cache\n"),
		})

		res, err := RunContainerAction(context.Background(), ex, "cache", ActionStart)

		require.NoError(t, err)
		assert.False(t, res.Compose)
		assert.Equal(t, "docker start 'cache'", res.Command)
	})

	t.Run("action fails", func(t *testing.T) {
		ex := newFakeExec(map[string]remote.Result{
			"docker inspect": {Stderr: "No such object", ExitCode: 1},
			"docker restart": {Stderr: "No such container: ghost", ExitCode: 1},
		})

		_, err := RunContainerAction(context.Background(), ex, "ghost", ActionRestart)

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCommand))
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := RunContainerAction(context.Background(), newFakeExec(nil), "x", Action("kill"))
		assert.Error(t, err)
	})
}

func TestContainerRef_String(t *testing.T) {
	ref := ContainerRef{Target: config.Target{ID: "web-1"}, Container: "nginx"}
	assert.Equal(t, "web-1/nginx", ref.String())
}
