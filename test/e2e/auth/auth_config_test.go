//go:build e2e

package auth_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// runUntilExit starts the image and waits for the process to stop,
// returning its exit code and output.
func runUntilExit(t *testing.T, env map[string]string) (int, string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      testImageName,
			Env:        env,
			WaitingFor: wait.ForExit().WithExitTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	state, err := container.State(ctx)
	require.NoError(t, err)

	logs, err := container.Logs(ctx)
	require.NoError(t, err)
	defer logs.Close()
	out, err := io.ReadAll(logs)
	require.NoError(t, err)

	return state.ExitCode, string(out)
}

func TestImageDefaultsToProduction(t *testing.T) {
	t.Run("low bcrypt cost rejected", func(t *testing.T) {
		env := baseEnv()
		delete(env, "ENV")

		code, out := runUntilExit(t, env)
		require.NotZero(t, code)
		require.Contains(t, out, "AUTH_BCRYPT_COST")
	})

	t.Run("seeding needs an explicit password", func(t *testing.T) {
		env := baseEnv()
		delete(env, "ENV")
		delete(env, "AUTH_SEED_PASSWORD")
		env["AUTH_BCRYPT_COST"] = "12"

		code, out := runUntilExit(t, env)
		require.NotZero(t, code)
		require.Contains(t, out, "AUTH_SEED_PASSWORD")
		require.NotContains(t, out, "generated password for seeded accounts")
	})
}
