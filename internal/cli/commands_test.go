package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/ui"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"restore", "restore-all", "plan", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSeedCommandsShareFlags(t *testing.T) {
	shared := []string{
		"connection", "host", "port", "username", "sslmode", "maintenance-db",
		"grant-to", "if-exists", "force", "jobs", "no-owner", "no-privileges",
		"pg-restore", "timeout", "config", "aws", "aws-region", "azure",
		"azure-tenant-id", "azure-client-id",
	}
	for _, cmd := range []string{"restore", "restore-all"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for _, flag := range shared {
			assert.NotNil(t, c.Flags().Lookup(flag), "%s --%s", cmd, flag)
		}
	}

	restore, _, _ := rootCmd.Find([]string{"restore"})
	assert.NotNil(t, restore.Flags().ShorthandLookup("d"))
	assert.NotNil(t, restore.Flags().ShorthandLookup("h"), "-h is the host, as in psql")

	all, _, _ := rootCmd.Find([]string{"restore-all"})
	assert.NotNil(t, all.Flags().Lookup("pattern"))
	assert.Nil(t, all.Flags().Lookup("database"), "directory mode derives every database name")

	plan, _, _ := rootCmd.Find([]string{"plan"})
	assert.NotNil(t, plan.Flags().Lookup("checksums"))
	assert.Nil(t, plan.Flags().Lookup("connection"), "plan never connects")
}

func TestRestoreArgs(t *testing.T) {
	assert.Error(t, restoreCmd.Args(restoreCmd, nil))
	assert.NoError(t, restoreCmd.Args(restoreCmd, []string{"a.tar"}))
	assert.Error(t, restoreCmd.Args(restoreCmd, []string{"a.tar", "b.tar"}))

	assert.NoError(t, restoreAllCmd.Args(restoreAllCmd, nil))
	assert.Error(t, restoreAllCmd.Args(restoreAllCmd, []string{"a", "b"}))
}

func TestSelectApprover(t *testing.T) {
	logger := logging.NewNullLogger()

	assert.IsType(t, &ui.ForcedApprover{}, selectApprover(true, false, false, logger))
	assert.IsType(t, &ui.ForcedApprover{}, selectApprover(true, true, false, logger))
	assert.IsType(t, &ui.InteractiveApprover{}, selectApprover(false, true, false, logger))
	assert.IsType(t, &ui.DenyingApprover{}, selectApprover(false, false, false, logger))
}
