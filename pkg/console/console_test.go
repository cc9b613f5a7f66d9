package console

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/arm"
	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConsoleConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConnectBindsRegisteredArms(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := component.NewRegistry(logger)
	require.NoError(t, registry.Register(arm.NewDerivedPSM("PSM1", time.Millisecond)))

	c := New(logger)
	require.NoError(t, c.Configure(writeConsoleConfig(t, `{
		"arms": [{"name": "PSM1", "type": "PSM_DERIVED"}, {"name": "MTMR", "type": "MTM"}],
		"psm-teleops": [{"master": "MTMR", "slave": "PSM1"}]
	}`)))
	require.NoError(t, registry.Register(c))
	require.NoError(t, c.Connect())
	assert.True(t, c.Connected())
	assert.Equal(t, []string{"PSM1", "MTMR"}, c.Arms())

	ctx := context.Background()
	require.NoError(t, registry.CreateAll(ctx, time.Second))
	require.NoError(t, registry.StartAll(ctx, time.Second))
	t.Cleanup(func() {
		_ = registry.KillAll(ctx, time.Second)
	})

	assert.Eventually(t, func() bool { return len(c.Snapshot()) == 2 }, time.Second, time.Millisecond)
	snapshot := c.Snapshot()
	assert.Equal(t, arm.SourceDerived, snapshot[0].Source)
	assert.Equal(t, arm.SourceDefault, snapshot[1].Source)
	assert.Equal(t, "MTM", snapshot[1].Type)
}

func TestConnectRequiresConfigureAndRegistration(t *testing.T) {
	logger := zaptest.NewLogger(t)
	c := New(logger)
	assert.ErrorIs(t, c.Connect(), ErrNotConfigured)

	require.NoError(t, c.Configure(writeConsoleConfig(t, `{"arms": []}`)))
	assert.ErrorIs(t, c.Connect(), ErrNotRegistered)
	assert.ErrorIs(t, c.Configure(writeConsoleConfig(t, `{"arms": []}`)), ErrAlreadyConfigured)
}

func TestConnectRejectsUnknownTeleopArm(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := component.NewRegistry(logger)

	c := New(logger)
	require.NoError(t, c.Configure(writeConsoleConfig(t, `{
		"arms": [{"name": "PSM1", "type": "PSM"}],
		"psm-teleops": [{"master": "MTML", "slave": "PSM1"}]
	}`)))
	require.NoError(t, registry.Register(c))

	assert.Error(t, c.Connect())
	assert.False(t, c.Connected())
}

func TestConfigureMissingFile(t *testing.T) {
	c := New(zaptest.NewLogger(t))
	assert.Error(t, c.Configure(filepath.Join(t.TempDir(), "absent.json")))
}
