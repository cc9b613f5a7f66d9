package arm

import (
	"context"
	"testing"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func specs(pairs ...string) []config.ArmSpec {
	out := []config.ArmSpec{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, config.ArmSpec{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func TestBuildOnlyWhitelisted(t *testing.T) {
	tests := []struct {
		name     string
		specs    []config.ArmSpec
		expected []string
	}{
		{
			name:     "name not whitelisted",
			specs:    specs("PSM1", "PSM_DERIVED", "PSM3", "PSM_DERIVED"),
			expected: []string{"PSM1"},
		},
		{
			name:     "type not whitelisted",
			specs:    specs("PSM1", "PSM", "PSM2", "PSM_DERIVED", "MTML", "MTM"),
			expected: []string{"PSM2"},
		},
		{
			name:     "both derived",
			specs:    specs("PSM2", "PSM_DERIVED", "PSM1", "PSM_DERIVED"),
			expected: []string{"PSM2", "PSM1"},
		},
		{
			name:     "no arms",
			specs:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			registry := component.NewRegistry(logger)

			built, err := DefaultFactory(logger).Build(tt.specs, registry)
			require.NoError(t, err)

			assert.Len(t, built, len(tt.expected))
			assert.Equal(t, tt.expected, registry.Names())
		})
	}
}

func TestBuildDuplicateEntry(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := component.NewRegistry(logger)

	built, err := DefaultFactory(logger).Build(specs("PSM1", "PSM_DERIVED", "PSM1", "PSM_DERIVED"), registry)

	assert.True(t, errors.Is(err, component.ErrDuplicateName))
	assert.Len(t, built, 1)
}

func TestRegisterExtendsTable(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := component.NewRegistry(logger)
	factory := DefaultFactory(logger)

	var gotPeriod time.Duration
	factory.Register(config.ArmKey{Name: "ECM", Type: "ECM_DERIVED"}, func(name string, period time.Duration) component.Component {
		gotPeriod = period
		return NewDerivedPSM(name, period)
	})

	_, err := factory.Build(specs("ECM", "ECM_DERIVED"), registry)
	require.NoError(t, err)
	assert.Equal(t, []string{"ECM"}, registry.Names())
	assert.Equal(t, IOPeriod, gotPeriod)
}

func TestDerivedPSMRunsOwnTask(t *testing.T) {
	psm := NewDerivedPSM("PSM1", time.Millisecond)
	ctx := context.Background()

	require.NoError(t, psm.Create(ctx))
	require.NoError(t, psm.Start(ctx))
	assert.Eventually(t, func() bool { return psm.ArmState().Cycles > 0 }, time.Second, time.Millisecond)

	state := psm.ArmState()
	assert.Equal(t, "PSM1", state.Name)
	assert.Equal(t, SourceDerived, state.Source)
	assert.True(t, state.Running)
	assert.False(t, state.LastUpdate.IsZero())

	require.NoError(t, psm.Kill(ctx))
	assert.False(t, psm.ArmState().Running)
}
