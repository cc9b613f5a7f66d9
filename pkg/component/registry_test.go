package component

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeComponent struct {
	name      string
	log       *callLog
	createErr error
	block     chan struct{}
	killBlock chan struct{}
	attached  *Registry
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Create(ctx context.Context) error {
	f.log.add("create " + f.name)
	if f.block != nil {
		<-f.block
	}
	return f.createErr
}

func (f *fakeComponent) Start(ctx context.Context) error {
	f.log.add("start " + f.name)
	return nil
}

func (f *fakeComponent) Kill(ctx context.Context) error {
	f.log.add("kill " + f.name)
	if f.killBlock != nil {
		<-f.killBlock
	}
	return nil
}

func (f *fakeComponent) Cleanup() error {
	f.log.add("cleanup " + f.name)
	return nil
}

func (f *fakeComponent) Attached(registry *Registry) { f.attached = registry }

func newFakes(log *callLog, names ...string) []*fakeComponent {
	fakes := make([]*fakeComponent, 0, len(names))
	for _, name := range names {
		fakes = append(fakes, &fakeComponent{name: name, log: log})
	}
	return fakes
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	log := &callLog{}

	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: log}))
	err := registry.Register(&fakeComponent{name: "PSM1", log: log})

	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.Equal(t, 1, registry.Len())
}

func TestRegisterAttaches(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	fake := &fakeComponent{name: "console", log: &callLog{}}

	require.NoError(t, registry.Register(fake))
	assert.Same(t, registry, fake.attached)
}

func TestRegisterAfterSealFails(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	log := &callLog{}
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: log}))
	require.NoError(t, registry.CreateAll(context.Background(), time.Second))

	err := registry.Register(&fakeComponent{name: "late", log: log})
	assert.True(t, errors.Is(err, ErrRegistrySealed))
}

func TestLifecycleOrder(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	log := &callLog{}
	for _, fake := range newFakes(log, "PSM1", "console", "dVRKBridge") {
		require.NoError(t, registry.Register(fake))
	}

	ctx := context.Background()
	require.NoError(t, registry.CreateAll(ctx, time.Second))
	require.NoError(t, registry.StartAll(ctx, time.Second))
	state, ok := registry.State("console")
	require.True(t, ok)
	assert.Equal(t, StateRunning, state)

	require.NoError(t, registry.KillAll(ctx, time.Second))
	require.NoError(t, registry.Cleanup())

	assert.Equal(t, []string{
		"create PSM1", "create console", "create dVRKBridge",
		"start PSM1", "start console", "start dVRKBridge",
		"kill dVRKBridge", "kill console", "kill PSM1",
		"cleanup dVRKBridge", "cleanup console", "cleanup PSM1",
	}, log.all())

	for _, status := range registry.Statuses() {
		assert.Equal(t, StateCleanedUp.String(), status.State)
	}
}

func TestStartBeforeCreateIsInvalid(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: &callLog{}}))

	err := registry.StartAll(context.Background(), time.Second)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCreateTimeoutReportsPending(t *testing.T) {
	// the abandoned call finishes after the test, so it must not log through t
	registry := NewRegistry(zap.NewNop())
	log := &callLog{}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: log}))
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: log, block: release}))
	require.NoError(t, registry.Register(&fakeComponent{name: "dVRKBridge", log: log}))

	err := registry.CreateAll(context.Background(), 50*time.Millisecond)

	var timeout *BarrierTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, StateCreated, timeout.Target)
	assert.Equal(t, []string{"console", "dVRKBridge"}, timeout.Pending)

	state, _ := registry.State("PSM1")
	assert.Equal(t, StateCreated, state)
	state, _ = registry.State("dVRKBridge")
	assert.Equal(t, StateConstructed, state)
}

func TestKillAfterFailedCreate(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	log := &callLog{}
	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: log}))
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: log, createErr: errors.New("bad port")}))

	err := registry.CreateAll(context.Background(), time.Second)
	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, "console", transitionErr.Name)

	require.NoError(t, registry.KillAll(context.Background(), time.Second))
	require.NoError(t, registry.Cleanup())

	// console never reached Created, so only PSM1 sees a kill call.
	assert.Equal(t, []string{
		"create PSM1", "create console",
		"kill PSM1",
		"cleanup console", "cleanup PSM1",
	}, log.all())
}

func TestKillTimeoutStillKillsOthers(t *testing.T) {
	// the abandoned call finishes after the test, so it must not log through t
	registry := NewRegistry(zap.NewNop())
	log := &callLog{}
	stalled := make(chan struct{})
	t.Cleanup(func() { close(stalled) })

	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: log}))
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: log}))
	require.NoError(t, registry.Register(&fakeComponent{name: "dVRKBridge", log: log, killBlock: stalled}))

	ctx := context.Background()
	require.NoError(t, registry.CreateAll(ctx, time.Second))
	require.NoError(t, registry.StartAll(ctx, time.Second))

	err := registry.KillAll(ctx, 50*time.Millisecond)
	var timeout *BarrierTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, StateKilled, timeout.Target)
	assert.Equal(t, []string{"dVRKBridge"}, timeout.Pending)

	for _, name := range []string{"PSM1", "console"} {
		state, _ := registry.State(name)
		assert.Equal(t, StateKilled, state, name)
	}
	state, _ := registry.State("dVRKBridge")
	assert.Equal(t, StateRunning, state)

	err = registry.Cleanup()
	assert.True(t, errors.Is(err, ErrCallInFlight))
	calls := log.all()
	assert.Contains(t, calls, "cleanup console")
	assert.Contains(t, calls, "cleanup PSM1")
	assert.NotContains(t, calls, "cleanup dVRKBridge")
}

func TestKillWaitsForLateCreate(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	log := &callLog{}
	release := make(chan struct{})
	require.NoError(t, registry.Register(&fakeComponent{name: "healthServer", log: log, block: release}))

	err := registry.CreateAll(context.Background(), 20*time.Millisecond)
	var timeout *BarrierTimeoutError
	require.True(t, errors.As(err, &timeout))

	time.AfterFunc(20*time.Millisecond, func() { close(release) })
	require.NoError(t, registry.KillAll(context.Background(), time.Second))
	require.NoError(t, registry.Cleanup())

	// the late Create completed, so the component is killed like any other
	assert.Equal(t, []string{"create healthServer", "kill healthServer", "cleanup healthServer"}, log.all())
}

func TestCleanupSkipsCreateInFlight(t *testing.T) {
	// the abandoned call finishes after the test, so it must not log through t
	registry := NewRegistry(zap.NewNop())
	log := &callLog{}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: log}))
	require.NoError(t, registry.Register(&fakeComponent{name: "console", log: log, block: release}))

	ctx := context.Background()
	require.Error(t, registry.CreateAll(ctx, 20*time.Millisecond))

	err := registry.KillAll(ctx, 20*time.Millisecond)
	var timeout *BarrierTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, []string{"console"}, timeout.Pending)

	err = registry.Cleanup()
	assert.True(t, errors.Is(err, ErrCallInFlight))
	assert.Equal(t, []string{"create PSM1", "create console", "kill PSM1", "cleanup PSM1"}, log.all())
}

func TestOnTransition(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, registry.Register(&fakeComponent{name: "PSM1", log: &callLog{}}))

	var seen []State
	registry.OnTransition(func(name string, state State) {
		assert.Equal(t, "PSM1", name)
		seen = append(seen, state)
	})

	ctx := context.Background()
	require.NoError(t, registry.CreateAll(ctx, time.Second))
	require.NoError(t, registry.StartAll(ctx, time.Second))
	require.NoError(t, registry.KillAll(ctx, time.Second))
	require.NoError(t, registry.Cleanup())

	assert.Equal(t, []State{StateCreated, StateRunning, StateKilled, StateCleanedUp}, seen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "constructed", StateConstructed.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "cleaned_up", StateCleanedUp.String())
}
