package frontend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/arm"
	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	GUIName       = "consoleGUI"
	RefreshPeriod = 100 * time.Millisecond
)

var armColumns = []string{"Arm", "Type", "Source", "Running", "Cycles"}

// GUI is the interactive front end. It is also a registered component: its
// own task refreshes the arm and component tables while the event loop runs.
type GUI struct {
	component.Periodic
	logger *zap.Logger

	app        *tview.Application
	arms       *tview.Table
	components *tview.Table
	console    *console.Console
	registry   *component.Registry

	ready     chan struct{}
	readyOnce sync.Once
	running   atomic.Bool
}

// NewGUI builds the interface on screen, or on the terminal when screen is nil.
func NewGUI(logger *zap.Logger, screen tcell.Screen) *GUI {
	g := &GUI{
		logger:     logger,
		app:        tview.NewApplication(),
		arms:       tview.NewTable(),
		components: tview.NewTable(),
		ready:      make(chan struct{}),
	}
	if screen != nil {
		g.app.SetScreen(screen)
	}
	g.Periodic = component.NewPeriodic(GUIName, RefreshPeriod, g.step)
	return g
}

func (g *GUI) Attached(registry *component.Registry) {
	g.registry = registry
}

func (g *GUI) Configure(c *console.Console) error {
	g.console = c

	g.arms.SetFixed(1, 0)
	g.arms.SetBorder(true)
	g.arms.SetTitle(" Arms ")
	g.components.SetFixed(1, 0)
	g.components.SetBorder(true)
	g.components.SetTitle(" Components ")
	return nil
}

func (g *GUI) Connect() error {
	if g.console == nil {
		return ErrNotConfigured
	}

	footer := tview.NewTextView().SetText("Press 'q' to quit")
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(g.arms, 0, 2, false).
		AddItem(g.components, 0, 1, false).
		AddItem(footer, 1, 0, false)

	g.app.SetRoot(layout, true)
	g.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == QuitKey {
			g.app.Stop()
			return nil
		}
		return event
	})
	g.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		g.readyOnce.Do(func() {
			g.running.Store(true)
			close(g.ready)
		})
	})
	g.render(g.console.Snapshot(), nil)
	return nil
}

// Run hands the calling goroutine to the event loop until the window is
// closed with the quit key or ctx is cancelled.
func (g *GUI) Run(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-finished:
			return
		}
		// Stopping before the first draw would make Run reopen a screen.
		select {
		case <-g.ready:
		case <-finished:
			return
		}
		g.app.Stop()
	}()

	err := g.app.Run()
	g.running.Store(false)
	close(finished)
	return err
}

func (g *GUI) Kill(ctx context.Context) error {
	if g.running.Load() {
		g.app.Stop()
	}
	return g.Periodic.Kill(ctx)
}

func (g *GUI) step(now time.Time) {
	if !g.running.Load() {
		return
	}
	snapshot := g.console.Snapshot()
	var statuses []component.Status
	if g.registry != nil {
		statuses = g.registry.Statuses()
	}
	g.app.QueueUpdateDraw(func() {
		g.render(snapshot, statuses)
	})
}

func (g *GUI) render(snapshot []arm.State, statuses []component.Status) {
	g.arms.Clear()
	for col, title := range armColumns {
		g.arms.SetCell(0, col, tview.NewTableCell(title).SetTextColor(tcell.ColorYellow).SetSelectable(false))
	}
	for i, state := range snapshot {
		row := i + 1
		g.arms.SetCell(row, 0, tview.NewTableCell(state.Name))
		g.arms.SetCell(row, 1, tview.NewTableCell(state.Type))
		g.arms.SetCell(row, 2, tview.NewTableCell(state.Source))
		g.arms.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%t", state.Running)))
		g.arms.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d", state.Cycles)))
	}

	g.components.Clear()
	g.components.SetCell(0, 0, tview.NewTableCell("Component").SetTextColor(tcell.ColorYellow).SetSelectable(false))
	g.components.SetCell(0, 1, tview.NewTableCell("State").SetTextColor(tcell.ColorYellow).SetSelectable(false))
	for i, status := range statuses {
		g.components.SetCell(i+1, 0, tview.NewTableCell(status.Name))
		g.components.SetCell(i+1, 1, tview.NewTableCell(status.State))
	}
}
