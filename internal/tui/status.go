// Package tui renders the sync status pane: connectivity badge,
// "N waiting to sync" counter, and drain progress.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/netmon"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/offline"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/tui/styles"
)

// Message types for the TUI

// ConnectivityMsg signals an online/offline transition
type ConnectivityMsg struct {
	Online bool
}

// PendingMsg signals a change in the offline queue depth
type PendingMsg struct {
	Pending int
}

// DrainDoneMsg signals a completed drain pass
type DrainDoneMsg struct {
	Result offline.DrainResult
}

// Model is the status pane model.
type Model struct {
	queue   *offline.Queue
	monitor *netmon.Monitor

	events chan tea.Msg

	spinner  spinner.Model
	online   bool
	pending  int
	failed   int
	draining bool
	lastNote string
}

// NewModel wires the status pane to the queue and monitor. Their
// subscription callbacks are adapted onto a channel so Bubble Tea stays
// the single consumer (same shape as a channel observer).
func NewModel(q *offline.Queue, m *netmon.Monitor) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	model := &Model{
		queue:   q,
		monitor: m,
		events:  make(chan tea.Msg, 16),
		spinner: sp,
		online:  m.IsOnline(),
		pending: q.PendingCount(),
	}

	q.Subscribe(func(pending int) {
		select {
		case model.events <- PendingMsg{Pending: pending}:
		default: // Non-blocking if channel full
		}
	})
	m.Subscribe(func(online bool) {
		select {
		case model.events <- ConnectivityMsg{Online: online}:
		default:
		}
	})

	return model
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			// Manual retry. The queue's single-flight guard makes a
			// concurrent press harmless.
			if !m.draining {
				m.draining = true
				return m, tea.Batch(m.drainCmd(), m.waitForEvent())
			}
		}

	case ConnectivityMsg:
		m.online = msg.Online
		if msg.Online {
			m.lastNote = "back online"
		} else {
			m.lastNote = "connection lost"
		}
		return m, m.waitForEvent()

	case PendingMsg:
		m.pending = msg.Pending
		m.failed = len(m.queue.FailedRequests())
		return m, m.waitForEvent()

	case DrainDoneMsg:
		m.draining = false
		r := msg.Result
		switch {
		case len(r.Failed) > 0:
			m.lastNote = fmt.Sprintf("sync finished, %d entries need attention", len(r.Failed))
		case r.Stopped:
			m.lastNote = "sync interrupted, will retry"
		case len(r.Delivered) > 0:
			m.lastNote = fmt.Sprintf("synced %d entries", len(r.Delivered))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) drainCmd() tea.Cmd {
	return func() tea.Msg {
		return DrainDoneMsg{Result: m.queue.Drain(context.Background())}
	}
}

func (m *Model) View() string {
	badge := styles.OnlineBadge.Render("● online")
	if !m.online {
		badge = styles.OfflineBadge.Render("● offline")
	}

	var body string
	switch {
	case m.draining:
		body = m.spinner.View() + " syncing..."
	case m.pending == 1:
		body = styles.PendingStyle.Render("1 item waiting to sync")
	case m.pending > 1:
		body = styles.PendingStyle.Render(fmt.Sprintf("%d items waiting to sync", m.pending))
	default:
		body = "all changes synced"
	}

	if m.failed > 0 {
		body += "\n" + styles.FailedStyle.Render(fmt.Sprintf("%d failed, check your entries", m.failed))
	}
	if m.lastNote != "" {
		body += "\n" + styles.HintStyle.Render(m.lastNote)
	}

	return styles.PanelStyle.Render(
		styles.TitleStyle.Render("Meal Manager")+"  "+badge+"\n\n"+
			body+"\n\n"+
			styles.HintStyle.Render("r retry · q quit"),
	) + "\n"
}
