// File: cmd/cabinet/progress.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"cabinet/pkg/storage"
)

const maxBarWidth = 60

type progressMsg storage.WriteProgress

// transferModel renders one bar per in-flight transfer, in the order they started
type transferModel struct {
	bar       progress.Model
	transfers map[string]storage.WriteProgress
	order     []string
	cancel    context.CancelFunc
}

func newTransferModel(cancel context.CancelFunc) transferModel {
	return transferModel{
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		transfers: make(map[string]storage.WriteProgress),
		cancel:    cancel,
	}
}

func (m transferModel) Init() tea.Cmd {
	return nil
}

func (m transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
	case progressMsg:
		if _, seen := m.transfers[msg.Key]; !seen {
			m.order = append(m.order, msg.Key)
		}
		m.transfers[msg.Key] = storage.WriteProgress(msg)
	}
	return m, nil
}

func (m transferModel) View() string {
	var sb strings.Builder
	for _, key := range m.order {
		p := m.transfers[key]
		sb.WriteString(key)
		sb.WriteString("\n")
		if p.TotalBytes > 0 {
			sb.WriteString(m.bar.ViewAs(p.Percent()))
			fmt.Fprintf(&sb, "  %s / %s\n", storage.FormatBytes(p.BytesWritten), storage.FormatBytes(p.TotalBytes))
		} else {
			fmt.Fprintf(&sb, "%s written\n", storage.FormatBytes(p.BytesWritten))
		}
	}
	return sb.String()
}

// progressUI drives a bubbletea program fed by a ProgressSink.
// A disabled UI hands out a nil sink and does nothing.
type progressUI struct {
	program *tea.Program
	done    chan struct{}
}

// Starts the progress display when enabled and stderr is a terminal
func startProgress(enabled bool, cancel context.CancelFunc) *progressUI {
	if !enabled || !isatty.IsTerminal(os.Stderr.Fd()) {
		return &progressUI{}
	}

	ui := &progressUI{
		program: tea.NewProgram(newTransferModel(cancel), tea.WithOutput(os.Stderr)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(ui.done)
		ui.program.Run()
	}()
	return ui
}

// Sink is safe for concurrent use by parallel transfers
func (u *progressUI) Sink() storage.ProgressSink {
	if u.program == nil {
		return nil
	}
	return storage.ProgressFunc(func(p storage.WriteProgress) {
		u.program.Send(progressMsg(p))
	})
}

// Stop ends the display and waits for the terminal to be restored
func (u *progressUI) Stop() {
	if u.program == nil {
		return
	}
	u.program.Quit()
	<-u.done
}
