// Package tui is a minimal live-progress view for one compaction run,
// grounded on rcc's TeaRobotDashboard (pretty/tea_robot_dashboard.go): a
// spinner.Model driven by bubbletea while the work runs in a goroutine,
// styled with lipgloss, replaced by goarchive-style plain colored output
// when stdout isn't a terminal.
/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/gookit/color"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type doneMsg struct {
	result any
	err    error
}

type model struct {
	label   string
	spinner spinner.Model
	done    bool
	result  any
	err     error
	work    func() (any, error)
}

func newModel(label string, work func() (any, error)) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{label: label, spinner: s, work: work}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runWork(m.work))
}

func runWork(work func() (any, error)) tea.Cmd {
	return func() tea.Msg {
		result, err := work()
		return doneMsg{result: result, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render(fmt.Sprintf("✗ %s: %v\n", m.label, m.err))
		}
		return okStyle.Render(fmt.Sprintf("✓ %s\n", m.label))
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), titleStyle.Render(m.label))
}

// RunWithProgress runs work to completion, showing a spinner while it's in
// flight when stdout is a terminal, and falling back to a single
// color-coded status line otherwise (CI logs, piped output).
func RunWithProgress(_ context.Context, label string, work func() (any, error)) (any, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		result, err := work()
		if err != nil {
			color.Red.Println("✗", label+":", err)
		} else {
			color.Green.Println("✓", label)
		}
		return result, err
	}

	m := newModel(label, work)
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm := finalModel.(model)
	return fm.result, fm.err
}
