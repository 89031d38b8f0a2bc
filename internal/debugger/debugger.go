// Package debugger implements an interactive single-step TUI over a
// *isa.CPU, replacing the teacher's line-based RunProgramDebugMode REPL
// with a bubbletea program. It drives the CPU through its public Step
// method only - it never reaches into unexported state.
package debugger

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tinyisa/isa"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	regStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	flagOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	flagOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	breakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// registerOrder fixes a stable display order for the Registers() map.
var registerOrder = []isa.Register{isa.ACC, isa.PC, isa.IR, isa.OR, isa.SP, isa.TR, isa.CR}

// Model is the bubbletea model wrapping a single CPU under debug control.
type Model struct {
	cpu         *isa.CPU
	breakpoints map[uint32]bool
	cursor      uint32
	halted      bool
	lastErr     error
	lastInstr   isa.Instruction
}

// New builds a debugger Model around cpu, ready to run as a bubbletea
// program (tea.NewProgram(debugger.New(cpu))).
func New(cpu *isa.CPU) Model {
	return Model{cpu: cpu, breakpoints: make(map[uint32]bool), cursor: cpu.PC()}
}

func (m Model) Init() tea.Cmd { return nil }

// Update implements the teacher's n/r/b keybindings: n single-steps, r
// runs to completion or the next breakpoint, b toggles a breakpoint on
// the cursor line, arrow keys move the cursor, q quits.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		m.step()
	case "r":
		m.runToBreakpoint()
	case "b":
		addr := m.cursor
		m.breakpoints[addr] = !m.breakpoints[addr]
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if int(m.cursor) < len(m.cpu.DRAM)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m *Model) step() {
	if m.halted {
		return
	}
	instr, err := m.cpu.Step()
	m.lastInstr = instr
	m.cursor = m.cpu.PC()
	if err != nil {
		m.lastErr = err
		m.halted = true
	}
}

func (m *Model) runToBreakpoint() {
	for !m.halted {
		m.step()
		if m.halted || m.breakpoints[m.cpu.PC()] {
			return
		}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("tinyisa debugger"))
	b.WriteString("\n\n")

	regs := m.cpu.Registers()
	for _, r := range registerOrder {
		fmt.Fprintf(&b, "%s ", regStyle.Render(fmt.Sprintf("%-3s=%d", r, regs[r])))
	}
	b.WriteString("\n\n")

	b.WriteString(renderFlag("zero", m.cpu.Flags.Zero))
	b.WriteString(renderFlag("lt", m.cpu.Flags.LT))
	b.WriteString(renderFlag("gt", m.cpu.Flags.GT))
	b.WriteString(renderFlag("eq", m.cpu.Flags.EQ))
	b.WriteString(renderFlag("overflow", m.cpu.Flags.Overflow))
	b.WriteString("\n\n")

	if m.lastInstr.Op != isa.OpUnknown || m.lastErr != nil {
		fmt.Fprintf(&b, "last: %s\n", m.lastInstr)
	}
	if m.lastErr != nil {
		fmt.Fprintf(&b, "%s\n", errStyle.Render(m.lastErr.Error()))
	}

	b.WriteString("\n")
	for i, word := range m.cpu.DRAM {
		if word == 0 && uint32(i) != m.cursor {
			continue
		}
		marker := "  "
		if uint32(i) == m.cursor {
			marker = "> "
		}
		line := fmt.Sprintf("%s[%3d] 0x%08x", marker, i, word)
		if m.breakpoints[uint32(i)] {
			line = breakStyle.Render(line + " *")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("n: step   r: run to breakpoint   b: toggle breakpoint   j/k: move   q: quit"))
	return b.String()
}

func renderFlag(name string, on bool) string {
	if on {
		return flagOnStyle.Render(name) + " "
	}
	return flagOffStyle.Render(name) + " "
}
