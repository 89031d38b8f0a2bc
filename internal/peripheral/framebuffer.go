// Package peripheral implements external collaborators that observe a
// running CPU without driving it: consumers of the CPU's public,
// read-only surface, never another mutator of its DRAM.
package peripheral

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tinyisa/isa"
)

// MemoryReader is the read-only slice of *isa.CPU a peripheral needs: it
// never calls Step, SetCell, or anything else that would make the
// peripheral a second mutator of CPU state.
type MemoryReader interface {
	Cell(addr uint16) uint32
}

var glyphStyle = lipgloss.NewStyle()

// Framebuffer polls a DRAM window at a fixed interval and renders it as
// an ANSI character grid. Each DRAM word packs one cell: the low byte is
// the glyph, the next byte is a terminal color attribute taken modulo
// 16 (one of the 16 basic ANSI colors). It never
// writes to DRAM - every tick is a pure read, matching the "merely reads
// the CPU's VRAM between frames" contract.
type Framebuffer struct {
	mem          MemoryReader
	base         uint16
	cols, rows   int
	interval     time.Duration
	lastRendered string
}

// NewFramebuffer builds a Framebuffer reading a cols*rows window of mem
// starting at base, polled every interval.
func NewFramebuffer(mem MemoryReader, base uint16, cols, rows int, interval time.Duration) *Framebuffer {
	return &Framebuffer{mem: mem, base: base, cols: cols, rows: rows, interval: interval}
}

// Render produces the current frame as a string, one styled rune per
// cell, rows separated by newlines.
func (f *Framebuffer) Render() string {
	var b strings.Builder
	for row := 0; row < f.rows; row++ {
		for col := 0; col < f.cols; col++ {
			addr := f.base + uint16(row*f.cols+col)
			cell := f.mem.Cell(addr)
			glyph, color := byte(cell), byte(cell>>8)
			b.WriteString(glyphStyle.Foreground(lipgloss.Color(fmt.Sprintf("%d", color%16))).Render(string(rune(glyph))))
		}
		if row < f.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Run polls at f.interval, invoking draw with each rendered frame, until
// stop is closed. Frames identical to the previous one are skipped, the
// same "don't redraw if nothing changed" discipline the teacher's device
// poll loop applies to its own select-driven goroutine.
func (f *Framebuffer) Run(stop <-chan struct{}, draw func(frame string)) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := f.Render()
			if frame == f.lastRendered {
				continue
			}
			f.lastRendered = frame
			draw(frame)
		}
	}
}

// cpuReader adapts *isa.CPU to MemoryReader without exposing any of the
// CPU's mutating methods to this package.
type cpuReader struct {
	cpu *isa.CPU
}

func (r cpuReader) Cell(addr uint16) uint32 {
	if int(addr) >= len(r.cpu.DRAM) {
		return 0
	}
	return r.cpu.DRAM[addr]
}

// FromCPU wraps cpu as a MemoryReader for NewFramebuffer.
func FromCPU(cpu *isa.CPU) MemoryReader {
	return cpuReader{cpu: cpu}
}
