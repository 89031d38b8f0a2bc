package peripheral

import (
	"strings"
	"testing"
	"time"
)

type fakeMemory struct {
	cells map[uint16]uint32
}

func (f fakeMemory) Cell(addr uint16) uint32 { return f.cells[addr] }

func TestRenderProducesOneRunePerCell(t *testing.T) {
	mem := fakeMemory{cells: map[uint16]uint32{
		0: uint32('A'),
		1: uint32('B'),
		2: uint32('C'),
		3: uint32('D'),
	}}
	fb := NewFramebuffer(mem, 0, 2, 2, time.Millisecond)

	frame := fb.Render()
	if frame == "" {
		t.Fatalf("expected a non-empty frame")
	}
	rows := strings.Split(frame, "\n")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(rows), frame)
	}
	if !strings.Contains(rows[0], "A") || !strings.Contains(rows[0], "B") {
		t.Fatalf("expected row 0 to hold A and B, got %q", rows[0])
	}
	if !strings.Contains(rows[1], "C") || !strings.Contains(rows[1], "D") {
		t.Fatalf("expected row 1 to hold C and D, got %q", rows[1])
	}
}

func TestRunSkipsIdenticalFrames(t *testing.T) {
	mem := fakeMemory{cells: map[uint16]uint32{0: uint32('X')}}
	fb := NewFramebuffer(mem, 0, 1, 1, time.Millisecond)

	stop := make(chan struct{})
	drawn := 0
	done := make(chan struct{})

	go func() {
		fb.Run(stop, func(string) { drawn++ })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)
	<-done

	if drawn != 1 {
		t.Fatalf("expected the unchanging frame to be drawn exactly once, got %d", drawn)
	}
}

func TestFrameOutOfRangeReadsZero(t *testing.T) {
	mem := fakeMemory{cells: map[uint16]uint32{}}
	fb := NewFramebuffer(mem, 1000, 1, 1, time.Millisecond)
	if fb.Render() == "" {
		t.Fatalf("expected a rendered (if blank) frame for an all-zero window")
	}
}
