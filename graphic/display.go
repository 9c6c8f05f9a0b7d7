// Package graphic draws the level meter on the termbox screen and feeds key
// events back into the session.
package graphic

import (
	"context"
	"fmt"

	"github.com/nsf/termbox-go"
	"github.com/pkg/errors"

	"github.com/standby-cli/standby/dsp"
	"github.com/standby-cli/standby/meter"
)

// Config is the static part of what the display draws.
type Config struct {
	DeviceName  string
	ThresholdDB int
	MinDB       int   // lower bound of the drawn range
	Channels    []int // monitored device channel indices, for row labels
}

// Display handles drawing the meter. It never mutates the snapshots it is
// given.
type Display struct {
	cfg Config

	confirmCh chan struct{}
	done      chan struct{} // closed when the event poller has exited
}

// NewDisplay sets up a display for the given config.
func NewDisplay(cfg Config) *Display {
	if cfg.MinDB >= 0 {
		cfg.MinDB = int(dsp.MinDB)
	}

	return &Display{
		cfg:       cfg,
		confirmCh: make(chan struct{}, 1),
	}
}

// Init initializes the termbox screen.
func (d *Display) Init() error {
	if err := termbox.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize termbox")
	}

	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	return nil
}

// Close restores the terminal. The event poller is unblocked and drained
// first; interrupting termbox after Close is outside its contract.
func (d *Display) Close() {
	if d.done != nil {
		termbox.Interrupt()
		<-d.done
		d.done = nil
	}

	termbox.Close()
}

// Start runs the event poller. The returned context is canceled when the
// user asks to quit (Escape or Ctrl+C).
func (d *Display) Start(ctx context.Context) context.Context {
	dispCtx, cancel := context.WithCancel(ctx)

	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		d.eventPoller(cancel, termbox.PollEvent)
	}()

	return dispCtx
}

// Confirmed signals Enter presses. Max and Average treat one as "finish the
// report now".
func (d *Display) Confirmed() <-chan struct{} {
	return d.confirmCh
}

// eventPoller turns key events into session signals. It returns only on the
// interrupt event, so the Interrupt in Close always has a receiver: quit keys
// cancel the session but keep draining events until teardown.
func (d *Display) eventPoller(cancel context.CancelFunc, poll func() termbox.Event) {
	defer cancel()

	for {
		switch ev := poll(); ev.Type {
		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyEsc, termbox.KeyCtrlC:
				cancel()

			case termbox.KeyEnter:
				select {
				case d.confirmCh <- struct{}{}:
				default:
				}
			}

		case termbox.EventError:
			cancel()

		case termbox.EventInterrupt:
			return
		}
	}
}

// Draw renders one snapshot with the given status line.
func (d *Display) Draw(snap *meter.Snapshot, status string) error {
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return errors.Wrap(err, "failed to clear screen")
	}

	width, _ := termbox.Size()
	if width < 1 {
		return termbox.Flush()
	}

	printText(0, 0, "Device: "+d.cfg.DeviceName, termbox.ColorDefault)
	printText(0, 1, status, termbox.ColorDefault)
	printText(0, 2, fmt.Sprintf("Threshold: %d dB", d.cfg.ThresholdDB), termbox.ColorDefault)

	row := 4
	for i, ch := range d.cfg.Channels {
		title := fmt.Sprintf("channel %d: %6.1f dB (raw %6.1f)", ch, snap.DisplayDB[i], snap.CurrentDB[i])
		attr := termbox.ColorDefault
		if snap.Tripped[i] {
			title += "  TRIPPED"
			attr = termbox.ColorRed | termbox.AttrBold
		}
		printText(0, row, title, attr)

		d.drawGauge(row+1, width, snap.DisplayDB[i])
		d.drawScale(row+2, width)

		row += 4
	}

	return errors.Wrap(termbox.Flush(), "failed to flush screen")
}

func (d *Display) drawGauge(row, width int, db float64) {
	ratio := levelRatio(db, float64(d.cfg.MinDB))

	cells := ratio * float64(width)
	filled := int(cells)
	partial := cells - float64(filled)

	for col := 0; col < width; col++ {
		termbox.SetCell(col, row, barRune(col, filled, partial), barColor(col, width), termbox.ColorDefault)
	}
}

func (d *Display) drawScale(row, width int) {
	marker := markerColumn(float64(d.cfg.ThresholdDB), float64(d.cfg.MinDB), width)

	for col := 0; col < width; col++ {
		if label := scaleLabel(col, width, d.cfg.MinDB); label != "" {
			printText(col, row, label, barColor(col, width))
		}
	}

	// The marker wins over whatever label cell it lands on.
	termbox.SetCell(marker, row, '▲', termbox.ColorWhite|termbox.AttrBold, termbox.ColorDefault)
}

func printText(x, y int, text string, fg termbox.Attribute) {
	for _, r := range text {
		termbox.SetCell(x, y, r, fg, termbox.ColorDefault)
		x++
	}
}
