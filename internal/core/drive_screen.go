package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/util"
)

// VideoSource builds the robot's MJPEG feed URL.
type VideoSource interface {
	VideoFeedURL(base string) string
}

// DriveView is what the drive screen displays.
type DriveView struct {
	ActiveDirection model.Command `json:"active_direction,omitempty"`
	Sending         bool          `json:"sending"`
	Scanning        bool          `json:"scanning"`
	LastCommand     model.Command `json:"last_command,omitempty"`
	LastAlert       string        `json:"last_alert,omitempty"`
	VideoFeedURL    string        `json:"video_feed_url,omitempty"`
}

// DriveScreen turns press/release gestures into directives.
type DriveScreen struct {
	addr    AddressSource
	cmd     *Commander
	video   VideoSource
	scanFor time.Duration

	mu       sync.Mutex
	view     DriveView
	inflight int
	scanGen  uint64
	scanT    *time.Timer

	hub Hub[DriveView]
}

// NewDriveScreen creates an unmounted drive screen. scanFor is how long the
// scanning indicator stays lit after an accepted scan_soil.
func NewDriveScreen(addr AddressSource, cmd *Commander, video VideoSource, scanFor time.Duration) *DriveScreen {
	return &DriveScreen{addr: addr, cmd: cmd, video: video, scanFor: scanFor}
}

// Mount resolves the video feed for the configured address.
func (d *DriveScreen) Mount(ctx context.Context) error {
	base, err := resolve(d.addr)
	if err != nil {
		return err
	}
	d.update(func(v *DriveView) {
		v.VideoFeedURL = d.video.VideoFeedURL(base)
		v.LastAlert = ""
	})
	return nil
}

// Unmount releases any held direction and clears the scan indicator.
func (d *DriveScreen) Unmount() {
	d.mu.Lock()
	held := d.view.ActiveDirection != ""
	d.mu.Unlock()

	if held {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := d.Release(ctx); err != nil {
			util.Warn("drive: release on unmount: %v", err)
		}
		cancel()
	}

	d.update(func(v *DriveView) {
		d.stopScanLocked()
		v.Scanning = false
		v.VideoFeedURL = ""
	})
}

// View returns a copy of the current view.
func (d *DriveScreen) View() DriveView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Subscribe streams views after every change.
func (d *DriveScreen) Subscribe() (<-chan DriveView, func()) {
	return d.hub.Subscribe()
}

// Send dispatches any directive the way the drive controls would.
func (d *DriveScreen) Send(ctx context.Context, cmd model.Command) error {
	switch {
	case cmd == model.CmdStop:
		return d.Release(ctx)
	case cmd == model.CmdScanSoil:
		return d.ScanSoil(ctx)
	case cmd.IsMotion():
		return d.Press(ctx, cmd)
	}
	_, err := model.ParseCommand(string(cmd))
	return err
}

// Press holds a direction down.
func (d *DriveScreen) Press(ctx context.Context, cmd model.Command) error {
	if !cmd.IsMotion() {
		return d.cmd.Press(ctx, cmd)
	}
	d.begin()
	err := d.cmd.Press(ctx, cmd)
	d.finish(cmd, err, func(v *DriveView) { v.ActiveDirection = cmd })
	return err
}

// Release lets go of the held direction and stops the robot.
func (d *DriveScreen) Release(ctx context.Context) error {
	d.begin()
	err := d.cmd.Release(ctx)
	d.finish(model.CmdStop, err, func(v *DriveView) {})
	d.update(func(v *DriveView) { v.ActiveDirection = "" })
	return err
}

// ScanSoil asks the robot to sample soil and lights the scan indicator.
func (d *DriveScreen) ScanSoil(ctx context.Context) error {
	d.begin()
	err := d.cmd.Send(ctx, model.CmdScanSoil)
	d.finish(model.CmdScanSoil, err, func(v *DriveView) {
		v.Scanning = true
		d.stopScanLocked()
		d.scanGen++
		gen := d.scanGen
		d.scanT = time.AfterFunc(d.scanFor, func() { d.endScan(gen) })
	})
	return err
}

func (d *DriveScreen) endScan(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.scanGen {
		return
	}
	d.view.Scanning = false
	d.scanT = nil
	d.hub.Publish(d.view)
}

// stopScanLocked cancels a pending indicator reset. Caller holds d.mu.
func (d *DriveScreen) stopScanLocked() {
	if d.scanT != nil {
		d.scanT.Stop()
		d.scanT = nil
	}
	d.scanGen++
}

func (d *DriveScreen) begin() {
	d.update(func(v *DriveView) {
		d.inflight++
		v.Sending = true
	})
}

// finish records the outcome of a directive. Dropped directives are silent:
// they are expected while a button is held or the robot is still busy.
func (d *DriveScreen) finish(cmd model.Command, err error, onSent func(v *DriveView)) {
	d.update(func(v *DriveView) {
		d.inflight--
		v.Sending = d.inflight > 0
		switch {
		case err == nil:
			v.LastCommand = cmd
			v.LastAlert = ""
			onSent(v)
		case errors.Is(err, ErrCommandDropped):
		default:
			v.LastAlert = err.Error()
			if cmd.IsMotion() {
				// the operator is still holding the control
				v.ActiveDirection = cmd
			}
		}
	})
}

// update publishes under d.mu so subscribers see views in mutation order.
func (d *DriveScreen) update(fn func(v *DriveView)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.view)
	d.hub.Publish(d.view)
}
