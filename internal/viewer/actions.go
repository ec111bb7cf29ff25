package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/sceneio"
)

// Picker asks the user for a model file. It runs off the render thread.
type Picker func() (string, error)

// OpenDialog shows the native open-file dialog filtered to importable
// formats.
func OpenDialog() (string, error) {
	return dialog.File().
		Filter("3D Models", sceneio.Extensions()...).
		Filter("All Files", "*").
		Title("Open Model").
		Load()
}

func (s *Session) handleEvent(e input.Event) {
	switch e.Type {
	case input.EventQuit:
		s.running = false
	case input.EventWindowResize:
		s.renderer.Resize(e.Width, e.Height)
	case input.EventFileDrop:
		s.log.Info("file dropped", zap.String("path", e.Path))
		_ = s.Load(e.Path)
	default:
		s.input.Handle(e)
	}
}

func (s *Session) handleActions() {
	b := s.bindings
	if s.input.Pressed(b.Exit) {
		s.running = false
		return
	}
	if s.input.Pressed(b.Focus) {
		s.refocus()
	}
	if s.input.Pressed(b.Wireframe) {
		mode := s.renderer.ToggleWireframe()
		s.log.Debug("render mode", zap.Stringer("mode", mode))
		s.updateTitle()
	}
	if s.input.Pressed(b.Bounds) {
		s.showBounds = !s.showBounds
	}
	if s.input.Pressed(b.Open) {
		s.openPicker()
	}
	if s.input.Pressed(b.Screenshot) {
		s.capture = true
	}
}

// refocus frames the current model, or the origin when nothing is loaded.
func (s *Session) refocus() {
	if m := s.stage.Current(); m != nil {
		s.camera.Frame(m.Bounds.Size)
		return
	}
	s.camera.FocusOnPoint(s.camera.Target(), 0)
}

// openPicker starts the file dialog unless one is already open. The result
// comes back through s.picked.
func (s *Session) openPicker() {
	if s.picking || s.picker == nil {
		return
	}
	s.picking = true
	pick := s.picker
	go func() {
		path, err := pick()
		s.picked <- pickResult{path: path, err: err}
	}()
}

// pollBackground applies results handed over by the dialog and watcher
// goroutines.
func (s *Session) pollBackground() {
	select {
	case res := <-s.picked:
		s.picking = false
		switch {
		case errors.Is(res.err, dialog.ErrCancelled):
			s.log.Debug("open dialog cancelled")
		case res.err != nil:
			s.log.Error("open dialog failed", zap.Error(res.err))
		case res.path != "":
			_ = s.Load(res.path)
		}
	default:
	}

	if s.watcher != nil {
		select {
		case <-s.watcher.Changed():
			s.reloadAt = s.now().Add(reloadDelay)
		default:
		}
	}
	if !s.reloadAt.IsZero() && !s.now().Before(s.reloadAt) {
		s.reloadAt = time.Time{}
		s.reload()
	}
}

func (s *Session) updateCamera(dt float32) {
	b := s.bindings
	lx, ly := s.input.Look()
	s.camera.Update(dt, camera.Controls{
		Forward:  s.input.Held(b.Forward),
		Back:     s.input.Held(b.Back),
		Left:     s.input.Held(b.Left),
		Right:    s.input.Held(b.Right),
		Up:       s.input.Held(b.Up),
		Down:     s.input.Held(b.Down),
		LookDX:   lx,
		LookDY:   ly,
		Wheel:    s.input.Wheel(),
		FreeLook: s.input.FreeLook(),
	})
	if dx, dy := s.input.Orbit(); dx != 0 || dy != 0 {
		s.camera.Orbit(dx, dy)
	}

	if fl := s.input.FreeLook(); fl != s.relative {
		s.relative = fl
		s.surface.SetRelativeMouse(fl)
	}
}

func (s *Session) updateTitle() {
	title := s.cfg.Window.Title
	if m := s.stage.Current(); m != nil {
		meshes, vertices, triangles := m.Stats()
		title = fmt.Sprintf("%s - %s (%d meshes, %d vertices, %d triangles)",
			title, m.Name, meshes, vertices, triangles)
	}
	if s.renderer.Mode() == renderer.Wireframe {
		title += " [wireframe]"
	}
	if title != s.title {
		s.title = title
		s.surface.SetTitle(title)
	}
}
