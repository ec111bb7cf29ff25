// Package viewer runs the interactive session: it owns the camera, the
// displayed model, the renderer and the input state, and drives them from
// one frame loop.
package viewer

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
)

const (
	// maxFrameTime caps dt so a blocking import does not move the camera
	// by several seconds worth of input.
	maxFrameTime = 0.1
	// reloadDelay lets an editor finish writing before a watched file is
	// imported again.
	reloadDelay = 150 * time.Millisecond
)

// Surface is the window the session draws into.
type Surface interface {
	PollEvents() []input.Event
	SetRelativeMouse(enabled bool)
	DrawableSize() (width, height int)
	SetTitle(title string)
	SwapBuffers()
}

type pickResult struct {
	path string
	err  error
}

// Session is the viewer state for one window.
type Session struct {
	cfg     *config.Config
	surface Surface
	dev     gpu.Device
	log     *zap.Logger

	renderer *renderer.Renderer
	camera   *camera.Camera
	stage    *scene.Stage
	input    *input.State
	bindings input.Bindings
	shots    *debug.ScreenshotCapture

	running    bool
	showBounds bool
	relative   bool
	capture    bool
	title      string

	// path is the file of the current model.
	path string

	picker  Picker
	picking bool
	picked  chan pickResult

	watcher  *fileWatcher
	reloadAt time.Time

	now       func() time.Time
	fpsStart  time.Time
	fpsFrames int
}

// New builds a session drawing through dev into surface. dev must belong to
// the surface's GL context.
func New(cfg *config.Config, surface Surface, dev gpu.Device) (*Session, error) {
	bindings, err := cfg.Controls.Bindings()
	if err != nil {
		return nil, fmt.Errorf("controls: %w", err)
	}
	opts, err := importOptions(cfg.Import)
	if err != nil {
		return nil, err
	}

	w, h := surface.DrawableSize()
	r, err := renderer.New(dev, rendererConfig(cfg.Render, w, h))
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        cfg,
		surface:    surface,
		dev:        dev,
		log:        logger.Named("viewer"),
		renderer:   r,
		camera:     camera.New(cameraConfig(cfg.Camera)),
		stage:      scene.NewStage(scene.NewImporter(dev, opts), dev),
		input:      input.New(bindings.Look, bindings.Orbit),
		bindings:   bindings,
		shots:      debug.NewScreenshotCapture(cfg.Screenshots.Dir, cfg.Screenshots.Prefix),
		running:    true,
		showBounds: cfg.Render.ShowBounds,
		picker:     OpenDialog,
		picked:     make(chan pickResult, 1),
		now:        time.Now,
	}

	if cfg.Import.Watch {
		s.watcher, err = newFileWatcher()
		if err != nil {
			s.log.Warn("file watching unavailable", zap.Error(err))
		}
	}

	s.updateTitle()
	return s, nil
}

// Load imports path and frames it. On failure the current model stays.
func (s *Session) Load(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m, err := s.stage.Load(path)
	if err != nil {
		return err
	}
	s.renderer.ReleaseOverlay()
	s.path = path
	s.reloadAt = time.Time{}
	s.camera.Frame(m.Bounds.Size)
	s.updateTitle()

	if s.watcher != nil {
		if err := s.watcher.Watch(path); err != nil {
			s.log.Warn("cannot watch model file", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// reload imports the current file again and keeps the camera where it is.
func (s *Session) reload() {
	if s.path == "" {
		return
	}
	s.log.Info("model file changed, reloading", zap.String("path", s.path))
	if _, err := s.stage.Load(s.path); err == nil {
		s.renderer.ReleaseOverlay()
		s.updateTitle()
	}
}

// Model returns the displayed model, or nil.
func (s *Session) Model() *scene.Model {
	return s.stage.Current()
}

// Camera returns the session camera.
func (s *Session) Camera() *camera.Camera {
	return s.camera
}

// Running reports whether the session has not been asked to exit.
func (s *Session) Running() bool {
	return s.running
}

// Run loops until the window closes or the exit key is pressed.
func (s *Session) Run() {
	s.log.Info("entering main loop")
	last := s.now()
	s.fpsStart = last
	for s.running {
		now := s.now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		s.Step(dt)
	}
	s.log.Info("main loop exited")
}

// Step runs one frame: events, actions, camera, render, present.
func (s *Session) Step(dt float32) {
	dt = min(max(dt, 0), maxFrameTime)

	s.input.NewFrame()
	for _, e := range s.surface.PollEvents() {
		s.handleEvent(e)
	}
	if !s.running {
		return
	}

	s.handleActions()
	s.pollBackground()
	s.updateCamera(dt)

	s.renderer.Render(renderer.Frame{
		Camera:     s.camera,
		Model:      s.stage.Current(),
		ShowBounds: s.showBounds,
	})
	if s.capture {
		s.capture = false
		s.screenshot()
	}
	s.surface.SwapBuffers()
	s.countFrame()
}

// Close releases the model, the renderer and the watcher, in that order.
func (s *Session) Close() {
	s.stage.Close()
	s.renderer.Close()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.log.Warn("closing file watcher", zap.Error(err))
		}
		s.watcher = nil
	}
}

func (s *Session) screenshot() {
	w, h := s.renderer.Size()
	name, err := s.shots.Capture(s.dev, w, h)
	if err != nil {
		s.log.Error("screenshot failed", zap.Error(err))
		return
	}
	s.log.Info("screenshot saved", zap.String("path", name))
}

func (s *Session) countFrame() {
	s.fpsFrames++
	now := s.now()
	if s.fpsStart.IsZero() {
		s.fpsStart = now
		return
	}
	elapsed := now.Sub(s.fpsStart)
	if elapsed < time.Second {
		return
	}
	st := s.renderer.Stats()
	s.log.Debug("frame stats",
		zap.Float64("fps", float64(s.fpsFrames)/elapsed.Seconds()),
		zap.Int("drawCalls", st.DrawCalls),
		zap.Int("triangles", st.Triangles),
	)
	s.fpsFrames = 0
	s.fpsStart = now
}
