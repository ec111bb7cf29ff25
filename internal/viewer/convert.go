package viewer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/encoding"
)

func cameraConfig(c config.CameraConfig) camera.Config {
	cfg := camera.DefaultConfig()
	cfg.FOV = c.FOV
	cfg.MinFOV = c.MinFOV
	cfg.MaxFOV = c.MaxFOV
	cfg.ZoomStep = c.ZoomStep
	cfg.Near = c.Near
	cfg.Far = c.Far
	cfg.Speed = c.Speed
	cfg.Sensitivity = c.Sensitivity
	cfg.OrbitSensitivity = c.OrbitSensitivity
	cfg.MinFocusDistance = c.MinFocusDistance
	cfg.FrameSafety = c.FrameSafety
	return cfg
}

func rendererConfig(c config.RenderConfig, width, height int) renderer.Config {
	cfg := renderer.DefaultConfig()
	cfg.Width = width
	cfg.Height = height
	if c.Wireframe {
		cfg.Mode = renderer.Wireframe
	}
	cfg.ClearColor = mgl32.Vec3(c.ClearColor)
	cfg.HighlightColor = mgl32.Vec3(c.HighlightColor)
	cfg.BoundsColor = mgl32.Vec3(c.BoundsColor)
	cfg.WireframeLineWidth = c.WireframeLineWidth
	return cfg
}

func importOptions(c config.ImportConfig) (scene.Options, error) {
	opts := scene.DefaultOptions()
	cs, err := encoding.ParseCharset(c.TextureCharset)
	if err != nil {
		return scene.Options{}, fmt.Errorf("import: %w", err)
	}
	opts.Charset = cs
	opts.MaxTextureSize = c.MaxTextureSize
	return opts, nil
}
