package scene

import (
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/logger"
)

// Loader imports a model from a file.
type Loader interface {
	Import(path string) (*Model, error)
}

// Stage holds the one model being displayed.
type Stage struct {
	loader  Loader
	res     gpu.Resources
	current *Model
}

// NewStage creates an empty stage. res releases replaced models.
func NewStage(loader Loader, res gpu.Resources) *Stage {
	return &Stage{loader: loader, res: res}
}

// Load imports path and makes it the current model. The previous model is
// released only after the import succeeded; on error it stays current.
func (s *Stage) Load(path string) (*Model, error) {
	m, err := s.loader.Import(path)
	if err != nil {
		logger.Error("import failed, keeping current model", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	if s.current != nil {
		logger.Debug("releasing model", zap.String("name", s.current.Name))
		s.current.Release(s.res)
	}
	s.current = m
	return m, nil
}

// Current returns the displayed model, or nil.
func (s *Stage) Current() *Model {
	return s.current
}

// Close releases the current model.
func (s *Stage) Close() {
	if s.current != nil {
		s.current.Release(s.res)
		s.current = nil
	}
}
