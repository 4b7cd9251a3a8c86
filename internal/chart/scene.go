package chart

import (
	"errors"
	"sync"
)

var errSceneExists = errors.New("scene already has a chart")

// Scene is an in-memory Surface mirrored by the browser.
type Scene struct {
	mu       sync.RWMutex
	created  bool
	labels   []string
	datasets []Dataset
	opts     Options
	revision uint64
	updates  int
}

// SceneView is a JSON-friendly copy of a Scene.
type SceneView struct {
	Revision uint64    `json:"revision"`
	Created  bool      `json:"created"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
	Options  Options   `json:"options"`
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) CreateChart(labels []string, datasets []Dataset, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created {
		return errSceneExists
	}
	s.created = true
	s.labels = labels
	s.datasets = datasets
	s.opts = opts
	s.revision++
	return nil
}

func (s *Scene) UpdateChart(labels []string, datasets []Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.labels = labels
	s.datasets = datasets
	s.updates++
	s.revision++
}

func (s *Scene) DestroyChart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = false
	s.labels = nil
	s.datasets = nil
	s.revision++
}

func (s *Scene) View() SceneView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SceneView{
		Revision: s.revision,
		Created:  s.created,
		Labels:   append([]string{}, s.labels...),
		Datasets: append([]Dataset{}, s.datasets...),
		Options:  s.opts,
	}
}

// Updates counts UpdateChart calls.
func (s *Scene) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}
