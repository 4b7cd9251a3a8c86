package chart

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrChartAlreadyCreated = errors.New("chart already created")
	ErrUnknownDataset      = errors.New("unknown dataset")
)

// Surface is the charting capability the Controller drives.
type Surface interface {
	CreateChart(labels []string, datasets []Dataset, opts Options) error
	// UpdateChart replaces data in place without animating.
	UpdateChart(labels []string, datasets []Dataset)
	DestroyChart()
}

// Controller owns one chart on a Surface. Datasets are matched by label
// across updates so a series hidden from the legend stays hidden.
type Controller struct {
	mu      sync.Mutex
	surface Surface
	opts    Options
	logger  *slog.Logger

	created  bool
	labels   []string
	datasets []Dataset
	hidden   map[string]bool
}

func NewController(surface Surface, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		surface: surface,
		opts:    opts,
		logger:  logger,
		hidden:  make(map[string]bool),
	}
}

// Create draws the chart with the data given so far.
func (c *Controller) Create() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.created {
		return ErrChartAlreadyCreated
	}
	if err := c.surface.CreateChart(c.labels, c.applyHidden(c.datasets), c.opts); err != nil {
		return err
	}
	c.created = true
	return nil
}

// Update swaps labels and datasets. Before Create it only records them.
func (c *Controller) Update(labels []string, datasets []Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.labels = labels
	c.datasets = c.applyHidden(datasets)
	if !c.created {
		return
	}
	c.surface.UpdateChart(c.labels, c.datasets)
	c.logger.Debug("chart updated", "labels", len(labels), "datasets", len(datasets))
}

// SetHidden records a legend toggle for the dataset with label.
func (c *Controller) SetHidden(label string, hidden bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, d := range c.datasets {
		if d.Label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownDataset
	}

	c.hidden[label] = hidden
	c.datasets = c.applyHidden(c.datasets)
	if c.created {
		c.surface.UpdateChart(c.labels, c.datasets)
	}
	return nil
}

// Datasets returns a copy of the current datasets.
func (c *Controller) Datasets() []Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Dataset(nil), c.datasets...)
}

func (c *Controller) Labels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.labels...)
}

func (c *Controller) Created() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Destroy removes the chart. Legend state is kept for a later Create.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.created {
		return
	}
	c.surface.DestroyChart()
	c.created = false
}

func (c *Controller) applyHidden(datasets []Dataset) []Dataset {
	out := make([]Dataset, len(datasets))
	for i, d := range datasets {
		d.Hidden = c.hidden[d.Label]
		out[i] = d
	}
	return out
}
