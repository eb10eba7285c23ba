package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/aggregator"
	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/models"
	"flipradar/server/internal/pricing"
)

// DatasetLoader supplies the data snapshots a recompute pass works over.
type DatasetLoader interface {
	GetMapAreas() ([]models.MapArea, error)
	LoadDataset(areaID int64) (aggregator.Dataset, error)
}

// Scheduler periodically recomputes the unscoped subsegment reports for
// every map area and caches the latest results.
type Scheduler struct {
	loader   DatasetLoader
	store    *evaluations.Store
	pricer   *pricing.Engine
	logger   *logrus.Logger
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential recompute runs

	cacheMu sync.RWMutex
	cache   map[int64][]models.SubsegmentReport
}

// NewScheduler creates a scheduler recomputing every interval. A zero or
// negative interval disables the loop; Recompute can still be called
// directly.
func NewScheduler(loader DatasetLoader, store *evaluations.Store, pricer *pricing.Engine, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		loader:   loader,
		store:    store,
		pricer:   pricer,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
		cache:    make(map[int64][]models.SubsegmentReport),
	}
}

// Start begins the scheduled recompute loop.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Scheduler disabled, no recompute interval configured")
		return
	}

	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Warm the cache once at startup. Tracked by the WaitGroup so Stop
	// waits for it.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup recompute")
		s.recomputeAll(time.Now().UTC())
		s.logger.Info("Startup recompute completed")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.jobMutex.Lock()
			s.recomputeAll(t.UTC())
			s.jobMutex.Unlock()
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// LastReports returns the most recent cached reports for an area, if any.
func (s *Scheduler) LastReports(areaID int64) ([]models.SubsegmentReport, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	reports, ok := s.cache[areaID]
	return reports, ok
}

// Recompute runs one aggregation pass for a single area and refreshes its
// cache entry.
func (s *Scheduler) Recompute(areaID int64, asOf time.Time) ([]models.SubsegmentReport, error) {
	data, err := s.loader.LoadDataset(areaID)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(data, s.store.Snapshot(), s.pricer, s.logger)
	reports := agg.Aggregate(asOf)

	s.cacheMu.Lock()
	s.cache[areaID] = reports
	s.cacheMu.Unlock()
	return reports, nil
}

// recomputeAll refreshes every area's cached reports; one failing area does
// not stop the others.
func (s *Scheduler) recomputeAll(asOf time.Time) {
	areas, err := s.loader.GetMapAreas()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list map areas for recompute")
		return
	}

	for _, area := range areas {
		reports, err := s.Recompute(area.ID, asOf)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"area_id":   area.ID,
				"area_name": area.Name,
			}).Error("Recompute failed for area")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"area_id":     area.ID,
			"area_name":   area.Name,
			"subsegments": len(reports),
		}).Info("Recomputed subsegment reports")
	}
}
