// Package scheduler drives the periodic new-content scan and the task
// history cleanup.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
	"kandarr/internal/newcontent"
)

// Default scan settings
const (
	DefaultScanCron   = "0 */6 * * *"
	DefaultScanWindow = 24 * time.Hour
	DefaultRetention  = 7 * 24 * time.Hour
)

// Finding pairs a card with its new-content verdict
type Finding struct {
	CardID    string
	Title     string
	Detection newcontent.Detection
	ScannedAt time.Time
}

// Config tunes the scheduled jobs
type Config struct {
	ScanCron   string        // cron expression for the new-content scan
	ScanWindow time.Duration // snapshot age beyond which a card is skipped as stale
	Retention  time.Duration // terminal task history age before cleanup
}

// DefaultConfig returns the shipped schedule
func DefaultConfig() Config {
	return Config{
		ScanCron:   DefaultScanCron,
		ScanWindow: DefaultScanWindow,
		Retention:  DefaultRetention,
	}
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron     *cron.Cron
	detector *newcontent.Orchestrator
	db       *models.Database
	cfg      Config
	logger   *logrus.Logger

	mu       sync.RWMutex
	findings []Finding
}

// NewScheduler creates a new scheduler
func NewScheduler(detector *newcontent.Orchestrator, db *models.Database, cfg Config, logger *logrus.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.ScanCron == "" {
		cfg.ScanCron = def.ScanCron
	}
	if cfg.ScanWindow <= 0 {
		cfg.ScanWindow = def.ScanWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	return &Scheduler{
		cron:     cron.New(),
		detector: detector,
		db:       db,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.cfg.ScanCron, func() {
		s.RunScan()
	})
	if err != nil {
		return fmt.Errorf("failed to add scan job: %w", err)
	}

	// Every hour: drop aged terminal task history
	_, err = s.cron.AddFunc("0 * * * *", func() {
		s.runCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run an initial scan immediately
	go s.RunScan()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// LatestFindings returns the cards flagged with new content on the
// most recent scan
func (s *Scheduler) LatestFindings() []Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// RunScan walks every stored enrichment snapshot and flags cards whose
// tracked content has a newer follow-up available upstream
func (s *Scheduler) RunScan() {
	s.logger.Info("Running new-content scan")

	snapshots, err := s.db.GetAllCachedEnrichments()
	if err != nil {
		s.logger.WithError(err).Error("Failed to load enrichment snapshots")
		return
	}

	var findings []Finding
	scanned, stale := 0, 0
	for _, snapshot := range snapshots {
		if !snapshot.Fresh(s.cfg.ScanWindow) {
			stale++
			continue
		}
		scanned++

		detection := s.detector.Detect(newcontent.Context{
			Data:        snapshot.Data,
			ContentType: snapshot.Data.Type,
			Checklists:  snapshot.Checklists,
		})
		if !detection.HasNewContent {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"card_id": snapshot.CardID,
			"title":   snapshot.Data.Title,
			"found":   detection.Upcoming.Title,
			"status":  detection.Status,
		}).Info("New content available")
		findings = append(findings, Finding{
			CardID:    snapshot.CardID,
			Title:     snapshot.Data.Title,
			Detection: detection,
			ScannedAt: time.Now(),
		})
	}

	s.mu.Lock()
	s.findings = findings
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"scanned": scanned,
		"stale":   stale,
		"flagged": len(findings),
	}).Info("New-content scan completed")
}

// runCleanup drops terminal task history past the retention window
func (s *Scheduler) runCleanup() {
	cutoff := time.Now().Add(-s.cfg.Retention)
	removed, err := s.db.DeleteTasksOlderThan(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Task history cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Cleaned up task history")
	}
}
