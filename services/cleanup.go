package services

import (
	"time"

	"rag-docqa-platform/internal/logger"
	"rag-docqa-platform/internal/rag"
)

// CleanupService periodically evicts idle sessions so their in-memory
// indexes do not accumulate forever.
type CleanupService struct {
	registry *rag.Registry
	maxIdle  time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewCleanupService(registry *rag.Registry, maxIdle, interval time.Duration) *CleanupService {
	return &CleanupService{
		registry: registry,
		maxIdle:  maxIdle,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until Stop is called. Run it in its own goroutine.
func (s *CleanupService) Start() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("session cleanup started", "max_idle", s.maxIdle.String(), "interval", s.interval.String())

	for {
		select {
		case <-ticker.C:
			reaped := s.registry.ReapIdle(s.maxIdle)
			if reaped > 0 {
				logger.Info("reaped idle sessions", "count", reaped, "remaining", s.registry.Len())
			}
		case <-s.stopChan:
			logger.Info("session cleanup stopped")
			return
		}
	}
}

func (s *CleanupService) Stop() {
	close(s.stopChan)
}
