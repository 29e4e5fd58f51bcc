// Package scheduler runs the greeting agent on a fixed interval
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	businessflow "github.com/hermes-crm/hermes/business_flow"
	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
)

// AgentScheduler triggers a full agent sweep on a ticker. The sweep itself is
// idempotent, so an overlap with a manually triggered run is harmless.
type AgentScheduler struct {
	agentFlow businessflow.AgentFlow
	cfg       config.Agent
	logger    *log.Logger

	logFile *os.File
}

// NewAgentScheduler creates a new agent scheduler
func NewAgentScheduler(agentFlow businessflow.AgentFlow, cfg config.Agent) *AgentScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	s := &AgentScheduler{
		agentFlow: agentFlow,
		cfg:       cfg,
	}

	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger writing to both stdout and a
// persistent file under data/ (or /data for containerized environments).
func (s *AgentScheduler) initSchedulerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *AgentScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	if !s.cfg.Enabled {
		s.logger.Printf("scheduler: disabled by configuration")
		return cancel
	}

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				s.close()
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *AgentScheduler) runOnce(parent context.Context) {
	timeout := s.cfg.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	started := time.Now()
	summary, err := s.agentFlow.RunOnce(ctx, models.TriggeredByScheduler)
	if err != nil {
		s.logger.Printf("scheduler: agent run failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: run=%d finished in %s scanned=%d generated=%d sent=%d skipped=%d errors=%d",
		summary.RunID, time.Since(started).Round(time.Millisecond),
		summary.ScannedEvents, summary.GeneratedGreetings, summary.SentDeliveries,
		summary.SkippedExisting, summary.Errors)
}

func (s *AgentScheduler) close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}
