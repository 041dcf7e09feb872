package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultBatchSize    = 100

	// contentPreviewLength bounds feedback text quoted in log messages.
	contentPreviewLength = 100
)

// ErrPollerRunning is returned by Start on a running poller.
var ErrPollerRunning = errors.New("poller is already running")

// PollerConfig holds poller configuration
type PollerConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// Poller periodically pulls unclassified feedback and hands it to the batch processor.
type Poller struct {
	feedback       FeedbackStore
	batchProcessor *BatchProcessor
	logger         infralogger.Logger

	batchSize    int
	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewPoller creates a new poller
func NewPoller(
	feedback FeedbackStore,
	batchProcessor *BatchProcessor,
	logger infralogger.Logger,
	config PollerConfig,
) *Poller {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = infralogger.NewNop()
	}

	return &Poller{
		feedback:       feedback,
		batchProcessor: batchProcessor,
		logger:         logger,
		batchSize:      config.BatchSize,
		pollInterval:   config.PollInterval,
	}
}

// Start runs the polling loop in the background until ctx ends or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerRunning
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	p.logger.Info("Poller starting",
		infralogger.Int("batch_size", p.batchSize),
		infralogger.Duration("poll_interval", p.pollInterval),
	)

	go p.run(ctx, p.stopChan, p.done)

	return nil
}

// Stop stops the poller and waits for the batch in flight to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	p.logger.Info("Poller stopping")
	<-done
}

// run is the main polling loop
func (p *Poller) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	if _, err := p.ProcessPending(ctx); err != nil {
		p.logger.Error("Failed to process pending feedback on startup", infralogger.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			p.markStopped()
			p.logger.Info("Poller stopped due to context cancellation")
			return
		case <-stop:
			p.logger.Info("Poller stopped")
			return
		case <-ticker.C:
			if _, err := p.ProcessPending(ctx); err != nil {
				p.logger.Error("Failed to process pending feedback", infralogger.Error(err))
			}
		}
	}
}

func (p *Poller) markStopped() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// ProcessPending classifies one batch of unclassified feedback and returns how many
// items were written back.
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	pending, err := p.feedback.ListUnclassified(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query pending feedback: %w", err)
	}

	if len(pending) == 0 {
		p.logger.Debug("No pending feedback found")
		return 0, nil
	}

	p.logger.Info("Found pending feedback", infralogger.Int("count", len(pending)))

	results, err := p.batchProcessor.Process(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("batch processing failed: %w", err)
	}

	written := 0
	var failedIDs []int64
	for _, result := range results {
		if result.Error != nil {
			failedIDs = append(failedIDs, result.Feedback.ID)
			continue
		}
		written++
	}

	if len(failedIDs) > 0 {
		p.logger.Warn("Some feedback items failed classification",
			infralogger.Int("failed_count", len(failedIDs)),
			infralogger.Any("failed_ids", failedIDs),
		)
	}

	return written, nil
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns poller statistics
func (p *Poller) Stats() map[string]any {
	return map[string]any{
		"running":       p.IsRunning(),
		"batch_size":    p.batchSize,
		"poll_interval": p.pollInterval.String(),
		"batch":         p.batchProcessor.Stats(),
	}
}

// contentPreview truncates content for log messages without splitting a rune.
func contentPreview(content string) string {
	if utf8.RuneCountInString(content) <= contentPreviewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:contentPreviewLength]) + "…"
}
