package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/yaroing/feedback-platform/internal/bootstrap"
)

const stdoutSink = "stdout"

// withComponents loads configuration, wires the components, runs fn and releases them.
// Unless keepStdout is set, logs move to stderr so stdout carries only command output.
func (o *globalOptions) withComponents(
	ctx context.Context,
	keepStdout bool,
	fn func(ctx context.Context, comps *bootstrap.Components) error,
) (err error) {
	cfg, err := bootstrap.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if !keepStdout && cfg.Logging.Output == stdoutSink {
		cfg.Logging.Output = "stderr"
	}

	logger, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	comps, err := bootstrap.NewComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize components: %w", err)
	}
	defer func() {
		if closeErr := comps.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close components: %w", closeErr))
		}
	}()

	return fn(ctx, comps)
}
