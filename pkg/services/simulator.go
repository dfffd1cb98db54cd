package services

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
)

// Simulator runs a fixed sequence of artificial step delays and reports
// progress after each step. It stands in for real processing work.
type Simulator struct {
	StepDelay time.Duration
	Steps     int
}

// NewSimulator builds a Simulator from configuration.
func NewSimulator(cfg config.SimulationConfig) Simulator {
	return Simulator{StepDelay: cfg.StepDelay, Steps: cfg.Steps}
}

// InstantSimulator completes in a single step with no delay.
func InstantSimulator() Simulator {
	return Simulator{}
}

// Run waits for each step and calls onProgress with the completed percentage.
// The final call always reports 100. Returns ctx.Err() if cancelled mid-sequence.
func (s Simulator) Run(ctx context.Context, onProgress func(percent int)) error {
	steps := s.Steps
	if steps <= 0 {
		steps = 1
	}

	for i := 1; i <= steps; i++ {
		if s.StepDelay > 0 {
			timer := time.NewTimer(s.StepDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if onProgress != nil {
			onProgress(i * 100 / steps)
		}
	}
	return nil
}
