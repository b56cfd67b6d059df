package scheduler

import "errors"

var (
	// ErrDriverAlreadyRunning is returned when starting a driver twice
	ErrDriverAlreadyRunning = errors.New("sync driver is already running")

	// ErrDriverNotRunning is returned when stopping a driver that never started
	ErrDriverNotRunning = errors.New("sync driver is not running")

	// ErrInvalidConfig is returned when driver configuration is invalid
	ErrInvalidConfig = errors.New("invalid sync driver configuration")

	// ErrInvalidCronSpec is returned for an unparsable reconciliation schedule
	ErrInvalidCronSpec = errors.New("invalid reconciliation cron spec")
)
