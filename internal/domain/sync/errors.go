package sync

import "errors"

var (
	// Queue errors
	ErrQueueItemNotFound     = errors.New("sync: queue item not found")
	ErrQueueInvalidType      = errors.New("sync: invalid queue type")
	ErrQueueInvalidOperation = errors.New("sync: invalid operation type")
	ErrQueueInvalidEntity    = errors.New("sync: invalid entity type")
	ErrQueueEmptyPayload     = errors.New("sync: payload is required")
	ErrQueueNotTerminal      = errors.New("sync: queue item is not in a terminal state")
	ErrQueueAlreadyTerminal  = errors.New("sync: queue item is already in a terminal state")
	ErrQueueNotProcessing    = errors.New("sync: queue item is not being processed")
	ErrQueueClaimLost        = errors.New("sync: queue item claim lost to a concurrent driver")

	// Identity mapping errors
	ErrMappingNotFound  = errors.New("sync: identity mapping not found")
	ErrMappingInvalidID = errors.New("sync: invalid local entity id")
	ErrMappingRebind    = errors.New("sync: mapping already bound to a different external id")

	// Run log errors
	ErrRunNotStarted = errors.New("sync: run has not been started")

	// Error log errors
	ErrErrorLogNotFound = errors.New("sync: error log entry not found")
	ErrAlreadyResolved  = errors.New("sync: error log entry already resolved")
)
