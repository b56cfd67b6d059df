package persistence

import (
	"strings"
)

// Sort parameters come straight from query strings, so they are never
// interpolated into SQL without passing the allowlists below first.

// ValidateSortOrder normalizes the sort direction to ASC or DESC, falling
// back to defaultOrder for anything else.
func ValidateSortOrder(order, defaultOrder string) string {
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	default:
		return defaultOrder
	}
}

// ValidateSortField returns the field if it is in the allowlist, otherwise
// defaultField.
func ValidateSortField(field string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(field)
	if allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// sortClause builds a validated ORDER BY expression from caller-supplied sort
// parameters, or returns defaultClause when no acceptable field was given.
func sortClause(field, order string, allowed map[string]bool, defaultClause string) string {
	validated := ValidateSortField(field, allowed, "")
	if validated == "" {
		return defaultClause
	}
	return validated + " " + ValidateSortOrder(order, "DESC")
}

// QueueSortFields are the columns queue listings may sort by
var QueueSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"priority":     true,
	"status":       true,
	"retry_count":  true,
	"scheduled_at": true,
	"processed_at": true,
	"failed_at":    true,
}

// RunLogSortFields are the columns run log listings may sort by
var RunLogSortFields = map[string]bool{
	"created_at":         true,
	"sync_started_at":    true,
	"sync_completed_at":  true,
	"duration_ms":        true,
	"records_processed":  true,
	"records_failed":     true,
	"records_successful": true,
}

// ErrorLogSortFields are the columns error log listings may sort by
var ErrorLogSortFields = map[string]bool{
	"created_at":       true,
	"last_occurred_at": true,
	"occurrence_count": true,
	"severity":         true,
	"error_code":       true,
}
