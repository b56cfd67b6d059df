// Package sync contains the domain model for the Mahak ERP synchronization
// engine: the durable work queue, the cross-system identity mapping store,
// the sync run audit log and the deduplicated error log.
//
// The package defines entities, status enumerations and repository ports.
// Concrete persistence lives in internal/infrastructure/persistence, the
// processing pipeline in internal/application/sync and the background
// drivers in internal/infrastructure/scheduler.
package sync
