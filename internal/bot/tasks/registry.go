package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names. They are the keys of the scheduler.tasks config section.
const (
	SQLMaintenance = "sql_maintenance"
	PruneOrphans   = "prune_orphans"
)

// RegisterAllTasks initializes and returns a map of all registered scheduled tasks,
// keyed by the name used for configuration lookup.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks[SQLMaintenance] = newSQLMaintenanceTask(deps)
	tasks[PruneOrphans] = newPruneOrphansTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
