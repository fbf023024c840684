// Package scheduler triggers ingestion without a human at the keyboard.
//
// Scheduler runs every data source on a cron schedule. Watcher follows the
// data directory with fsnotify and runs a single data source shortly after
// its files stop changing. Both funnel through the same Scheduler so two
// runs never overlap.
package scheduler
