// Package history optionally records fired alarms to a local SQLite file.
//
// This is an audit trail, not scheduler state: pending alarms are never
// persisted and a restart starts from an empty queue. The recorder consumes
// fired events off the bus, so a slow or broken store can delay history
// writes but never the firing path itself.
package history
