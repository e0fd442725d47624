// Package notifications delivers job events to ntfy.
//
// The topic URL comes from the [notifications] section of config.toml. With no
// topic the service is a no-op, and per-event toggles silence completion or
// failure pushes individually.
package notifications
