// Package tasks creates Google Tasks entries for routed task actions.
package tasks
