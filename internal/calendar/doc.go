// Package calendar creates Google Calendar events for routed calendar
// actions.
package calendar
