// Package triage wires the preference store, prompt builder, parser and
// router to the mail, model, task and calendar collaborators.
//
// A run has four stages. FetchEmails persists unread mail. SuggestTopics
// turns the top general preferences into a specific topic catalog.
// Organize classifies the persisted mail and dispatches the routed entries.
// A missing persisted input makes Organize report a skipped run instead of
// failing.
package triage
