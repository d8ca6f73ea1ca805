// Package router turns a parsed batch of classified actions into calendar
// entries and task entries.
//
// Actions are partitioned strictly by action_type. Only tasks rated
// "important" or "most important" reach the task list. A calendar action
// that needs a reply must travel with a task twin sharing its email_id and
// subject; when the model forgot the twin the router adds one.
package router
