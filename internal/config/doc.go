// Package config loads the inboxtriage configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables. Command-line flags are applied on top by
// the cmd package.
//
// Example config.yaml:
//
//	storage:
//	  type: redis
//	  redis:
//	    addr: localhost:6379
//	llm:
//	  model: gemini-1.5-flash-8b
//	  requests_per_minute: 15
//	gmail:
//	  lookback: 48h
//	  max_emails: 10
package config
