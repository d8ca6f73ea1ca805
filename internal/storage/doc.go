// Package storage persists inboxtriage's JSON documents.
//
// Two backends implement Store:
//   - FileStore writes <dir>/<key>.json through a temp-file-and-rename so a
//     reader never sees a half-written ranking or action batch.
//   - RedisStore keeps each document under <prefix><key> using go-redis.
//
// A missing document is reported as *MissingResourceError, which matches
// ErrNotFound via errors.Is.
package storage
