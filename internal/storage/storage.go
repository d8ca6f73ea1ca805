package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Keys of the JSON documents persisted by inboxtriage. Each document is
// overwritten wholesale on every write; there is no merge or versioning.
const (
	KeyGeneralPreferences  = "general_preferences"
	KeySpecificPreferences = "specific_preferences"
	KeyTopPreferences      = "top_preferences"
	KeySpecificTopics      = "specific_topics"
	KeyEmails              = "emails"
	KeyActions             = "categorized_emails_and_tasks"
)

// Backend types accepted by New.
const (
	TypeFile  = "file"
	TypeRedis = "redis"
)

// ErrNotFound is matched (via errors.Is) by every MissingResourceError.
var ErrNotFound = errors.New("resource not found")

// MissingResourceError reports that an expected persisted document is absent.
// Downstream stages treat it as "skip", never as a crash.
type MissingResourceError struct {
	Key string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("persisted resource %q not found", e.Key)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *MissingResourceError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound reports whether err marks a missing persisted document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a key-value persistence layer for JSON documents.
type Store interface {
	// Load decodes the document stored under key into v. It returns a
	// *MissingResourceError when nothing is stored under key.
	Load(ctx context.Context, key string, v interface{}) error

	// Save encodes v as JSON and replaces the document stored under key.
	// Readers never observe a partially written document.
	Save(ctx context.Context, key string, v interface{}) error
}

var validKey = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateKey checks that a key is safe to use as a file name and a Redis key
// suffix.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage key cannot be empty")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid storage key %q: only lowercase letters, digits, hyphens and underscores are allowed", key)
	}
	return nil
}

// Config selects and configures a storage backend.
type Config struct {
	// Type is "file" (default) or "redis".
	Type string

	// Dir is the directory holding <key>.json files for the file backend.
	Dir string

	Redis RedisConfig
}

// New creates the backend selected by cfg.Type.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeFile:
		return NewFileStore(cfg.Dir)
	case TypeRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type %q (supported: file, redis)", cfg.Type)
	}
}
