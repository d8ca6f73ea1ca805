package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyStage     = "stage"
	KeyTier      = "tier"
	KeyRunID     = "run_id"
	KeyEmailID   = "email_id"
	KeySender    = "sender_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values for consistent logging.
// Duplicated from the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Stage returns a slog attribute for the pipeline stage.
func Stage(stage string) slog.Attr {
	return slog.String(KeyStage, stage)
}

// Tier returns a slog attribute for a preference tier.
func Tier(tier string) slog.Attr {
	return slog.String(KeyTier, tier)
}

// RunID returns a slog attribute for a classification run identifier.
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// EmailID returns a slog attribute for a provider message id.
func EmailID(id string) slog.Attr {
	return slog.String(KeyEmailID, id)
}

// Tool returns a slog attribute for the MCP tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email address so log
// lines can be correlated without exposing who wrote to the mailbox.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// Sender returns a slog attribute with the anonymized sender address.
func Sender(from string) slog.Attr {
	return slog.String(KeySender, AnonymizeEmail(ExtractAddress(from)))
}

// ExtractAddress pulls the bare address out of a From header such as
// `Jane Doe <jane@example.com>`. Headers without angle brackets are returned
// trimmed.
func ExtractAddress(from string) string {
	from = strings.TrimSpace(from)
	start := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return from
}

// SanitizeToken returns a length indicator for a token without exposing any
// of its content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain extracts the domain part from an email address.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(ExtractAddress(email), "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for the sender domain (lower cardinality
// than the full address).
func Domain(email string) slog.Attr {
	return slog.String("sender_domain", ExtractDomain(email))
}
