package actions

import "fmt"

// Parse stages reported in ParseError.Stage.
const (
	StageExtract = "extract"
	StageDecode  = "decode"
)

// ParseError reports a model reply that could not be turned into a batch
// at all. Nothing from such a reply is persisted.
type ParseError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Stage, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PartialItemError describes one array element that was skipped while the
// rest of the batch was kept.
type PartialItemError struct {
	Index   int    `json:"index"`
	EmailID string `json:"email_id,omitempty"`
	Reason  string `json:"reason"`
}

func (e PartialItemError) Error() string {
	if e.EmailID != "" {
		return fmt.Sprintf("item %d (email %s): %s", e.Index, e.EmailID, e.Reason)
	}
	return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
}
