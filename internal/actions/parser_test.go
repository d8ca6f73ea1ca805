package actions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare array", raw: `[1,2]`, want: `[1,2]`},
		{name: "surrounded by prose", raw: "Here you go:\n```json\n[{\"a\":1}]\n```\nThanks", want: `[{"a":1}]`},
		{name: "nested arrays keep outermost", raw: `x [[1],[2]] y`, want: `[[1],[2]]`},
		{name: "no brackets", raw: "I cannot help with that.", wantErr: true},
		{name: "no closing bracket", raw: "[1, 2", wantErr: true},
		{name: "no opening bracket", raw: "1, 2]", wantErr: true},
		{name: "reversed", raw: "] and [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.raw)
			if tt.wantErr {
				var pe *ParseError
				require.True(t, errors.As(err, &pe), "expected *ParseError, got %v", err)
				assert.Equal(t, StageExtract, pe.Stage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClassification_WrappedReply(t *testing.T) {
	raw := "Sure! Here is the classification:\n```json\n" + `[
  {
    "email_id": "m1",
    "importance": " Most Important ",
    "subject": "Quarterly review",
    "action_type": "calendar",
    "action_details": {
      "task": "Attend quarterly review",
      "reply_needed": true,
      "reply_message": "I'll be there",
      "event_date": "2024-05-02T10:00:00+05:30",
      "event_end_date": "2024-05-02T11:00:00+05:30",
      "timezone": "Asia/Kolkata"
    }
  },
  {
    "email_id": "m1",
    "importance": "most important",
    "subject": "Quarterly review",
    "action_type": "TASK",
    "action_details": {"task": "Reply to organiser", "reply_needed": true, "reply_message": "I'll be there"}
  }
]` + "\n```"

	batch, err := ParseClassification(raw)
	require.NoError(t, err)
	require.Len(t, batch.Actions, 2)
	assert.Empty(t, batch.Skipped)

	cal := batch.Actions[0]
	assert.Equal(t, "m1", cal.EmailID)
	assert.Equal(t, ImportanceMost, cal.Importance)
	assert.Equal(t, TypeCalendar, cal.ActionType)
	assert.True(t, cal.Details.ReplyNeeded)
	assert.Equal(t, "2024-05-02T10:00:00+05:30", cal.Details.EventDate)
	assert.Equal(t, "Asia/Kolkata", cal.Details.TimeZone)

	task := batch.Actions[1]
	assert.Equal(t, TypeTask, task.ActionType)
	assert.Equal(t, cal.Key(), task.Key())
}

func TestParseClassification_CommentsAndTrailingCommas(t *testing.T) {
	raw := `[
  {
    "email_id": "m2", // identifier
    "importance": "normal",
    "subject": "Newsletter",
    "action_type": "task",
    "action_details": {"task": "Read later",},
  },
]`
	batch, err := ParseClassification(raw)
	require.NoError(t, err)
	require.Len(t, batch.Actions, 1)
	assert.Equal(t, ImportanceNormal, batch.Actions[0].Importance)
	assert.Equal(t, "Read later", batch.Actions[0].Details.Task)
}

func TestParseClassification_PartialItems(t *testing.T) {
	raw := `[
  {"email_id": "ok", "importance": "important", "subject": "A", "action_type": "task", "action_details": {}},
  {"email_id": "bad-type", "importance": "important", "subject": "B", "action_type": "email", "action_details": {}},
  "just a string",
  {"email_id": "bad-shape", "importance": "important", "subject": "C", "action_type": "task", "action_details": {"reply_needed": "yes"}},
  {"email_id": "no-details", "importance": "least important", "subject": "D", "action_type": "calendar"}
]`
	batch, err := ParseClassification(raw)
	require.NoError(t, err)

	require.Len(t, batch.Actions, 2)
	assert.Equal(t, "ok", batch.Actions[0].EmailID)
	assert.Equal(t, "no-details", batch.Actions[1].EmailID)
	assert.Equal(t, Details{}, batch.Actions[1].Details)

	require.Len(t, batch.Skipped, 3)
	assert.Equal(t, 1, batch.Skipped[0].Index)
	assert.Equal(t, "bad-type", batch.Skipped[0].EmailID)
	assert.Contains(t, batch.Skipped[0].Reason, "action_type")
	assert.Equal(t, 2, batch.Skipped[1].Index)
	assert.Equal(t, 3, batch.Skipped[2].Index)
	assert.Equal(t, "bad-shape", batch.Skipped[2].EmailID)
}

func TestParseClassification_EmptyArray(t *testing.T) {
	batch, err := ParseClassification("[]")
	require.NoError(t, err)
	assert.Empty(t, batch.Actions)
	assert.Empty(t, batch.Skipped)
}

func TestParseClassification_WholePayloadErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		stage string
	}{
		{name: "prose only", raw: "No emails need action.", stage: StageExtract},
		{name: "broken json", raw: `[{"email_id": }]`, stage: StageDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := ParseClassification(tt.raw)
			assert.Nil(t, batch)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.stage, pe.Stage)
		})
	}
}

func TestParseSuggestions(t *testing.T) {
	raw := "Here are ten topics:\n[\"Sprint planning\", \" Code reviews \", \"\", \"Conference talks\",]"
	topics, err := ParseSuggestions(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sprint planning", "Code reviews", "Conference talks"}, topics)
}

func TestParseSuggestions_DropsRepeats(t *testing.T) {
	topics, err := ParseSuggestions(`["Invoices", "Travel", " Invoices ", "invoices"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoices", "Travel", "invoices"}, topics)
}

func TestParseSuggestions_Errors(t *testing.T) {
	_, err := ParseSuggestions("none")
	assert.Error(t, err)

	_, err = ParseSuggestions(`["ok", 3]`)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageDecode, pe.Stage)
}

func TestImportance(t *testing.T) {
	assert.Equal(t, ImportanceImportant, NormalizeImportance("  IMPORTANT\n"))
	assert.True(t, ImportanceMost.Actionable())
	assert.True(t, ImportanceImportant.Actionable())
	assert.False(t, ImportanceNormal.Actionable())
	assert.False(t, ImportanceLeast.Actionable())
	assert.True(t, ImportanceLeast.Valid())
	assert.False(t, Importance("urgent").Valid())
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType(" Calendar ")
	assert.True(t, ok)
	assert.Equal(t, TypeCalendar, typ)

	_, ok = ParseType("meeting")
	assert.False(t, ok)
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Stage: StageDecode, Reason: "bad", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "parse decode: bad: boom", err.Error())
	assert.Equal(t, "parse extract: none", (&ParseError{Stage: StageExtract, Reason: "none"}).Error())
}
