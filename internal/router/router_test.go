package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/actions"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func testRouter(synthesize bool) *Router {
	return &Router{
		Now:                  func() time.Time { return fixedNow },
		SynthesizeReplyTasks: synthesize,
	}
}

func task(id string, importance actions.Importance) actions.ClassifiedAction {
	return actions.ClassifiedAction{
		EmailID:    id,
		Importance: importance,
		Subject:    "Subject " + id,
		ActionType: actions.TypeTask,
		Details:    actions.Details{Task: "Do " + id},
	}
}

func calendar(id string) actions.ClassifiedAction {
	return actions.ClassifiedAction{
		EmailID:    id,
		Importance: actions.ImportanceImportant,
		Subject:    "Meeting " + id,
		ActionType: actions.TypeCalendar,
		Details: actions.Details{
			Task:         "Attend " + id,
			EventDate:    "2024-05-02T10:00:00+05:30",
			EventEndDate: "2024-05-02T11:00:00+05:30",
			TimeZone:     "Asia/Kolkata",
		},
	}
}

func TestRoute_MixedBatch(t *testing.T) {
	batch := []actions.ClassifiedAction{
		task("t1", actions.ImportanceImportant),
		calendar("c1"),
		task("t2", actions.ImportanceMost),
		task("t3", actions.ImportanceNormal),
		calendar("c2"),
	}

	res := testRouter(true).Route(batch)

	require.Len(t, res.Tasks, 2)
	require.Len(t, res.Events, 2)
	assert.Equal(t, 1, res.Filtered)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.Synthesized)

	assert.Equal(t, "Subject t1", res.Tasks[0].Title)
	assert.Equal(t, "Do t1", res.Tasks[0].Notes)
	assert.Equal(t, "Subject t2", res.Tasks[1].Title)

	assert.Equal(t, CalendarEntry{
		EmailID:     "c1",
		Summary:     "Meeting c1",
		Description: "Attend c1",
		Start:       EventTime{DateTime: "2024-05-02T10:00:00+05:30", TimeZone: "Asia/Kolkata"},
		End:         EventTime{DateTime: "2024-05-02T11:00:00+05:30", TimeZone: "Asia/Kolkata"},
	}, res.Events[0])
}

func TestRoute_DualEntrySupplied(t *testing.T) {
	cal := calendar("m1")
	cal.Details.ReplyNeeded = true
	cal.Details.ReplyMessage = "See you there"

	reply := actions.ClassifiedAction{
		EmailID:    "m1",
		Importance: actions.ImportanceImportant,
		Subject:    cal.Subject,
		ActionType: actions.TypeTask,
		Details:    actions.Details{Task: "Confirm attendance", ReplyNeeded: true, ReplyMessage: "See you there"},
	}

	for _, synthesize := range []bool{true, false} {
		res := testRouter(synthesize).Route([]actions.ClassifiedAction{cal, reply})

		require.Len(t, res.Events, 1)
		require.Len(t, res.Tasks, 1)
		assert.Equal(t, res.Events[0].Summary, res.Tasks[0].Title)
		assert.Equal(t, "Confirm attendance\n\n[Reply Needed]\nSuggested Reply: See you there", res.Tasks[0].Notes)
		assert.Zero(t, res.Synthesized)
		assert.Zero(t, res.Unpaired)
	}
}

func TestRoute_SynthesizesMissingTwin(t *testing.T) {
	cal := calendar("m1")
	cal.Importance = actions.ImportanceMost
	cal.Details.ReplyNeeded = true

	res := testRouter(true).Route([]actions.ClassifiedAction{cal})

	require.Len(t, res.Events, 1)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, 1, res.Synthesized)
	assert.Equal(t, "m1", res.Tasks[0].EmailID)
	assert.Equal(t, cal.Subject, res.Tasks[0].Title)
	assert.Equal(t, "Reply to: Meeting m1\n\n[Reply Needed]\nSuggested Reply: No reply message provided.", res.Tasks[0].Notes)
}

func TestRoute_SynthesizedTwinIsFiltered(t *testing.T) {
	cal := calendar("m1")
	cal.Importance = actions.ImportanceNormal
	cal.Details.ReplyNeeded = true

	res := testRouter(true).Route([]actions.ClassifiedAction{cal})

	assert.Len(t, res.Events, 1)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, 1, res.Synthesized)
	assert.Equal(t, 1, res.Filtered)
}

func TestRoute_NoSynthesisReportsUnpaired(t *testing.T) {
	cal := calendar("m1")
	cal.Details.ReplyNeeded = true

	res := testRouter(false).Route([]actions.ClassifiedAction{cal})

	assert.Len(t, res.Events, 1)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, 1, res.Unpaired)
	assert.Zero(t, res.Synthesized)
}

func TestRoute_SkipsUnknownType(t *testing.T) {
	bad := task("x", actions.ImportanceMost)
	bad.ActionType = "email"
	empty := task("y", actions.ImportanceMost)
	empty.ActionType = ""

	res := testRouter(true).Route([]actions.ClassifiedAction{bad, task("ok", actions.ImportanceMost), empty})

	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "ok", res.Tasks[0].EmailID)
}

func TestRoute_Defaults(t *testing.T) {
	a := actions.ClassifiedAction{EmailID: "d", Importance: " Important ", ActionType: actions.TypeCalendar}
	ta := actions.ClassifiedAction{
		EmailID:    "d",
		Importance: actions.ImportanceImportant,
		Subject:    "Reply",
		ActionType: actions.TypeTask,
		Details:    actions.Details{ReplyNeeded: true},
	}

	res := testRouter(true).Route([]actions.ClassifiedAction{a, ta})

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, DefaultSummary, ev.Summary)
	assert.Equal(t, DefaultEventDescription, ev.Description)
	assert.Equal(t, EventTime{DateTime: "2024-05-01T10:00:00Z", TimeZone: DefaultTimeZone}, ev.Start)
	assert.Equal(t, EventTime{DateTime: "2024-05-01T11:00:00Z", TimeZone: DefaultTimeZone}, ev.End)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, DefaultTaskNotes+"\n\n[Reply Needed]\nSuggested Reply: "+DefaultReplyMessage, res.Tasks[0].Notes)
}

func TestRoute_EmptyBatch(t *testing.T) {
	res := testRouter(true).Route(nil)
	assert.NotNil(t, res.Events)
	assert.NotNil(t, res.Tasks)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Tasks)
}

func TestEventWindow(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "both present",
			start:     "2024-05-02T10:00:00+05:30",
			end:       "2024-05-02T12:00:00+05:30",
			wantStart: "2024-05-02T10:00:00+05:30",
			wantEnd:   "2024-05-02T12:00:00+05:30",
		},
		{
			name:      "missing end",
			start:     "2024-05-02T10:00:00+05:30",
			wantStart: "2024-05-02T10:00:00+05:30",
			wantEnd:   "2024-05-02T11:00:00+05:30",
		},
		{
			name:      "missing start",
			end:       "2024-05-02T12:00:00+05:30",
			wantStart: "2024-05-01T10:00:00Z",
			wantEnd:   "2024-05-01T11:00:00Z",
		},
		{
			name:      "unparseable start without end",
			start:     "tomorrow morning",
			wantStart: "tomorrow morning",
			wantEnd:   "2024-05-01T11:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := eventWindow(tt.start, tt.end, fixedNow)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestNextFullHour(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t,
		time.Date(2024, 5, 1, 10, 0, 0, 0, ist),
		NextFullHour(time.Date(2024, 5, 1, 9, 30, 0, 0, ist)))
	assert.Equal(t,
		time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		NextFullHour(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)))
}

func TestNew(t *testing.T) {
	r := New(nil)
	assert.True(t, r.SynthesizeReplyTasks)
	assert.NotNil(t, r.Now)
}
