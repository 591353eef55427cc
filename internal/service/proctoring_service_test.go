package service

import (
	"sync"
	"testing"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strict(max *int) func(*model.Exam) {
	return func(e *model.Exam) {
		e.StrictMode = true
		e.MaxSwitchCount = max
	}
}

func TestBlurIsLoggedButNotCounted(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, strict(intPtr(0)), q{model.QuestionTypeSingle, "A", 10})
	sub := f.start(t, examID, studentID)

	res, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventBlur, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SwitchCount)
	assert.False(t, res.Enforced)

	events, err := f.store.ListEvents(f.ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventBlur, events[0].EventType)
}

func TestStrictPolicyForcesSubmitOnThirdSwitch(t *testing.T) {
	f := newFixture(t)
	examID, qids := f.exam(t, strict(intPtr(2)), q{model.QuestionTypeSingle, "A", 10})
	sub := f.start(t, examID, studentID)
	_, err := f.submission.SaveAnswers(f.ctx, sub.ID, studentID, model.Answers{qids[0]: "A"})
	require.NoError(t, err)

	for i, ev := range []model.ProctoringEventType{model.EventTabSwitch, model.EventExitFullscreen} {
		res, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, ev, nil)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.SwitchCount)
		assert.False(t, res.Enforced)
	}

	res, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventTabSwitch, nil)
	require.NoError(t, err)
	assert.True(t, res.Enforced)
	assert.Equal(t, 3, res.SwitchCount)
	require.NotNil(t, res.Submission)

	got, err := f.store.GetSubmission(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, got.Status)
	require.NotNil(t, got.SubmitTime)
	assert.Equal(t, f.clock, *got.SubmitTime)
	assert.Equal(t, model.SubmitReasonProctoring, *got.SubmitReason)
	assert.Equal(t, 10, *got.TotalScore, "forced submit grades persisted answers")
	assert.Len(t, f.store.QueuedOfType(model.NotificationForceSubmitted), 1)

	_, err = f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventTabSwitch, nil)
	assert.ErrorIs(t, err, ErrNoActiveSubmission)
}

func TestSwitchesNeverForceWithoutStrictLimit(t *testing.T) {
	tests := []struct {
		name string
		edit func(*model.Exam)
	}{
		{"lenient with limit", func(e *model.Exam) { e.MaxSwitchCount = intPtr(1) }},
		{"strict without limit", strict(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			examID, _ := f.exam(t, tt.edit, q{model.QuestionTypeSingle, "A", 10})
			f.start(t, examID, studentID)

			for i := 0; i < 5; i++ {
				res, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventTabSwitch, nil)
				require.NoError(t, err)
				assert.False(t, res.Enforced)
			}
			got, err := f.store.FindSubmission(f.ctx, examID, studentID)
			require.NoError(t, err)
			assert.Equal(t, 5, got.SwitchCount)
			assert.Equal(t, model.SubmissionInProgress, got.Status)
		})
	}
}

func TestRecordEventWithoutAttempt(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})

	_, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventTabSwitch, nil)
	assert.ErrorIs(t, err, ErrNoActiveSubmission)
}

func TestConcurrentSwitchesAreNotLost(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})
	sub := f.start(t, examID, studentID)

	const switches, blurs = 40, 10
	var wg sync.WaitGroup
	for i := 0; i < switches+blurs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := model.EventTabSwitch
			switch {
			case i >= switches:
				ev = model.EventBlur
			case i%2 == 0:
				ev = model.EventExitFullscreen
			}
			_, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, ev, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.store.GetSubmission(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, switches, got.SwitchCount)

	events, err := f.store.ListEvents(f.ctx, sub.ID)
	require.NoError(t, err)
	counted := 0
	for _, ev := range events {
		if ev.EventType.CountsAsSwitch() {
			counted++
		}
	}
	assert.Len(t, events, switches+blurs)
	assert.Equal(t, got.SwitchCount, counted)
}

func TestRecordEventPublishesToMonitor(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.exam(t, nil, q{model.QuestionTypeSingle, "A", 10})
	f.start(t, examID, studentID)

	detail := "left for 4s"
	_, err := f.proctoring.RecordEvent(f.ctx, examID, studentID, model.EventTabSwitch, &detail)
	require.NoError(t, err)

	last := f.store.Published[len(f.store.Published)-1]
	assert.Equal(t, model.MonitorEventProctor, last.Type)
	assert.Equal(t, model.EventTabSwitch, last.EventType)
	assert.Equal(t, 1, last.SwitchCount)
	assert.Equal(t, examID, last.ExamID)
}
