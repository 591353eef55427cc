package service

import (
	"strings"
	"time"

	"github.com/stemsi/exampro-backend/internal/model"
)

// matcher decides whether a raw answer equals the canonical answer.
type matcher func(canonical, answer string) bool

// matchers routes objective question types to their equality rule.
// Types without an entry are graded manually.
var matchers = map[model.QuestionType]matcher{
	model.QuestionTypeSingle:    matchFold,
	model.QuestionTypeTrueFalse: matchFold,
	model.QuestionTypeMultiple:  matchChoiceSet,
	model.QuestionTypeFillBlank: matchExact,
}

func matchFold(canonical, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(canonical), strings.TrimSpace(answer))
}

func matchExact(canonical, answer string) bool {
	return strings.TrimSpace(canonical) == strings.TrimSpace(answer)
}

// matchChoiceSet compares comma-joined choices as sets, ignoring order,
// case and surrounding whitespace.
func matchChoiceSet(canonical, answer string) bool {
	want := choiceSet(canonical)
	got := choiceSet(answer)
	if len(want) != len(got) {
		return false
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			return false
		}
	}
	return true
}

func choiceSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

// AnswerMatches reports whether answer earns full credit for an objective
// question. Subjective types never match.
func AnswerMatches(t model.QuestionType, canonical, answer string) bool {
	m, ok := matchers[t]
	if !ok {
		return false
	}
	if strings.TrimSpace(answer) == "" {
		return false
	}
	return m(canonical, answer)
}

// Grade scores answers against the exam's questions. Objective items are
// recomputed every time; manual awards for subjective items are carried over
// from prior when present, so regrading never discards a teacher's work.
func Grade(def *model.ExamDefinition, answers model.Answers, prior *model.GradingDetail) *model.GradingDetail {
	detail := &model.GradingDetail{Items: make([]model.QuestionGrade, 0, len(def.Questions))}
	for _, q := range def.Questions {
		answer := answers[q.QuestionID]
		item := model.QuestionGrade{
			QuestionID: q.QuestionID,
			Type:       q.Question.Type,
			MaxScore:   q.Score,
			Answer:     answer,
		}

		if q.Question.Type.Objective() {
			correct := AnswerMatches(q.Question.Type, q.Question.Answer, answer)
			awarded := 0
			if correct {
				awarded = q.Score
			}
			item.Awarded = &awarded
			item.Correct = &correct
			item.Source = model.GradeSourceAuto
		} else if prior != nil {
			if old := prior.Item(q.QuestionID); old != nil && old.Awarded != nil {
				awarded := *old.Awarded
				if awarded > q.Score {
					awarded = q.Score
				}
				item.Awarded = &awarded
				item.Source = old.Source
				item.GradedBy = old.GradedBy
				item.GradedAt = old.GradedAt
			}
		}

		detail.Items = append(detail.Items, item)
	}
	return detail
}

// settle writes detail and the derived scores onto s. The total is only
// finalized when finalize is set and no question is pending.
func settle(s *model.Submission, detail *model.GradingDetail, finalize bool, now time.Time) {
	s.SubmitDetail = detail
	objective := detail.ObjectiveScore()
	s.ObjectiveScore = &objective

	if !finalize || detail.HasPending() {
		s.SubjectiveScore = nil
		s.TotalScore = nil
		s.GradedAt = nil
		return
	}

	subjective := detail.SubjectiveScore()
	total := objective + subjective
	s.SubjectiveScore = &subjective
	s.TotalScore = &total
	t := now
	s.GradedAt = &t
}

// autoFinal reports whether an exam's submissions are final as soon as the
// objective part is scored.
func autoFinal(def *model.ExamDefinition) bool {
	return !def.Exam.NeedsGrading && !def.HasSubjective()
}

// finish moves s to SUBMITTED and runs objective grading on its stored
// answers. It is shared by manual submit, expiry and proctoring enforcement.
func finish(def *model.ExamDefinition, s *model.Submission, now time.Time, reason model.SubmitReason) error {
	if err := s.Finish(now, reason); err != nil {
		return err
	}
	settle(s, Grade(def, s.Answers, nil), autoFinal(def), now)
	return nil
}
