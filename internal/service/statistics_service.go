package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// passPercent is the share of an exam's total score needed to pass.
const passPercent = 60

var scoreBuckets = []struct {
	label string
	upper float64 // exclusive, except for the last bucket
}{
	{"0-59", 60},
	{"60-69", 70},
	{"70-79", 80},
	{"80-89", 90},
	{"90-100", math.Inf(1)},
}

// StatisticsService computes read-only rollups over submissions.
type StatisticsService struct {
	exams       ExamSource
	submissions SubmissionStore
	log         zerolog.Logger
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(exams ExamSource, submissions SubmissionStore, log zerolog.Logger) *StatisticsService {
	return &StatisticsService{
		exams:       exams,
		submissions: submissions,
		log:         logger.Component(log, "statistics_service"),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) * 100 / float64(whole))
}

func bucket(percent float64) string {
	for _, b := range scoreBuckets {
		if percent < b.upper {
			return b.label
		}
	}
	return scoreBuckets[len(scoreBuckets)-1].label
}

// scoreSummary accumulates average, highest and lowest over final totals.
type scoreSummary struct {
	count, sum      int
	highest, lowest int
}

func (s *scoreSummary) add(v int) {
	if s.count == 0 || v > s.highest {
		s.highest = v
	}
	if s.count == 0 || v < s.lowest {
		s.lowest = v
	}
	s.count++
	s.sum += v
}

func (s *scoreSummary) fill(avg **float64, hi, lo **int) {
	if s.count == 0 {
		return
	}
	a := round1(float64(s.sum) / float64(s.count))
	h, l := s.highest, s.lowest
	*avg, *hi, *lo = &a, &h, &l
}

// ExamStatistics rolls up an exam's submissions for its owner. Only
// finalized totals feed the score figures.
func (s *StatisticsService) ExamStatistics(ctx context.Context, examID int64, actor model.Actor) (*model.ExamStatistics, error) {
	def, err := s.exams.Definition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam %d: %w", examID, err)
	}
	if !actor.Owns(def.Exam.CreatorID) {
		return nil, ErrForbidden
	}
	subs, err := s.submissions.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	stats := &model.ExamStatistics{
		ExamID:            examID,
		ExamTitle:         def.Exam.Title,
		TotalStudents:     len(subs),
		ScoreDistribution: make(map[string]int, len(scoreBuckets)),
	}
	for _, b := range scoreBuckets {
		stats.ScoreDistribution[b.label] = 0
	}

	var summary scoreSummary
	for _, sub := range subs {
		if sub.Status != model.SubmissionSubmitted {
			continue
		}
		stats.SubmittedCount++
		if sub.TotalScore == nil {
			continue
		}
		total := *sub.TotalScore
		summary.add(total)
		if def.Exam.TotalScore > 0 {
			if total*100 >= passPercent*def.Exam.TotalScore {
				stats.PassCount++
			}
			stats.ScoreDistribution[bucket(float64(total)*100/float64(def.Exam.TotalScore))]++
		}
	}

	stats.CompletionRate = rate(stats.SubmittedCount, stats.TotalStudents)
	stats.PassRate = rate(stats.PassCount, summary.count)
	summary.fill(&stats.AverageScore, &stats.HighestScore, &stats.LowestScore)
	stats.Questions = questionStatistics(def, subs)
	return stats, nil
}

// questionStatistics reports per-question accuracy over submitted attempts.
// Choice questions also get the distribution of selected options.
func questionStatistics(def *model.ExamDefinition, subs []model.Submission) []model.QuestionStatistic {
	out := make([]model.QuestionStatistic, 0, len(def.Questions))
	for _, q := range def.Questions {
		st := model.QuestionStatistic{
			QuestionID:      q.QuestionID,
			QuestionContent: q.Question.Content,
			QuestionType:    q.Question.Type,
		}
		if q.Question.Type.NeedsOptions() || q.Question.Type == model.QuestionTypeTrueFalse {
			st.OptionDistribution = map[string]int{}
		}

		for _, sub := range subs {
			if sub.Status != model.SubmissionSubmitted {
				continue
			}
			answer, ok := sub.Answers[q.QuestionID]
			if !ok || strings.TrimSpace(answer) == "" {
				continue
			}
			st.TotalAttempts++
			if st.OptionDistribution != nil {
				for choice := range choiceSet(answer) {
					st.OptionDistribution[choice]++
				}
			}
			if q.Question.Type.Objective() {
				if AnswerMatches(q.Question.Type, q.Question.Answer, answer) {
					st.CorrectCount++
				}
			} else if sub.SubmitDetail != nil {
				if item := sub.SubmitDetail.Item(q.QuestionID); item != nil && item.Awarded != nil && *item.Awarded == q.Score {
					st.CorrectCount++
				}
			}
		}
		st.Accuracy = rate(st.CorrectCount, st.TotalAttempts)
		out = append(out, st)
	}
	return out
}

// StudentStatistics rolls up a student's submitted attempts.
func (s *StatisticsService) StudentStatistics(ctx context.Context, userID int64) (*model.StudentStatistics, error) {
	subs, err := s.submissions.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	stats := &model.StudentStatistics{StudentID: userID, Scores: []model.StudentScoreRecord{}}
	var summary scoreSummary
	for _, sub := range subs {
		if sub.Status != model.SubmissionSubmitted {
			continue
		}
		stats.TotalExams++
		record := model.StudentScoreRecord{
			ExamID:     sub.ExamID,
			Score:      sub.TotalScore,
			SubmitTime: sub.SubmitTime,
		}
		if def, err := s.exams.Definition(ctx, sub.ExamID); err == nil {
			record.ExamTitle = def.Exam.Title
		} else {
			s.log.Warn().Err(err).Int64("exam_id", sub.ExamID).Msg("Failed to load exam title")
		}
		stats.Scores = append(stats.Scores, record)
		if sub.TotalScore != nil {
			summary.add(*sub.TotalScore)
		}
	}
	summary.fill(&stats.AverageScore, &stats.HighestScore, &stats.LowestScore)
	return stats, nil
}
