package model

import "time"

// ExamStatistics is the score rollup of one exam.
type ExamStatistics struct {
	ExamID            int64               `json:"examId"`
	ExamTitle         string              `json:"examTitle"`
	TotalStudents     int                 `json:"totalStudents"`
	SubmittedCount    int                 `json:"submittedCount"`
	CompletionRate    float64             `json:"completionRate"`
	AverageScore      *float64            `json:"averageScore"`
	HighestScore      *int                `json:"highestScore"`
	LowestScore       *int                `json:"lowestScore"`
	PassCount         int                 `json:"passCount"`
	PassRate          float64             `json:"passRate"`
	ScoreDistribution map[string]int      `json:"scoreDistribution"`
	Questions         []QuestionStatistic `json:"questions"`
}

// QuestionStatistic summarizes how one question of an exam was answered.
type QuestionStatistic struct {
	QuestionID         int64          `json:"questionId"`
	QuestionContent    string         `json:"questionContent"`
	QuestionType       QuestionType   `json:"questionType"`
	TotalAttempts      int            `json:"totalAttempts"`
	CorrectCount       int            `json:"correctCount"`
	Accuracy           float64        `json:"accuracy"`
	OptionDistribution map[string]int `json:"optionDistribution,omitempty"`
}

// StudentScoreRecord is one exam result in a student's history.
type StudentScoreRecord struct {
	ExamID     int64      `json:"examId"`
	ExamTitle  string     `json:"examTitle"`
	Score      *int       `json:"score"`
	SubmitTime *time.Time `json:"submitTime"`
}

// StudentStatistics is the score rollup of one student.
type StudentStatistics struct {
	StudentID    int64                `json:"studentId"`
	TotalExams   int                  `json:"totalExams"`
	AverageScore *float64             `json:"averageScore"`
	HighestScore *int                 `json:"highestScore"`
	LowestScore  *int                 `json:"lowestScore"`
	Scores       []StudentScoreRecord `json:"scores"`
}
