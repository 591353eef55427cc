package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamDefinitionKey returns the cache key for an exam and its scored questions.
func (r *CacheKeyStruct) ExamDefinitionKey(examID int64) string {
	return fmt.Sprintf("exam:%d:definition", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID int64) string {
	return fmt.Sprintf("exam:%d:monitor", examID)
}

// SubmissionEventsChannel carries the monitor events of one attempt, for
// the student's own stream.
func (r *CacheKeyStruct) SubmissionEventsChannel(submissionID int64) string {
	return fmt.Sprintf("submission:%d:events", submissionID)
}

// ExpiryScanLockKey guards the auto-submit scan so only one replica runs it per tick.
func (r *CacheKeyStruct) ExpiryScanLockKey() string {
	return "lock:expiry_scan"
}

var CacheKey = NewCacheKeyStruct()
