package controllers

import "time"

// SessionRequest is the validated body of POST /exams/sessions
type SessionRequest struct {
	CourseID uint      `json:"course_id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
}

// ResultRequest is the validated body of POST /exams/results
type ResultRequest struct {
	ExamSessionID uint     `json:"exam_session_id"`
	UserID        uint     `json:"user_id"`
	Score         *float64 `json:"score"`
	Status        string   `json:"status"` // PASS or FAIL
}
