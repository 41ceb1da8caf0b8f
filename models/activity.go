package models

// AnswerActivity stores a single confirmed answer
type AnswerActivity struct {
	UserID        int64
	QuizID        string
	QuestionIndex int
	Alternative   int
	Correct       bool
	Timestamp     int64
}
