package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/korjavin/quizbot/models"
	_ "github.com/mattn/go-sqlite3"
)

// DB handles all database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_history (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			level TEXT NOT NULL,
			points INTEGER NOT NULL,
			questions INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS answer_activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			quiz_id TEXT NOT NULL,
			question_index INTEGER NOT NULL,
			alternative INTEGER NOT NULL,
			correct BOOLEAN NOT NULL,
			timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS explanation_cache (
			quiz_id TEXT NOT NULL,
			question_index INTEGER NOT NULL,
			response TEXT NOT NULL,
			PRIMARY KEY (quiz_id, question_index)
		)
	`)
	return err
}

// Add appends a completed quiz to the user's history
func (db *DB) Add(ctx context.Context, rec models.HistoryRecord) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO quiz_history (id, user_id, title, level, points, questions, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.UserID, rec.Title, string(rec.Level), rec.Points, rec.Questions, rec.CompletedAt.UnixMilli(),
	)
	return err
}

// History returns the user's completed quizzes, newest first
func (db *DB) History(ctx context.Context, userID int64, limit int) ([]models.HistoryRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, title, level, points, questions, completed_at
		FROM quiz_history
		WHERE user_id = ?
		ORDER BY completed_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.HistoryRecord
	for rows.Next() {
		var (
			rec         models.HistoryRecord
			level       string
			completedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &level, &rec.Points, &rec.Questions, &completedAt); err != nil {
			return nil, err
		}
		rec.Level = models.Level(level)
		rec.CompletedAt = time.UnixMilli(completedAt)
		result = append(result, rec)
	}

	return result, rows.Err()
}

// RemoveHistory deletes one of the user's history entries.
// It reports whether a row was removed.
func (db *DB) RemoveHistory(ctx context.Context, userID int64, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM quiz_history WHERE user_id = ? AND id = ?",
		userID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SaveAnswer records a confirmed answer
func (db *DB) SaveAnswer(ctx context.Context, a models.AnswerActivity) error {
	ts := a.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO answer_activity (user_id, quiz_id, question_index, alternative, correct, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		a.UserID, a.QuizID, a.QuestionIndex, a.Alternative, a.Correct, ts,
	)
	return err
}

// UserStats retrieves statistics about the user's answers and finished quizzes
func (db *DB) UserStats(ctx context.Context, userID int64) (correct, incorrect, completed int, err error) {
	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM answer_activity WHERE user_id = ? AND correct = 1",
		userID,
	).Scan(&correct)
	if err != nil {
		return 0, 0, 0, err
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM answer_activity WHERE user_id = ? AND correct = 0",
		userID,
	).Scan(&incorrect)
	if err != nil {
		return 0, 0, 0, err
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quiz_history WHERE user_id = ?",
		userID,
	).Scan(&completed)
	return correct, incorrect, completed, err
}

// CacheExplanation stores an AI explanation for a question
func (db *DB) CacheExplanation(ctx context.Context, quizID string, questionIndex int, response string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO explanation_cache (quiz_id, question_index, response) VALUES (?, ?, ?)",
		quizID, questionIndex, response,
	)
	return err
}

// CachedExplanation retrieves a cached explanation, "" when there is none
func (db *DB) CachedExplanation(ctx context.Context, quizID string, questionIndex int) (string, error) {
	var response string
	err := db.conn.QueryRowContext(ctx,
		"SELECT response FROM explanation_cache WHERE quiz_id = ? AND question_index = ?",
		quizID, questionIndex,
	).Scan(&response)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return response, err
}
