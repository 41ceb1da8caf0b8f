package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
)

const welcomeText = `Welcome to QuizBot!

Pick a quiz, choose an answer and press Confirm. You can skip a question or stop at any time.

Commands:
/quizzes [easy|medium|hard] - List quizzes
/quiz <id> - Start a quiz
/skip - Skip the current question
/stop - Stop the current quiz
/history - Your finished quizzes
/stat - Your statistics
/explain - Learn more about the last question
/help - Show this help`

const helpText = welcomeText

type actionKind int

const (
	actionQuiz actionKind = iota + 1
	actionSelect
	actionConfirm
	actionSkipAsk
	actionSkipYes
	actionSkipNo
	actionStopAsk
	actionStopYes
	actionStopNo
	actionHistoryDelete
)

var errBadCallback = errors.New("malformed callback data")

// callbackAction is the decoded form of inline button data.
// session names the quiz session a question or dialog button was drawn for.
type callbackAction struct {
	kind        actionKind
	arg         string
	session     string
	question    int
	alternative int
}

func quizData(id string) string                       { return "quiz:" + id }
func selectData(sid string, question, alt int) string { return fmt.Sprintf("alt:%s:%d:%d", sid, question, alt) }
func confirmData(sid string, question int) string     { return fmt.Sprintf("confirm:%s:%d", sid, question) }
func skipAskData(sid string, question int) string     { return fmt.Sprintf("skip:ask:%s:%d", sid, question) }
func skipYesData(sid string, question int) string     { return fmt.Sprintf("skip:yes:%s:%d", sid, question) }
func skipNoData(sid string, question int) string      { return fmt.Sprintf("skip:no:%s:%d", sid, question) }
func stopAskData(sid string) string                   { return "stop:ask:" + sid }
func stopYesData(sid string) string                   { return "stop:yes:" + sid }
func stopNoData(sid string) string                    { return "stop:no:" + sid }
func historyDeleteData(id string) string              { return "hist:del:" + id }

var (
	skipKinds = map[string]actionKind{"ask": actionSkipAsk, "yes": actionSkipYes, "no": actionSkipNo}
	stopKinds = map[string]actionKind{"ask": actionStopAsk, "yes": actionStopYes, "no": actionStopNo}
)

func parseCallback(data string) (callbackAction, error) {
	parts := strings.Split(data, ":")
	switch {
	case parts[0] == "quiz" && len(parts) >= 2:
		id := strings.TrimPrefix(data, "quiz:")
		if id == "" {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: actionQuiz, arg: id}, nil
	case parts[0] == "hist" && len(parts) == 3 && parts[1] == "del" && parts[2] != "":
		return callbackAction{kind: actionHistoryDelete, arg: parts[2]}, nil
	case parts[0] == "stop" && len(parts) == 3 && parts[2] != "":
		kind, ok := stopKinds[parts[1]]
		if !ok {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: kind, session: parts[2]}, nil
	case parts[0] == "alt" && len(parts) == 4 && parts[1] != "":
		q, err1 := strconv.Atoi(parts[2])
		alt, err2 := strconv.Atoi(parts[3])
		if err1 != nil || err2 != nil {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: actionSelect, session: parts[1], question: q, alternative: alt}, nil
	case parts[0] == "confirm" && len(parts) == 3 && parts[1] != "":
		q, err := strconv.Atoi(parts[2])
		if err != nil {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: actionConfirm, session: parts[1], question: q}, nil
	case parts[0] == "skip" && len(parts) == 4 && parts[2] != "":
		kind, ok := skipKinds[parts[1]]
		q, err := strconv.Atoi(parts[3])
		if !ok || err != nil {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: kind, session: parts[2], question: q}, nil
	}
	return callbackAction{}, errBadCallback
}

// parseCommand splits "/cmd@bot args" into its command and arguments
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, args, _ := strings.Cut(text[1:], " ")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func levelBadge(l models.Level) string {
	switch l {
	case models.LevelEasy:
		return "🟢 Easy"
	case models.LevelMedium:
		return "🟡 Medium"
	case models.LevelHard:
		return "🔴 Hard"
	}
	return string(l)
}

func levelNames() string {
	names := make([]string, 0, len(models.Levels))
	for _, l := range models.Levels {
		names = append(names, strings.ToLower(string(l)))
	}
	return strings.Join(names, ", ")
}

func progressBar(percentage int) string {
	const cells = 10
	filled := percentage * cells / 100
	if filled > cells {
		filled = cells
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", cells-filled) + fmt.Sprintf(" %d%%", percentage)
}

// renderCard draws the current question with its alternatives and controls
func renderCard(s *quiz.Session) (string, tgbotapi.InlineKeyboardMarkup) {
	q := s.Quiz()
	question := s.CurrentQuestion()
	index := s.CurrentIndex()
	sid := s.ID()

	text := fmt.Sprintf("%s · %s\nQuestion %d/%d  %s\n\n%s",
		q.Title, levelBadge(q.Level),
		index+1, s.Total(), progressBar(s.Progress()),
		question.Title,
	)

	selected, hasSelection := s.Selected()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(question.Alternatives)+1)
	for i, alt := range question.Alternatives {
		mark := "○ "
		if hasSelection && selected == i {
			mark = "● "
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+alt, selectData(sid, index, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏹ Stop", stopAskData(sid)),
		tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", skipAskData(sid, index)),
		tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", confirmData(sid, index)),
	))
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func verdictText(question models.Question, correct bool) string {
	if correct {
		return "✅ Correct!"
	}
	return "❌ Not quite. The right answer is: " + question.Alternatives[question.Correct]
}

func summaryText(rec models.HistoryRecord) string {
	return fmt.Sprintf("🏁 You finished %s (%s)!\n\nScore: %d of %d (%d%%)\n\nUse /quizzes to play again or /history to see past results.",
		rec.Title, levelBadge(rec.Level), rec.Points, rec.Questions, quiz.Percentage(rec.Points, rec.Questions))
}

func quizListMarkup(quizzes []models.Quiz) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(quizzes))
	for _, q := range quizzes {
		label := fmt.Sprintf("%s · %s · %d questions", q.Title, levelBadge(q.Level), len(q.Questions))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, quizData(q.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func historyText(records []models.HistoryRecord) string {
	var b strings.Builder
	b.WriteString("📜 Your recent quizzes:\n")
	for i, rec := range records {
		fmt.Fprintf(&b, "\n%d. %s (%s) %d/%d · %s",
			i+1, rec.Title, levelBadge(rec.Level), rec.Points, rec.Questions,
			rec.CompletedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func historyMarkup(records []models.HistoryRecord) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(records))
	for i, rec := range records {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Remove #%d", i+1), historyDeleteData(rec.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatStats(correct, incorrect, completed int) string {
	total := correct + incorrect
	var accuracy float64
	if total > 0 {
		accuracy = float64(correct) / float64(total) * 100
	}
	return fmt.Sprintf(`📊 Your Statistics:

Quizzes Finished: %d
Questions Answered: %d
Correct Answers: %d ✅
Incorrect Answers: %d ❌
Accuracy: %.1f%%`, completed, total, correct, incorrect, accuracy)
}
