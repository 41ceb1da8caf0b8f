package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/quizbot/ai"
	"github.com/korjavin/quizbot/catalog"
	"github.com/korjavin/quizbot/config"
	"github.com/korjavin/quizbot/database"
	"github.com/korjavin/quizbot/feedback"
	"github.com/korjavin/quizbot/models"
	"github.com/korjavin/quizbot/quiz"
	"go.uber.org/zap"
)

// sender is the part of the Telegram API the bot talks to
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Store persists play history and answer activity
type Store interface {
	Add(ctx context.Context, rec models.HistoryRecord) error
	History(ctx context.Context, userID int64, limit int) ([]models.HistoryRecord, error)
	RemoveHistory(ctx context.Context, userID int64, id string) (bool, error)
	SaveAnswer(ctx context.Context, a models.AnswerActivity) error
	UserStats(ctx context.Context, userID int64) (correct, incorrect, completed int, err error)
	CacheExplanation(ctx context.Context, quizID string, questionIndex int, response string) error
	CachedExplanation(ctx context.Context, quizID string, questionIndex int) (string, error)
}

type explainer interface {
	ExplainQuestion(ctx context.Context, quizTitle string, question models.Question) (string, error)
}

// questionRef points at the last question a chat answered or skipped
type questionRef struct {
	quizID string
	index  int
}

// Bot represents the Telegram bot
type Bot struct {
	botAPI    *tgbotapi.BotAPI
	api       sender
	store     Store
	catalog   *catalog.Catalog
	explainer explainer
	feedback  *feedback.Dispatcher
	log       *zap.SugaredLogger

	sessions     map[int64]*quiz.Session // chat id -> active session
	lastQuestion map[int64]questionRef
	pending      sync.WaitGroup
}

const (
	cmdStart   = "start"
	cmdQuizzes = "quizzes"
	cmdQuiz    = "quiz"
	cmdHistory = "history"
	cmdStat    = "stat"
	cmdExplain = "explain"
	cmdSkip    = "skip"
	cmdStop    = "stop"
	cmdHelp    = "help"

	historyLimit = 10

	staleNotice = "This question is no longer active."
)

// New creates a new bot instance
func New(cfg *config.Config, log *zap.SugaredLogger) (*Bot, *database.DB, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = cfg.Debug

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to load quizzes: %w", err)
	}
	log.Infow("loaded quiz catalog", "path", cfg.CatalogPath, "quizzes", cat.Len())

	var exp explainer
	if cfg.DeepseekAPIKey != "" {
		exp = ai.NewDeepseekClient(cfg.DeepseekAPIKey, log)
	} else {
		log.Infow("DEEPSEEK_API_KEY not set, /explain disabled")
	}

	b := newBot(botAPI, db, cat, exp, log, cfg.FeedbackTimeout)
	b.botAPI = botAPI
	return b, db, nil
}

func newBot(api sender, store Store, cat *catalog.Catalog, exp explainer, log *zap.SugaredLogger, feedbackTimeout time.Duration) *Bot {
	b := &Bot{
		api:          api,
		store:        store,
		catalog:      cat,
		explainer:    exp,
		log:          log,
		sessions:     make(map[int64]*quiz.Session),
		lastQuestion: make(map[int64]questionRef),
	}
	b.feedback = feedback.NewDispatcher(b, log, feedbackTimeout)
	return b
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	b.log.Infow("starting bot polling", "username", b.botAPI.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.botAPI.StopReceivingUpdates()
			b.pending.Wait()
			b.log.Infow("bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.pending.Wait()
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate routes one update. Sessions are only touched from here.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	chatID := message.Chat.ID
	b.log.Debugw("received message", "chat_id", chatID, "user", message.From.UserName, "text", message.Text)

	cmd, args := parseCommand(message.Text)
	switch cmd {
	case cmdStart:
		b.sendMessage(chatID, welcomeText)
		b.sendQuizList(chatID, nil)
	case cmdQuizzes:
		b.handleQuizzesCommand(chatID, args)
	case cmdQuiz:
		if args == "" {
			b.sendMessage(chatID, "Usage: /quiz <id>. Use /quizzes to see the available quizzes.")
			return
		}
		b.startQuiz(chatID, args)
	case cmdHistory:
		b.sendHistory(ctx, chatID, message.From.ID)
	case cmdStat:
		b.handleStatCommand(ctx, chatID, message.From.ID)
	case cmdExplain:
		b.handleExplainCommand(ctx, chatID)
	case cmdSkip:
		s := b.sessions[chatID]
		if s == nil || s.State() != quiz.StateAnswering {
			b.sendMessage(chatID, "There is no question to skip right now.")
			return
		}
		b.askSkip(chatID, s.ID(), s.CurrentIndex())
	case cmdStop:
		s := b.sessions[chatID]
		if s == nil {
			b.sendMessage(chatID, "You are not playing a quiz right now.")
			return
		}
		b.askStop(chatID, s.ID())
	case cmdHelp:
		b.sendMessage(chatID, helpText)
	default:
		b.sendMessage(chatID, "Unknown command. Use /quizzes to pick a quiz or /help for assistance.")
	}
}

func (b *Bot) handleQuizzesCommand(chatID int64, args string) {
	if args == "" {
		b.sendQuizList(chatID, nil)
		return
	}
	level, err := models.ParseLevel(args)
	if err != nil {
		b.sendMessage(chatID, "Unknown level. Use one of: "+levelNames()+".")
		return
	}
	b.sendQuizList(chatID, &level)
}

// startQuiz resolves a quiz id and opens a new session for the chat
func (b *Bot) startQuiz(chatID int64, quizID string) {
	q, err := b.catalog.Find(quizID)
	if err != nil {
		b.log.Warnw("failed to load quiz", "chat_id", chatID, "quiz_id", quizID, "error", err)
		b.sendMessage(chatID, "Sorry, this quiz could not be loaded. Use /quizzes to pick another one.")
		return
	}

	s, err := quiz.NewSession(q)
	if err != nil {
		b.log.Errorw("failed to start session", "chat_id", chatID, "quiz_id", quizID, "error", err)
		b.sendMessage(chatID, "Sorry, this quiz could not be loaded. Use /quizzes to pick another one.")
		return
	}
	if prev := b.sessions[chatID]; prev != nil {
		b.log.Infow("replacing active session", "chat_id", chatID, "quiz_id", prev.Quiz().ID)
	}
	b.sessions[chatID] = s
	b.log.Infow("quiz started", "chat_id", chatID, "quiz_id", q.ID, "questions", len(q.Questions))

	b.sendCard(chatID, s)
}

// handleStatCommand handles the /stat command
func (b *Bot) handleStatCommand(ctx context.Context, chatID, userID int64) {
	correct, incorrect, completed, err := b.store.UserStats(ctx, userID)
	if err != nil {
		b.log.Errorw("failed to get user stats", "user_id", userID, "error", err)
		b.sendMessage(chatID, "Sorry, I couldn't retrieve your statistics. Please try again later.")
		return
	}
	b.sendMessage(chatID, formatStats(correct, incorrect, completed))
}

// handleExplainCommand explains the last question the chat answered
func (b *Bot) handleExplainCommand(ctx context.Context, chatID int64) {
	ref, ok := b.lastQuestion[chatID]
	if !ok {
		b.sendMessage(chatID, "Answer a question first, then use /explain to learn more about it.")
		return
	}
	q, err := b.catalog.Find(ref.quizID)
	if err != nil {
		b.sendMessage(chatID, "Sorry, I couldn't find that question anymore.")
		return
	}
	question := q.Questions[ref.index]

	cached, err := b.store.CachedExplanation(ctx, ref.quizID, ref.index)
	if err != nil {
		b.log.Warnw("failed to read cached explanation", "quiz_id", ref.quizID, "index", ref.index, "error", err)
	}
	if cached != "" {
		b.sendMessage(chatID, "💡 "+cached)
		return
	}
	if b.explainer == nil {
		b.sendMessage(chatID, "Explanations are not available right now.")
		return
	}

	b.sendMessage(chatID, "Analyzing this question, please wait a moment...")
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Errorw("recovered from panic in explain goroutine", "panic", r)
			}
		}()

		response, err := b.explainer.ExplainQuestion(ctx, q.Title, question)
		if err != nil {
			b.log.Errorw("failed to explain question", "quiz_id", ref.quizID, "index", ref.index, "error", err)
			b.sendMessage(chatID, "Sorry, I couldn't analyze this question. Please try again later.")
			return
		}
		if err := b.store.CacheExplanation(ctx, ref.quizID, ref.index, response); err != nil {
			b.log.Warnw("failed to cache explanation", "quiz_id", ref.quizID, "error", err)
		}
		b.sendMessage(chatID, "💡 "+response)
	}()
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.Message.Chat == nil {
		b.answerCallback(callback.ID, "")
		return
	}
	chatID := callback.Message.Chat.ID
	b.log.Debugw("handling callback", "chat_id", chatID, "user", callback.From.UserName, "data", callback.Data)

	action, err := parseCallback(callback.Data)
	if err != nil {
		b.log.Warnw("invalid callback", "data", callback.Data, "error", err)
		b.answerCallback(callback.ID, "")
		return
	}

	switch action.kind {
	case actionQuiz:
		b.answerCallback(callback.ID, "")
		b.startQuiz(chatID, action.arg)
	case actionHistoryDelete:
		b.deleteHistory(ctx, callback, action.arg)
	case actionStopAsk, actionStopYes:
		s := b.sessions[chatID]
		if s == nil || s.ID() != action.session {
			b.answerCallback(callback.ID, staleNotice)
			return
		}
		b.answerCallback(callback.ID, "")
		if action.kind == actionStopAsk {
			b.askStop(chatID, s.ID())
			return
		}
		b.stopQuiz(chatID, callback.Message.MessageID, s)
	case actionStopNo:
		b.answerCallback(callback.ID, "")
		b.editMessage(chatID, callback.Message.MessageID, "Okay, keep going!")
	default:
		b.handleQuestionCallback(ctx, callback, action)
	}
}

// handleQuestionCallback handles buttons bound to a specific question
func (b *Bot) handleQuestionCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action callbackAction) {
	chatID := callback.Message.Chat.ID
	s := b.sessions[chatID]
	if s == nil || s.ID() != action.session || s.State() != quiz.StateAnswering || s.CurrentIndex() != action.question {
		b.answerCallback(callback.ID, staleNotice)
		return
	}

	switch action.kind {
	case actionSelect:
		if err := s.SelectAlternative(action.alternative); err != nil {
			b.log.Warnw("rejected selection", "chat_id", chatID, "alternative", action.alternative, "error", err)
			b.answerCallback(callback.ID, "")
			return
		}
		b.answerCallback(callback.ID, "")
		text, markup := renderCard(s)
		b.editCard(chatID, callback.Message.MessageID, text, markup)
	case actionConfirm:
		b.confirm(ctx, callback, s)
	case actionSkipAsk:
		b.answerCallback(callback.ID, "")
		b.askSkip(chatID, s.ID(), action.question)
	case actionSkipYes:
		b.answerCallback(callback.ID, "")
		b.skip(ctx, callback, s)
	case actionSkipNo:
		b.answerCallback(callback.ID, "")
		b.editMessage(chatID, callback.Message.MessageID, "Okay, take your time.")
	}
}

// confirm scores the selected alternative and moves the session on
func (b *Bot) confirm(ctx context.Context, callback *tgbotapi.CallbackQuery, s *quiz.Session) {
	chatID := callback.Message.Chat.ID
	index := s.CurrentIndex()
	question := s.CurrentQuestion()
	selected, _ := s.Selected()

	res, err := s.Confirm()
	if err != nil {
		b.log.Errorw("confirm failed", "chat_id", chatID, "error", err)
		b.answerCallback(callback.ID, "")
		return
	}
	if res.Result == quiz.ResultNeedsSkipConfirmation {
		b.answerCallback(callback.ID, "Pick an answer first, or skip this question.")
		b.askSkip(chatID, s.ID(), index)
		return
	}

	correct := res.Result == quiz.ResultCorrect
	b.log.Infow("answer confirmed", "chat_id", chatID, "quiz_id", s.Quiz().ID, "index", index, "result", res.Result.String())
	if err := b.store.SaveAnswer(ctx, models.AnswerActivity{
		UserID:        callback.From.ID,
		QuizID:        s.Quiz().ID,
		QuestionIndex: index,
		Alternative:   selected,
		Correct:       correct,
	}); err != nil {
		b.log.Warnw("failed to save answer", "chat_id", chatID, "error", err)
	}
	b.lastQuestion[chatID] = questionRef{quizID: s.Quiz().ID, index: index}

	cardText, _ := renderCard(s)
	b.editMessage(chatID, callback.Message.MessageID, cardText+"\n\n"+verdictText(question, correct))

	adv, err := s.AcknowledgeFeedback()
	if err != nil {
		b.log.Errorw("acknowledge failed", "chat_id", chatID, "error", err)
		return
	}
	next := b.afterAdvance(ctx, chatID, callback.From.ID, s, adv)

	// Cues run concurrently with each other; the next screen is shown once they settle.
	target := feedback.Target{ChatID: chatID, CallbackID: callback.ID}
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		b.feedback.Dispatch(ctx, target, res.Effects)
		next()
	}()
}

// skip runs a confirmed skip of the current question
func (b *Bot) skip(ctx context.Context, callback *tgbotapi.CallbackQuery, s *quiz.Session) {
	chatID := callback.Message.Chat.ID
	index := s.CurrentIndex()

	adv, err := s.Skip()
	if err != nil {
		b.log.Errorw("skip failed", "chat_id", chatID, "error", err)
		return
	}
	b.log.Infow("question skipped", "chat_id", chatID, "quiz_id", s.Quiz().ID, "index", index)
	b.lastQuestion[chatID] = questionRef{quizID: s.Quiz().ID, index: index}
	b.editMessage(chatID, callback.Message.MessageID, fmt.Sprintf("⏭ Question %d skipped.", index+1))

	b.afterAdvance(ctx, chatID, callback.From.ID, s, adv)()
}

// afterAdvance applies the outcome of an advancement to the chat and returns
// the function that renders the next screen
func (b *Bot) afterAdvance(ctx context.Context, chatID, userID int64, s *quiz.Session, adv quiz.Advance) func() {
	if !adv.Completed {
		text, markup := renderCard(s)
		return func() { b.sendCardText(chatID, text, markup) }
	}

	delete(b.sessions, chatID)
	rec := *adv.Record
	rec.UserID = userID
	if err := b.store.Add(ctx, rec); err != nil {
		b.log.Errorw("failed to save history", "chat_id", chatID, "record_id", rec.ID, "error", err)
	} else {
		b.log.Infow("quiz completed", "chat_id", chatID, "record_id", rec.ID, "points", rec.Points, "questions", rec.Questions)
	}
	summary := summaryText(rec)
	return func() { b.sendMessage(chatID, summary) }
}

func (b *Bot) askSkip(chatID int64, sid string, index int) {
	msg := tgbotapi.NewMessage(chatID, "Skip this question?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Yes", skipYesData(sid, index)),
		tgbotapi.NewInlineKeyboardButtonData("No", skipNoData(sid, index)),
	))
	b.send(msg)
}

func (b *Bot) askStop(chatID int64, sid string) {
	msg := tgbotapi.NewMessage(chatID, "Stop the quiz now? Your progress will not be saved.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("No", stopNoData(sid)),
		tgbotapi.NewInlineKeyboardButtonData("Yes, stop", stopYesData(sid)),
	))
	b.send(msg)
}

func (b *Bot) stopQuiz(chatID int64, messageID int, s *quiz.Session) {
	if err := s.Stop(); err != nil {
		b.log.Errorw("stop failed", "chat_id", chatID, "error", err)
	}
	delete(b.sessions, chatID)
	b.log.Infow("quiz stopped", "chat_id", chatID, "quiz_id", s.Quiz().ID, "index", s.CurrentIndex())
	b.editMessage(chatID, messageID, "⏹ Quiz stopped. Use /quizzes to pick another one.")
}

func (b *Bot) sendQuizList(chatID int64, level *models.Level) {
	quizzes := b.catalog.List(level)
	if len(quizzes) == 0 {
		b.sendMessage(chatID, "No quizzes available. Please try again later.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "Pick a quiz:")
	msg.ReplyMarkup = quizListMarkup(quizzes)
	b.send(msg)
}

func (b *Bot) sendHistory(ctx context.Context, chatID, userID int64) {
	records, err := b.store.History(ctx, userID, historyLimit)
	if err != nil {
		b.log.Errorw("failed to load history", "user_id", userID, "error", err)
		b.sendMessage(chatID, "Sorry, I couldn't load your history. Please try again later.")
		return
	}
	if len(records) == 0 {
		b.sendMessage(chatID, "You have not finished any quiz yet.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, historyText(records))
	msg.ReplyMarkup = historyMarkup(records)
	b.send(msg)
}

func (b *Bot) deleteHistory(ctx context.Context, callback *tgbotapi.CallbackQuery, id string) {
	removed, err := b.store.RemoveHistory(ctx, callback.From.ID, id)
	if err != nil {
		b.log.Errorw("failed to remove history", "user_id", callback.From.ID, "record_id", id, "error", err)
		b.answerCallback(callback.ID, "Could not remove this entry.")
		return
	}
	if !removed {
		b.answerCallback(callback.ID, "Entry already removed.")
		return
	}
	b.answerCallback(callback.ID, "Removed.")

	records, err := b.store.History(ctx, callback.From.ID, historyLimit)
	if err != nil {
		b.log.Warnw("failed to reload history", "user_id", callback.From.ID, "error", err)
		return
	}
	if len(records) == 0 {
		b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, "Your history is empty.")
		return
	}
	b.editCard(callback.Message.Chat.ID, callback.Message.MessageID, historyText(records), historyMarkup(records))
}

// Haptic renders the tactile cue as a callback toast
func (b *Bot) Haptic(ctx context.Context, target feedback.Target, status quiz.Status) error {
	if target.CallbackID == "" {
		return ctx.Err()
	}
	text := "❌ Wrong answer"
	if status == quiz.StatusCorrect {
		text = "✅ Correct!"
	}
	err := ctx.Err()
	if err == nil {
		_, err = b.api.Request(tgbotapi.NewCallback(target.CallbackID, text))
	}
	if err != nil {
		// the callback still has to be answered or the client keeps spinning
		b.answerCallback(target.CallbackID, "")
	}
	return err
}

// Sound renders the audio cue as an animated emoji
func (b *Bot) Sound(ctx context.Context, target feedback.Target, status quiz.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cue := "💥"
	if status == quiz.StatusCorrect {
		cue = "🎉"
	}
	_, err := b.api.Send(tgbotapi.NewMessage(target.ChatID, cue))
	return err
}

func (b *Bot) sendCard(chatID int64, s *quiz.Session) {
	text, markup := renderCard(s)
	b.sendCardText(chatID, text, markup)
}

func (b *Bot) sendCardText(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

// sendMessage sends a plain text message
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warnw("error sending message", "error", err)
	}
}

// editMessage replaces the text of a message and drops its keyboard
func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (b *Bot) editCard(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
}

// answerCallback acknowledges a callback query
func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warnw("error sending callback response", "error", err)
	}
}
