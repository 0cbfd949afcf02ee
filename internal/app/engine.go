package app

import (
	"context"
	"math/rand"
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"quiz-session-service/internal/domain"
)

// SessionStore abstracts how live sessions are kept and checkpointed
// (in-memory, Redis, etc). Id counters are monotonic and store-owned.
type SessionStore interface {
	Create(session *Session)
	Get(sessionID int64) (*Session, bool)
	FindByPlayer(playerID int64) (*Session, bool)
	Sessions(quizID string) []*Session
	NextSessionID() int64
	NextPlayerID() int64
	// Save checkpoints the session after a mutation. Callers invoke it
	// while still holding the session lock.
	Save(session *Session)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Notifier receives session transition events, including timer-driven ones.
type Notifier interface {
	SessionStateChanged(sessionID int64, state domain.State, atQuestion int64)
}

// Tuning carries the engine's operational knobs.
type Tuning struct {
	Countdown         time.Duration // delay between question selected and answerable
	MaxActiveSessions int           // concurrent non-END sessions per quiz
	AutoStartCap      int           // highest accepted autostart threshold
}

func (t Tuning) withDefaults() Tuning {
	if t.Countdown <= 0 {
		t.Countdown = 3 * time.Second
	}
	if t.MaxActiveSessions <= 0 {
		t.MaxActiveSessions = 10
	}
	if t.AutoStartCap <= 0 {
		t.AutoStartCap = 50
	}
	return t
}

// Engine owns the session state machine, the scoring rules and the results
// aggregation. One in-flight mutating operation per session at a time is
// enforced with the per-session mutex.
type Engine struct {
	store    SessionStore
	quizzes  QuizRepository
	timers   TimerService
	log      *zap.Logger
	tuning   Tuning
	notifier Notifier
	now      func() time.Time
	rnd      func(n int) int
}

func NewEngine(store SessionStore, quizzes QuizRepository, timers TimerService, log *zap.Logger, tuning Tuning) *Engine {
	return &Engine{
		store:   store,
		quizzes: quizzes,
		timers:  timers,
		log:     log,
		tuning:  tuning.withDefaults(),
		now:     time.Now,
		rnd:     rand.Intn,
	}
}

// NewEngineWithClock is test-only for deterministic timestamps.
func NewEngineWithClock(store SessionStore, quizzes QuizRepository, timers TimerService, log *zap.Logger, tuning Tuning, now func() time.Time) *Engine {
	e := NewEngine(store, quizzes, timers, log, tuning)
	e.now = now
	return e
}

// SetNotifier wires transition broadcasting. Call before serving traffic.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// StartSession creates a LOBBY session for the quiz. The quiz must have at
// least one question and fewer than the configured cap of active sessions.
func (e *Engine) StartSession(ctx context.Context, quizID string, autoStartNum int) (int64, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	if len(quiz.Questions) == 0 {
		return 0, domain.ErrNoQuestions
	}
	if autoStartNum < 0 || autoStartNum > e.tuning.AutoStartCap {
		return 0, domain.ErrAutoStartNum
	}

	active := 0
	for _, s := range e.store.Sessions(quizID) {
		if s.CurrentState() != domain.StateEnd {
			active++
		}
	}
	if active >= e.tuning.MaxActiveSessions {
		return 0, domain.ErrTooManySessions
	}

	session := NewSession(e.store.NextSessionID(), quizID, quiz.Questions[0].ID, autoStartNum)
	e.store.Create(session)

	session.mu.Lock()
	e.store.Save(session)
	session.mu.Unlock()

	e.log.Info("session started",
		zap.Int64("session", session.ID),
		zap.String("quiz", quizID),
		zap.Int("autoStartNum", autoStartNum))
	return session.ID, nil
}

// Advance applies an operator action to the session. Illegal actions are
// rejected against the transition table with no mutation.
func (e *Engine) Advance(ctx context.Context, sessionID int64, action domain.Action) error {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if _, ok := domain.NextState(session.State, action); !ok {
		return domain.ErrInvalidAction
	}

	switch action {
	case domain.ActionEnd:
		e.timers.Cancel(session.AtQuestion)
		session.setState(domain.StateEnd)

	case domain.ActionNextQuestion:
		idx := questionIndex(quiz, session.AtQuestion)
		if session.State != domain.StateLobby {
			if idx < 0 || idx == len(quiz.Questions)-1 {
				return domain.ErrOutOfQuestions
			}
			idx++
			session.AtQuestion = quiz.Questions[idx].ID
		}
		for _, p := range session.Players {
			p.AtQuestion++
		}
		session.setState(domain.StateQuestionCountdown)
		e.armCountdown(session)

	case domain.ActionSkipCountdown:
		e.openQuestion(session, quiz)

	case domain.ActionGoToAnswer:
		e.timers.Cancel(session.AtQuestion)
		session.setState(domain.StateAnswerShow)

	case domain.ActionGoToFinalResults:
		session.setState(domain.StateFinalResults)
	}

	e.store.Save(session)
	e.notifyLocked(session)
	e.log.Info("session advanced",
		zap.Int64("session", sessionID),
		zap.String("action", string(action)),
		zap.String("state", string(session.State)))
	return nil
}

// Join registers a guest player in a LOBBY session. A blank name gets a
// generated one (5 random lowercase letters + 3 random digits), retried until
// unique in-session. Reaching the autostart threshold triggers the countdown
// transition as part of the join itself.
func (e *Engine) Join(ctx context.Context, sessionID int64, name string) (int64, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != domain.StateLobby {
		return 0, domain.ErrWrongSessionState
	}
	if name != "" && session.hasPlayerName(name) {
		return 0, domain.ErrDuplicateName
	}
	if name == "" {
		name = e.randomPlayerName(session)
	}

	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return 0, err
	}

	playerState := domain.StateLobby
	playerQuestion := 0
	if len(session.Players)+1 >= session.AutoStartNum {
		for _, p := range session.Players {
			p.AtQuestion = 1
		}
		session.setState(domain.StateQuestionCountdown)
		playerState = domain.StateQuestionCountdown
		playerQuestion = 1
		e.armCountdown(session)
	}

	player := &domain.Player{
		ID:           e.store.NextPlayerID(),
		Name:         name,
		State:        playerState,
		NumQuestions: len(quiz.Questions),
		AtQuestion:   playerQuestion,
	}
	session.Players = append(session.Players, player)

	e.store.Save(session)
	e.notifyLocked(session)
	e.log.Info("player joined",
		zap.Int64("session", sessionID),
		zap.Int64("player", player.ID),
		zap.String("name", name),
		zap.String("state", string(session.State)))
	return player.ID, nil
}

// armCountdown schedules the fixed countdown that auto-opens the current
// question. Call with the session lock held, after the transition.
func (e *Engine) armCountdown(session *Session) {
	sessionID, questionID, epoch := session.ID, session.AtQuestion, session.epoch
	e.timers.Schedule(questionID, e.tuning.Countdown, func() {
		e.autoOpen(sessionID, questionID, epoch)
	})
}

// openQuestion performs the QUESTION_OPEN entry effects: record the answer
// latency origin, move everyone to QUESTION_OPEN and arm the close timer for
// the question's configured duration. Call with the session lock held.
func (e *Engine) openQuestion(session *Session, quiz domain.Quiz) {
	e.timers.Cancel(session.AtQuestion)
	session.QuestionOpenTime = e.now().Unix()
	session.setState(domain.StateQuestionOpen)

	question := questionByID(quiz, session.AtQuestion)
	if question == nil {
		// Content changed under a running session; leave the question
		// open rather than arm a timer with an unknown duration.
		e.log.Error("current question missing from quiz content",
			zap.Int64("session", session.ID),
			zap.Int64("question", session.AtQuestion))
		return
	}
	sessionID, questionID, epoch := session.ID, session.AtQuestion, session.epoch
	e.timers.Schedule(questionID, time.Duration(question.Duration)*time.Second, func() {
		e.autoClose(sessionID, questionID, epoch)
	})
}

// autoOpen is the countdown timer callback. A stale epoch means the session
// transitioned (or ended) since the timer was armed; fire as a no-op.
func (e *Engine) autoOpen(sessionID, questionID int64, epoch uint64) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return
	}
	quiz, err := e.quizzes.GetQuiz(context.Background(), session.QuizID)
	if err != nil {
		e.log.Error("auto-open: quiz load failed", zap.Int64("session", sessionID), zap.Error(err))
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.epoch != epoch || session.State != domain.StateQuestionCountdown {
		e.log.Debug("auto-open skipped, timer stale",
			zap.Int64("session", sessionID),
			zap.Int64("question", questionID))
		return
	}
	e.openQuestion(session, quiz)
	e.store.Save(session)
	e.notifyLocked(session)
	e.log.Info("question opened by timer",
		zap.Int64("session", sessionID),
		zap.Int64("question", session.AtQuestion))
}

// autoClose is the question-duration timer callback.
func (e *Engine) autoClose(sessionID, questionID int64, epoch uint64) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.epoch != epoch || session.State != domain.StateQuestionOpen {
		e.log.Debug("auto-close skipped, timer stale",
			zap.Int64("session", sessionID),
			zap.Int64("question", questionID))
		return
	}
	session.setState(domain.StateQuestionClose)
	e.store.Save(session)
	e.notifyLocked(session)
	e.log.Info("question closed by timer",
		zap.Int64("session", sessionID),
		zap.Int64("question", questionID))
}

// SessionStatusInfo is the host view of a running session.
type SessionStatusInfo struct {
	State      domain.State `json:"state"`
	AtQuestion int64        `json:"atQuestion"`
	Players    []string     `json:"players"`
}

func (e *Engine) SessionStatus(sessionID int64) (SessionStatusInfo, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return SessionStatusInfo{}, domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return SessionStatusInfo{
		State:      session.State,
		AtQuestion: session.AtQuestion,
		Players:    session.playerNames(),
	}, nil
}

// SessionList splits a quiz's sessions into active and inactive ids,
// ascending.
func (e *Engine) SessionList(quizID string) (active, inactive []int64, err error) {
	active, inactive = []int64{}, []int64{}
	for _, s := range e.store.Sessions(quizID) {
		if s.CurrentState() != domain.StateEnd {
			active = append(active, s.ID)
		} else {
			inactive = append(inactive, s.ID)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	sort.Slice(inactive, func(i, j int) bool { return inactive[i] < inactive[j] })
	return active, inactive, nil
}

// PlayerStatusInfo mirrors the player's progress through the session.
type PlayerStatusInfo struct {
	State        domain.State `json:"state"`
	NumQuestions int          `json:"numQuestions"`
	AtQuestion   int          `json:"atQuestion"`
}

func (e *Engine) PlayerStatus(playerID int64) (PlayerStatusInfo, error) {
	session, player, err := e.findPlayerSession(playerID)
	if err != nil {
		return PlayerStatusInfo{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return PlayerStatusInfo{
		State:        player.State,
		NumQuestions: player.NumQuestions,
		AtQuestion:   player.AtQuestion,
	}, nil
}

// QuestionInfo returns the question the player is on, with correctness
// stripped. Unavailable while the session is in LOBBY, QUESTION_COUNTDOWN or
// END, or when the session is not on that question.
func (e *Engine) QuestionInfo(ctx context.Context, playerID int64, questionPos int) (domain.Question, error) {
	session, _, err := e.findPlayerSession(playerID)
	if err != nil {
		return domain.Question{}, err
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.Question{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if questionPos < 1 || questionPos > len(quiz.Questions) {
		return domain.Question{}, domain.ErrQuestionPosition
	}
	question := quiz.Questions[questionPos-1]
	if question.ID != session.AtQuestion {
		return domain.Question{}, domain.ErrWrongQuestion
	}
	switch session.State {
	case domain.StateLobby, domain.StateQuestionCountdown, domain.StateEnd:
		return domain.Question{}, domain.ErrWrongSessionState
	}
	return question.Sanitized(), nil
}

// ChatSend appends a chat message to the player's session.
func (e *Engine) ChatSend(playerID int64, body string) error {
	if n := utf8.RuneCountInString(body); n < 1 || n > 100 {
		return domain.ErrMessageLength
	}
	session, player, err := e.findPlayerSession(playerID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	session.Messages = append(session.Messages, domain.Message{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Body:       body,
		TimeSent:   e.now().Unix(),
	})
	e.store.Save(session)
	return nil
}

// ChatView returns the session's chat log, chronological.
func (e *Engine) ChatView(playerID int64) ([]domain.Message, error) {
	session, _, err := e.findPlayerSession(playerID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	out := make([]domain.Message, len(session.Messages))
	copy(out, session.Messages)
	return out, nil
}

// CurrentState reads the session state under its lock.
func (s *Session) CurrentState() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (e *Engine) findPlayerSession(playerID int64) (*Session, *domain.Player, error) {
	session, ok := e.store.FindByPlayer(playerID)
	if !ok {
		return nil, nil, domain.ErrPlayerNotFound
	}
	session.mu.Lock()
	player := session.findPlayer(playerID)
	session.mu.Unlock()
	if player == nil {
		return nil, nil, domain.ErrPlayerNotFound
	}
	return session, player, nil
}

func (e *Engine) notifyLocked(session *Session) {
	if e.notifier == nil {
		return
	}
	e.notifier.SessionStateChanged(session.ID, session.State, session.AtQuestion)
}

// randomPlayerName generates 5 distinct lowercase letters followed by 3
// distinct digits, retrying until the name is unique within the session.
func (e *Engine) randomPlayerName(session *Session) string {
	for {
		name := string(e.sample("abcdefghijklmnopqrstuvwxyz", 5)) + string(e.sample("0123456789", 3))
		if !session.hasPlayerName(name) {
			return name
		}
	}
}

func (e *Engine) sample(alphabet string, n int) []byte {
	picked := make([]byte, 0, n)
	seen := make(map[byte]bool)
	for len(picked) < n {
		c := alphabet[e.rnd(len(alphabet))]
		if seen[c] {
			continue
		}
		seen[c] = true
		picked = append(picked, c)
	}
	return picked
}

func questionIndex(quiz domain.Quiz, questionID int64) int {
	for i, q := range quiz.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

func questionByID(quiz domain.Quiz, questionID int64) *domain.Question {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			return &quiz.Questions[i]
		}
	}
	return nil
}
