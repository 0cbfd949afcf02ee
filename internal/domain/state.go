package domain

// State is the lifecycle stage of a quiz session. Transitions move strictly
// forward through the enumeration except END, which is reachable from any
// non-terminal state.
type State string

const (
	StateLobby             State = "LOBBY"
	StateQuestionCountdown State = "QUESTION_COUNTDOWN"
	StateQuestionOpen      State = "QUESTION_OPEN"
	StateQuestionClose     State = "QUESTION_CLOSE"
	StateAnswerShow        State = "ANSWER_SHOW"
	StateFinalResults      State = "FINAL_RESULTS"
	StateEnd               State = "END"
)

// Action is an operator command against a running session.
type Action string

const (
	ActionNextQuestion      Action = "NEXT_QUESTION"
	ActionSkipCountdown     Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer        Action = "GO_TO_ANSWER"
	ActionGoToFinalResults  Action = "GO_TO_FINAL_RESULTS"
	ActionEnd               Action = "END"
)

// ParseAction maps a wire string onto a known action.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionNextQuestion, ActionSkipCountdown, ActionGoToAnswer, ActionGoToFinalResults, ActionEnd:
		return Action(raw), true
	}
	return "", false
}

// transitions is the full action table. A missing cell means the action is
// illegal in that state. QUESTION_OPEN -> QUESTION_CLOSE is timer-driven
// only and deliberately absent here.
var transitions = map[State]map[Action]State{
	StateLobby: {
		ActionNextQuestion: StateQuestionCountdown,
		ActionEnd:          StateEnd,
	},
	StateQuestionCountdown: {
		ActionSkipCountdown: StateQuestionOpen,
		ActionEnd:           StateEnd,
	},
	StateQuestionOpen: {
		ActionEnd: StateEnd,
	},
	StateQuestionClose: {
		ActionNextQuestion:     StateQuestionCountdown,
		ActionGoToAnswer:       StateAnswerShow,
		ActionGoToFinalResults: StateFinalResults,
		ActionEnd:              StateEnd,
	},
	StateAnswerShow: {
		ActionNextQuestion:     StateQuestionCountdown,
		ActionGoToFinalResults: StateFinalResults,
		ActionEnd:              StateEnd,
	},
	StateFinalResults: {
		ActionEnd: StateEnd,
	},
	StateEnd: {},
}

// NextState resolves the state an action leads to from the current state.
// The second return is false when the action is not legal there.
func NextState(current State, action Action) (State, bool) {
	next, ok := transitions[current][action]
	return next, ok
}
