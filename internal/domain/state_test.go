package domain

import "testing"

func TestNextStateLegalTransitions(t *testing.T) {
	cases := []struct {
		from   State
		action Action
		want   State
	}{
		{StateLobby, ActionNextQuestion, StateQuestionCountdown},
		{StateLobby, ActionEnd, StateEnd},
		{StateQuestionCountdown, ActionSkipCountdown, StateQuestionOpen},
		{StateQuestionCountdown, ActionEnd, StateEnd},
		{StateQuestionOpen, ActionEnd, StateEnd},
		{StateQuestionClose, ActionNextQuestion, StateQuestionCountdown},
		{StateQuestionClose, ActionGoToAnswer, StateAnswerShow},
		{StateQuestionClose, ActionGoToFinalResults, StateFinalResults},
		{StateQuestionClose, ActionEnd, StateEnd},
		{StateAnswerShow, ActionNextQuestion, StateQuestionCountdown},
		{StateAnswerShow, ActionGoToFinalResults, StateFinalResults},
		{StateAnswerShow, ActionEnd, StateEnd},
		{StateFinalResults, ActionEnd, StateEnd},
	}
	for _, c := range cases {
		got, ok := NextState(c.from, c.action)
		if !ok {
			t.Fatalf("%s + %s: expected legal transition", c.from, c.action)
		}
		if got != c.want {
			t.Fatalf("%s + %s: expected %s, got %s", c.from, c.action, c.want, got)
		}
	}
}

func TestNextStateIllegalTransitions(t *testing.T) {
	cases := []struct {
		from   State
		action Action
	}{
		{StateLobby, ActionSkipCountdown},
		{StateLobby, ActionGoToAnswer},
		{StateLobby, ActionGoToFinalResults},
		{StateQuestionCountdown, ActionNextQuestion},
		// QUESTION_OPEN closes by timer only, never by operator action.
		{StateQuestionOpen, ActionSkipCountdown},
		{StateQuestionOpen, ActionNextQuestion},
		{StateQuestionOpen, ActionGoToAnswer},
		{StateQuestionClose, ActionSkipCountdown},
		{StateAnswerShow, ActionGoToAnswer},
		{StateFinalResults, ActionNextQuestion},
		{StateEnd, ActionEnd},
		{StateEnd, ActionNextQuestion},
	}
	for _, c := range cases {
		if _, ok := NextState(c.from, c.action); ok {
			t.Fatalf("%s + %s: expected illegal transition", c.from, c.action)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"NEXT_QUESTION", "SKIP_COUNTDOWN", "GO_TO_ANSWER", "GO_TO_FINAL_RESULTS", "END"} {
		action, ok := ParseAction(raw)
		if !ok || string(action) != raw {
			t.Fatalf("expected %q to parse, got %q ok=%v", raw, action, ok)
		}
	}
	if _, ok := ParseAction("RESTART"); ok {
		t.Fatalf("expected unknown action to be rejected")
	}
	if _, ok := ParseAction(""); ok {
		t.Fatalf("expected empty action to be rejected")
	}
}
