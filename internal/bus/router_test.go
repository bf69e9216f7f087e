package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_DispatchByType(t *testing.T) {
	r := NewRouter()

	var calls []string
	r.Subscribe(EventTypeSetTalking, func(ev Event) {
		calls = append(calls, "talk-1")
	})
	r.Subscribe(EventTypeSetTalking, func(ev Event) {
		calls = append(calls, "talk-2")
	})
	r.SubscribeMultiple([]EventType{EventTypeSayText, EventTypeAsk}, func(ev Event) {
		calls = append(calls, string(ev.Type()))
	})

	r.Dispatch(SetTalking{Talking: true})
	r.Dispatch(Ask{Text: "hi"})
	r.Dispatch(SayText{Text: "hi"})

	assert.Equal(t, []string{"talk-1", "talk-2", "inference.ask", "speech.say"}, calls)
}

func TestRouter_Unhandled(t *testing.T) {
	r := NewRouter()
	var unhandled []Event
	r.Unhandled(func(ev Event) { unhandled = append(unhandled, ev) })
	r.Subscribe(EventTypeQuit, func(Event) {})

	r.Dispatch(Quit{})
	r.Dispatch(SetModel{Model: "llama3"})

	assert.Equal(t, []Event{SetModel{Model: "llama3"}}, unhandled)

	r.Clear()
	r.Dispatch(Quit{})
	assert.Len(t, unhandled, 1)
}
