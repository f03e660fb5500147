package bot

import (
	"errors"
	"fmt"
	"sync"
)

// State is the position of a chat in the task creation conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingTitle
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTitle:
		return "awaiting_title"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event moves the conversation between states.
type Event int

const (
	EventAddTask Event = iota
	EventTitleReceived
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventAddTask:
		return "add_task"
	case EventTitleReceived:
		return "title_received"
	case EventCancel:
		return "cancel"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventAddTask: StateAwaitingTitle,
	},
	StateAwaitingTitle: {
		EventAddTask:       StateAwaitingTitle,
		EventTitleReceived: StateIdle,
		EventCancel:        StateIdle,
	},
}

// Transition returns the state reached from "from" on ev.
func Transition(from State, ev Event) (State, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

type conversationKey struct {
	chatID int64
	userID int64
}

// StateStore keeps the conversation state per (chat, user). Chats without an
// entry are idle.
type StateStore struct {
	mu     sync.Mutex
	states map[conversationKey]State
}

// NewStateStore returns a store with every conversation idle.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[conversationKey]State)}
}

// Get returns the current state of the conversation.
func (s *StateStore) Get(chatID, userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[conversationKey{chatID, userID}]
}

// Fire applies ev and stores the resulting state. On an invalid transition the
// state is left unchanged.
func (s *StateStore) Fire(chatID, userID int64, ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey{chatID, userID}
	to, err := Transition(s.states[key], ev)
	if err != nil {
		return s.states[key], err
	}
	if to == StateIdle {
		delete(s.states, key)
	} else {
		s.states[key] = to
	}
	return to, nil
}
