// Package ui holds the state and presentation rules of the browser shell.
// A Store lives for one shell mount: create it when the shell starts and
// Close it when the shell goes away.
package ui

import (
	"sync"

	"github.com/RichardoC/dehost/internal/deploy"
)

const defaultSubscriberBuffer = 32

// State is the shared, observable part of the shell.
type State struct {
	ShowChat      bool `json:"show_chat"`
	ShowWorkbench bool `json:"show_workbench"`
	Started       bool `json:"started"`
	Deploying     bool `json:"deploying"`
	Uploading     bool `json:"uploading"`
}

// Busy reports whether an upload is running, which drives the loading indicator.
func (s State) Busy() bool {
	return s.Deploying || s.Uploading
}

// CanHideChat reports whether the chat panel may be toggled off.
func (s State) CanHideChat() bool {
	return s.ShowWorkbench || !s.ShowChat
}

type EventType string

const (
	EventState   EventType = "state"
	EventToast   EventType = "toast"
	EventChunk   EventType = "chunk"
	EventLoading EventType = "loading"
)

// Chunk is a piece of an assistant response still being streamed.
type Chunk struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	Done           bool   `json:"done,omitempty"`
}

type Event struct {
	Type    EventType            `json:"type"`
	State   *State               `json:"state,omitempty"`
	Toast   *deploy.Notification `json:"toast,omitempty"`
	Chunk   *Chunk               `json:"chunk,omitempty"`
	Loading *Loading             `json:"loading,omitempty"`
}

type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewStore() *Store {
	return &Store{
		state: State{ShowChat: true},
		subs:  make(map[int]chan Event),
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel of events and a cancel func. The first event
// is the current state. Slow subscribers lose events rather than block
// publishers.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	st := s.state
	ch <- Event{Type: EventState, State: &st}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// publish must be called with s.mu held.
func (s *Store) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Update applies fn to the state and publishes the result if it changed.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.state
	fn(&s.state)
	if s.state != before && !s.closed {
		st := s.state
		s.publish(Event{Type: EventState, State: &st})
	}
	return s.state
}

// Busy reports whether the current state calls for a loading indicator.
func (s *Store) Busy() bool {
	return s.Snapshot().Busy()
}

func (s *Store) SetDeploying(v bool) {
	s.Update(func(st *State) { st.Deploying = v })
}

func (s *Store) SetUploading(v bool) {
	s.Update(func(st *State) { st.Uploading = v })
}

func (s *Store) SetStarted(v bool) {
	s.Update(func(st *State) { st.Started = v })
}

// ToggleChat flips chat visibility when allowed.
func (s *Store) ToggleChat() State {
	return s.Update(func(st *State) {
		if st.CanHideChat() {
			st.ShowChat = !st.ShowChat
		}
	})
}

// ToggleWorkbench flips the workbench, bringing chat back if hiding the
// workbench would leave nothing on screen.
func (s *Store) ToggleWorkbench() State {
	return s.Update(func(st *State) {
		if st.ShowWorkbench && !st.ShowChat {
			st.ShowChat = true
		}
		st.ShowWorkbench = !st.ShowWorkbench
	})
}

// Notify publishes a toast. It satisfies deploy.Notifier.
func (s *Store) Notify(n deploy.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.publish(Event{Type: EventToast, Toast: &n})
}

// Stream publishes a response chunk.
func (s *Store) Stream(c Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.publish(Event{Type: EventChunk, Chunk: &c})
}

// Close ends every subscription. Later publishes are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
