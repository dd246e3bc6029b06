// Package slice implements the resource slice container: a state holder for
// one collection of records that runs list, detail, create, update and delete
// requests against a REST collaborator and reduces their results into State.
//
// Every request goes through pending and then exactly one of fulfilled or
// rejected. State only changes after the collaborator answers; there is no
// speculative update and no rollback.
package slice

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/restclient"
	"github.com/campusbeacon/beacon/internal/toast"
)

// Collaborator is the REST surface one slice needs.
type Collaborator[T any, K comparable] interface {
	List(ctx context.Context, filter url.Values) ([]T, error)
	Get(ctx context.Context, id K) (T, error)
	Create(ctx context.Context, payload any) (T, error)
	Update(ctx context.Context, id K, payload any) (T, error)
	Delete(ctx context.Context, id K) error
}

// Hooks run after the built-in reduction, inside the same critical section.
// They maintain derived counters.
type Hooks[T any] struct {
	AfterFetchList func(st *State[T], items []T)
	AfterFetchOne  func(st *State[T], item T)
	AfterCreate    func(st *State[T], created T)
	AfterUpdate    func(st *State[T], prev T, found bool, updated T)
	AfterDelete    func(st *State[T], removed T, found bool)
}

// Config configures a Slice.
type Config[T model.Entity[K], K comparable] struct {
	// Name labels the resource in logs and fallback messages ("clubs").
	Name         string
	Collaborator Collaborator[T, K]
	Hooks        Hooks[T]
	Notifier     toast.Notifier
	Logger       *zap.Logger
}

// Slice holds the state of one resource.
type Slice[T model.Entity[K], K comparable] struct {
	name     string
	collab   Collaborator[T, K]
	hooks    Hooks[T]
	notifier toast.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	state    State[T]
	inflight int
	tokens   map[string]uint64
	subs     map[int]func(Event[T])
	nextSub  int
}

// New builds an empty slice.
func New[T model.Entity[K], K comparable](cfg Config[T, K]) *Slice[T, K] {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = toast.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = "records"
	}
	return &Slice[T, K]{
		name:     name,
		collab:   cfg.Collaborator,
		hooks:    cfg.Hooks,
		notifier: notifier,
		logger:   logger.With(zap.String("resource", name)),
		state: State[T]{
			Items:    []T{},
			Counters: map[string]int{},
		},
		tokens: make(map[string]uint64),
		subs:   make(map[int]func(Event[T])),
	}
}

// Name returns the resource label.
func (s *Slice[T, K]) Name() string { return s.name }

// State returns a snapshot of the current state.
func (s *Slice[T, K]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Find looks up a record in Items.
func (s *Slice[T, K]) Find(id K) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.state.Items, id); i >= 0 {
		return s.state.Items[i], true
	}
	var zero T
	return zero, false
}

// Subscribe registers fn for every transition. Events are delivered on the
// goroutine that caused them. The returned func removes the subscription.
func (s *Slice[T, K]) Subscribe(fn func(Event[T])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ClearError resets the error message and nothing else.
func (s *Slice[T, K]) ClearError() {
	s.mu.Lock()
	if s.state.Error == "" {
		s.mu.Unlock()
		return
	}
	s.state.Error = ""
	ev, subs := s.eventLocked("clearError", Fulfilled, nil, false)
	s.mu.Unlock()
	deliver(subs, ev)
}

// Dispatch applies a synchronous reducer.
func (s *Slice[T, K]) Dispatch(name string, fn func(st *State[T])) {
	s.mu.Lock()
	fn(&s.state)
	ev, subs := s.eventLocked(name, Fulfilled, nil, false)
	s.mu.Unlock()
	deliver(subs, ev)
}

// FetchList replaces Items with the collaborator's list. On failure the
// previous Items are kept.
func (s *Slice[T, K]) FetchList(ctx context.Context, filter url.Values) ([]T, error) {
	var items []T
	err := s.run(ctx, OpFetchList,
		func(ctx context.Context) (err error) {
			items, err = s.collab.List(ctx, filter)
			return err
		},
		func(st *State[T]) {
			st.Items = uniqueByID[T, K](items)
			if s.hooks.AfterFetchList != nil {
				s.hooks.AfterFetchList(st, st.Items)
			}
		},
		nil,
	)
	return items, err
}

// FetchOne loads a single record into Current. On failure Current is cleared.
func (s *Slice[T, K]) FetchOne(ctx context.Context, id K) (T, error) {
	var item T
	err := s.run(ctx, OpFetchOne,
		func(ctx context.Context) (err error) {
			item, err = s.collab.Get(ctx, id)
			return err
		},
		func(st *State[T]) {
			cur := item
			st.Current = &cur
			if s.hooks.AfterFetchOne != nil {
				s.hooks.AfterFetchOne(st, item)
			}
		},
		func(st *State[T]) {
			st.Current = nil
		},
	)
	return item, err
}

// Create appends the record returned by the collaborator.
func (s *Slice[T, K]) Create(ctx context.Context, payload any) (T, error) {
	var created T
	err := s.run(ctx, OpCreate,
		func(ctx context.Context) (err error) {
			created, err = s.collab.Create(ctx, payload)
			return err
		},
		func(st *State[T]) {
			// An id the collaborator reports twice replaces the existing
			// entry so Items stays unique.
			if i := indexOf(st.Items, created.GetID()); i >= 0 {
				prev := st.Items[i]
				st.Items[i] = created
				syncCurrent[T, K](st, created)
				if s.hooks.AfterUpdate != nil {
					s.hooks.AfterUpdate(st, prev, true, created)
				}
				return
			}
			st.Items = append(st.Items, created)
			if s.hooks.AfterCreate != nil {
				s.hooks.AfterCreate(st, created)
			}
		},
		nil,
	)
	return created, err
}

// Update replaces the matching entry, and Current when it has the same id,
// with the collaborator's record.
func (s *Slice[T, K]) Update(ctx context.Context, id K, payload any) (T, error) {
	var updated T
	err := s.run(ctx, OpUpdate,
		func(ctx context.Context) (err error) {
			updated, err = s.collab.Update(ctx, id, payload)
			return err
		},
		func(st *State[T]) {
			ReplaceItem[T, K](st, updated, s.hooks.AfterUpdate)
		},
		nil,
	)
	return updated, err
}

// Delete removes the matching entry and clears Current when it matches.
func (s *Slice[T, K]) Delete(ctx context.Context, id K) error {
	return s.run(ctx, OpDelete,
		func(ctx context.Context) error {
			return s.collab.Delete(ctx, id)
		},
		func(st *State[T]) {
			var removed T
			found := false
			if i := indexOf(st.Items, id); i >= 0 {
				removed = st.Items[i]
				found = true
				st.Items = append(st.Items[:i:i], st.Items[i+1:]...)
			}
			if st.Current != nil && (*st.Current).GetID() == id {
				st.Current = nil
			}
			if s.hooks.AfterDelete != nil {
				s.hooks.AfterDelete(st, removed, found)
			}
		},
		nil,
	)
}

// Run executes a resource-specific operation with the same lifecycle as the
// built-in ones. reduce runs only when call succeeds.
func (s *Slice[T, K]) Run(ctx context.Context, op Op, call func(ctx context.Context) error, reduce func(st *State[T])) error {
	return s.run(ctx, op, call, reduce, nil)
}

func (s *Slice[T, K]) run(ctx context.Context, op Op, call func(ctx context.Context) error, onSuccess, onFailure func(st *State[T])) error {
	token := s.begin(op)
	err := call(ctx)
	s.finish(op, token, err, onSuccess, onFailure)
	return err
}

func (s *Slice[T, K]) begin(op Op) uint64 {
	s.mu.Lock()
	var token uint64
	if op.LatestOnly {
		s.tokens[op.Name]++
		token = s.tokens[op.Name]
	}
	s.inflight++
	s.state.Loading = true
	s.state.Error = ""
	ev, subs := s.eventLocked(op.Name, Pending, nil, false)
	s.mu.Unlock()

	s.logger.Debug("request pending", zap.String("op", op.Name))
	deliver(subs, ev)
	return token
}

func (s *Slice[T, K]) finish(op Op, token uint64, err error, onSuccess, onFailure func(st *State[T])) {
	phase := Fulfilled
	if err != nil {
		phase = Rejected
	}

	s.mu.Lock()
	s.inflight--
	s.state.Loading = s.inflight > 0
	stale := op.LatestOnly && token != s.tokens[op.Name]

	var message string
	if !stale {
		if err == nil {
			if onSuccess != nil {
				onSuccess(&s.state)
			}
		} else {
			message = restclient.UserMessage(err, op.fallback(s.name))
			s.state.Error = message
			if onFailure != nil {
				onFailure(&s.state)
			}
		}
	}
	ev, subs := s.eventLocked(op.Name, phase, err, stale)
	s.mu.Unlock()

	switch {
	case stale:
		s.logger.Debug("discarded stale response", zap.String("op", op.Name), zap.Uint64("token", token))
	case err != nil:
		s.logger.Warn("request rejected", zap.String("op", op.Name), zap.String("message", message), zap.Error(err))
		if op.Mutation {
			s.notifier.Notify(toast.Toast{Level: toast.LevelError, Message: message})
		}
	default:
		s.logger.Debug("request fulfilled", zap.String("op", op.Name))
	}
	deliver(subs, ev)
}

func (s *Slice[T, K]) eventLocked(op string, phase Phase, err error, stale bool) (Event[T], []func(Event[T])) {
	if len(s.subs) == 0 {
		return Event[T]{}, nil
	}
	subs := make([]func(Event[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return Event[T]{
		Op:    op,
		Phase: phase,
		State: s.state.Snapshot(),
		Err:   err,
		Stale: stale,
	}, subs
}

func deliver[T any](subs []func(Event[T]), ev Event[T]) {
	for _, fn := range subs {
		fn(ev)
	}
}

// ReplaceItem swaps the entry sharing updated's id, and Current when it
// matches, then runs after. Entries that are not present are left alone.
func ReplaceItem[T model.Entity[K], K comparable](st *State[T], updated T, after func(st *State[T], prev T, found bool, updated T)) {
	var prev T
	found := false
	if i := indexOf(st.Items, updated.GetID()); i >= 0 {
		prev = st.Items[i]
		found = true
		st.Items[i] = updated
	}
	syncCurrent[T, K](st, updated)
	if after != nil {
		after(st, prev, found, updated)
	}
}

func syncCurrent[T model.Entity[K], K comparable](st *State[T], item T) {
	if st.Current != nil && (*st.Current).GetID() == item.GetID() {
		cur := item
		st.Current = &cur
	}
}

func indexOf[T model.Entity[K], K comparable](items []T, id K) int {
	for i, it := range items {
		if it.GetID() == id {
			return i
		}
	}
	return -1
}

// uniqueByID keeps the first position of each id and the last value seen
// for it.
func uniqueByID[T model.Entity[K], K comparable](items []T) []T {
	out := make([]T, 0, len(items))
	pos := make(map[K]int, len(items))
	for _, it := range items {
		if i, ok := pos[it.GetID()]; ok {
			out[i] = it
			continue
		}
		pos[it.GetID()] = len(out)
		out = append(out, it)
	}
	return out
}
