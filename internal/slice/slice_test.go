package slice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/restclient"
	"github.com/campusbeacon/beacon/internal/toast"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClubs is a minimal Collaborator whose answers are set per test.
type fakeClubs struct {
	list   func(ctx context.Context, filter url.Values) ([]model.Club, error)
	get    func(ctx context.Context, id int64) (model.Club, error)
	create func(ctx context.Context, payload any) (model.Club, error)
	update func(ctx context.Context, id int64, payload any) (model.Club, error)
	del    func(ctx context.Context, id int64) error
}

var errUnset = errors.New("fake: not configured")

func (f *fakeClubs) List(ctx context.Context, filter url.Values) ([]model.Club, error) {
	if f.list == nil {
		return nil, errUnset
	}
	return f.list(ctx, filter)
}

func (f *fakeClubs) Get(ctx context.Context, id int64) (model.Club, error) {
	if f.get == nil {
		return model.Club{}, errUnset
	}
	return f.get(ctx, id)
}

func (f *fakeClubs) Create(ctx context.Context, payload any) (model.Club, error) {
	if f.create == nil {
		return model.Club{}, errUnset
	}
	return f.create(ctx, payload)
}

func (f *fakeClubs) Update(ctx context.Context, id int64, payload any) (model.Club, error) {
	if f.update == nil {
		return model.Club{}, errUnset
	}
	return f.update(ctx, id, payload)
}

func (f *fakeClubs) Delete(ctx context.Context, id int64) error {
	if f.del == nil {
		return errUnset
	}
	return f.del(ctx, id)
}

func newClubSlice(t *testing.T, f *fakeClubs) (*Slice[model.Club, int64], *toast.Recorder) {
	t.Helper()
	rec := &toast.Recorder{}
	s := New(Config[model.Club, int64]{
		Name:         "clubs",
		Collaborator: f,
		Notifier:     rec,
	})
	return s, rec
}

func seed(s *Slice[model.Club, int64], clubs ...model.Club) {
	s.Dispatch("seed", func(st *State[model.Club]) {
		st.Items = append([]model.Club(nil), clubs...)
	})
}

func ids(clubs []model.Club) []int64 {
	out := make([]int64, 0, len(clubs))
	for _, c := range clubs {
		out = append(out, c.ID)
	}
	return out
}

func TestFetchListReplacesItems(t *testing.T) {
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			return []model.Club{{ID: 2}, {ID: 3}}, nil
		},
	}
	s, _ := newClubSlice(t, f)

	if _, err := s.FetchList(context.Background(), nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}

	st := s.State()
	if diff := cmp.Diff([]model.Club{{ID: 2}, {ID: 3}}, st.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if st.Loading {
		t.Errorf("loading = true after fetch")
	}
	if st.HasError() {
		t.Errorf("error = %q, want none", st.Error)
	}
}

func TestFetchListPassesFilter(t *testing.T) {
	var got url.Values
	f := &fakeClubs{
		list: func(_ context.Context, filter url.Values) ([]model.Club, error) {
			got = filter
			return nil, nil
		},
	}
	s, _ := newClubSlice(t, f)

	filter := url.Values{"club_id": []string{"7"}}
	if _, err := s.FetchList(context.Background(), filter); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if got.Get("club_id") != "7" {
		t.Fatalf("filter = %v, want club_id=7", got)
	}
	if st := s.State(); st.Items == nil || len(st.Items) != 0 {
		t.Fatalf("items = %#v, want empty non-nil list", st.Items)
	}
}

func TestFetchListDropsDuplicateIDs(t *testing.T) {
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			return []model.Club{{ID: 1, Name: "old"}, {ID: 2}, {ID: 1, Name: "new"}}, nil
		},
	}
	s, _ := newClubSlice(t, f)

	if _, err := s.FetchList(context.Background(), nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	want := []model.Club{{ID: 1, Name: "new"}, {ID: 2}}
	if diff := cmp.Diff(want, s.State().Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchListFailurePreservesItems(t *testing.T) {
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			return nil, &restclient.TransportError{Method: http.MethodGet, Path: "/clubs", Err: errors.New("connection refused")}
		},
	}
	s, rec := newClubSlice(t, f)
	seed(s, model.Club{ID: 1, Name: "Chess Club"})

	if _, err := s.FetchList(context.Background(), nil); err == nil {
		t.Fatal("FetchList succeeded, want error")
	}

	st := s.State()
	if len(st.Items) != 1 || st.Items[0].ID != 1 {
		t.Fatalf("items = %v, want last good data kept", st.Items)
	}
	if st.Error != "Failed to fetch clubs" {
		t.Errorf("error = %q, want fallback", st.Error)
	}
	if st.Loading {
		t.Errorf("loading = true after rejection")
	}
	if n := len(rec.Toasts()); n != 0 {
		t.Errorf("read failure raised %d toasts, want 0", n)
	}
}

func TestFetchOne(t *testing.T) {
	f := &fakeClubs{
		get: func(_ context.Context, id int64) (model.Club, error) {
			if id == 4 {
				return model.Club{ID: 4, Name: "Robotics"}, nil
			}
			return model.Club{}, &restclient.APIError{Status: http.StatusNotFound, Message: "not found"}
		},
	}
	s, _ := newClubSlice(t, f)

	if _, err := s.FetchOne(context.Background(), 4); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	st := s.State()
	if st.Current == nil || st.Current.Name != "Robotics" {
		t.Fatalf("current = %+v, want Robotics", st.Current)
	}
	if len(st.Items) != 0 {
		t.Errorf("fetchOne touched items: %v", st.Items)
	}

	if _, err := s.FetchOne(context.Background(), 99); err == nil {
		t.Fatal("FetchOne(99) succeeded, want error")
	}
	st = s.State()
	if st.Current != nil {
		t.Errorf("current = %+v, want nil after failure", st.Current)
	}
	if st.Error != "Failed to fetch clubs" {
		t.Errorf("error = %q, not-found must use fallback", st.Error)
	}
}

func TestCreateAppendsExactlyOnce(t *testing.T) {
	f := &fakeClubs{
		create: func(context.Context, any) (model.Club, error) {
			return model.Club{ID: 3, Name: "Debate"}, nil
		},
	}
	s, _ := newClubSlice(t, f)
	seed(s, model.Club{ID: 1}, model.Club{ID: 2})

	if _, err := s.Create(context.Background(), map[string]any{"name": "Debate"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, ids(s.State().Items)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyMutationAnswerIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	client, err := restclient.New(restclient.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("restclient.New: %v", err)
	}
	rec := &toast.Recorder{}
	s := New(Config[model.Club, int64]{
		Name:         "clubs",
		Collaborator: restclient.NewResource[model.Club, int64](client, "/clubs"),
		Notifier:     rec,
	})
	seed(s, model.Club{ID: 1, Name: "Chess"})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.Create(ctx, map[string]any{"name": "Debate"}); !errors.Is(err, restclient.ErrEmptyBody) {
			t.Fatalf("Create err = %v, want ErrEmptyBody", err)
		}
	}
	if _, err := s.Update(ctx, 1, map[string]any{"name": "Chess Club"}); !errors.Is(err, restclient.ErrEmptyBody) {
		t.Fatalf("Update err = %v, want ErrEmptyBody", err)
	}

	st := s.State()
	if diff := cmp.Diff([]model.Club{{ID: 1, Name: "Chess"}}, st.Items); diff != "" {
		t.Errorf("items changed (-want +got):\n%s", diff)
	}
	if st.Error != "Failed to update clubs" {
		t.Errorf("error = %q", st.Error)
	}
	if got := len(rec.Toasts()); got != 3 {
		t.Errorf("toasts = %d, want 3", got)
	}
}

func TestCreateRejectedKeepsItems(t *testing.T) {
	f := &fakeClubs{
		create: func(context.Context, any) (model.Club, error) {
			return model.Club{}, &restclient.APIError{Status: http.StatusBadRequest, Message: "Name already exists"}
		},
	}
	s, rec := newClubSlice(t, f)
	seed(s, model.Club{ID: 1, Name: "Chess Club"})

	if _, err := s.Create(context.Background(), map[string]any{"name": "Chess Club"}); err == nil {
		t.Fatal("Create succeeded, want error")
	}

	st := s.State()
	if st.Loading {
		t.Errorf("loading = true after rejection")
	}
	if st.Error != "Name already exists" {
		t.Errorf("error = %q, want collaborator message", st.Error)
	}
	if diff := cmp.Diff([]model.Club{{ID: 1, Name: "Chess Club"}}, st.Items); diff != "" {
		t.Errorf("items changed (-want +got):\n%s", diff)
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != toast.LevelError || toasts[0].Message != "Name already exists" {
		t.Errorf("toasts = %+v, want one error toast", toasts)
	}
}

func TestUpdateIsPureReplace(t *testing.T) {
	f := &fakeClubs{
		update: func(_ context.Context, id int64, _ any) (model.Club, error) {
			return model.Club{ID: id, Name: "Chess Society"}, nil
		},
	}
	s, _ := newClubSlice(t, f)
	seed(s, model.Club{ID: 1, Name: "Chess Club", Category: "games"})
	s.Dispatch("select", func(st *State[model.Club]) {
		cur := st.Items[0]
		st.Current = &cur
	})

	if _, err := s.Update(context.Background(), 1, map[string]any{"name": "Chess Society"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	st := s.State()
	want := []model.Club{{ID: 1, Name: "Chess Society"}}
	if diff := cmp.Diff(want, st.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if st.Current == nil || st.Current.Name != "Chess Society" {
		t.Errorf("current = %+v, want replaced record", st.Current)
	}
}

func TestUpdateRejectedLeavesState(t *testing.T) {
	f := &fakeClubs{
		update: func(context.Context, int64, any) (model.Club, error) {
			return model.Club{}, &restclient.APIError{Status: http.StatusForbidden, Message: "not allowed"}
		},
	}
	s, rec := newClubSlice(t, f)
	seed(s, model.Club{ID: 1, Name: "Chess Club"})

	if _, err := s.Update(context.Background(), 1, nil); err == nil {
		t.Fatal("Update succeeded, want error")
	}
	st := s.State()
	if st.Items[0].Name != "Chess Club" {
		t.Errorf("item mutated on rejection: %+v", st.Items[0])
	}
	if st.Error != "not allowed" {
		t.Errorf("error = %q, want not allowed", st.Error)
	}
	if len(rec.Toasts()) != 1 {
		t.Errorf("toasts = %d, want 1", len(rec.Toasts()))
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	f := &fakeClubs{
		del: func(context.Context, int64) error { return nil },
	}
	s, _ := newClubSlice(t, f)
	seed(s, model.Club{ID: 1}, model.Club{ID: 2}, model.Club{ID: 3})
	s.Dispatch("select", func(st *State[model.Club]) {
		cur := st.Items[1]
		st.Current = &cur
	})

	if err := s.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	st := s.State()
	if diff := cmp.Diff([]int64{1, 3}, ids(st.Items)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if st.Current != nil {
		t.Errorf("current = %+v, want cleared", st.Current)
	}
}

func TestClearErrorIdempotent(t *testing.T) {
	s, _ := newClubSlice(t, &fakeClubs{})
	seed(s, model.Club{ID: 1})
	before := s.State()

	events := 0
	unsubscribe := s.Subscribe(func(Event[model.Club]) { events++ })
	defer unsubscribe()

	s.ClearError()

	if diff := cmp.Diff(before, s.State()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
	if events != 0 {
		t.Errorf("clearing an empty error emitted %d events", events)
	}

	if _, err := s.FetchOne(context.Background(), 1); err == nil {
		t.Fatal("expected error from unset fake")
	}
	s.ClearError()
	if s.State().HasError() {
		t.Errorf("error survived ClearError")
	}
}

func TestLoadingTransitionsPerCall(t *testing.T) {
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) { return nil, nil },
		del:  func(context.Context, int64) error { return errors.New("boom") },
	}
	s, _ := newClubSlice(t, f)

	var phases []Phase
	var loading []bool
	unsubscribe := s.Subscribe(func(ev Event[model.Club]) {
		phases = append(phases, ev.Phase)
		loading = append(loading, ev.State.Loading)
	})
	defer unsubscribe()

	_, _ = s.FetchList(context.Background(), nil)
	_ = s.Delete(context.Background(), 1)

	if diff := cmp.Diff([]Phase{Pending, Fulfilled, Pending, Rejected}, phases); diff != "" {
		t.Fatalf("phases mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, loading); diff != "" {
		t.Fatalf("loading mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingClearsPreviousError(t *testing.T) {
	release := make(chan struct{})
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			<-release
			return nil, nil
		},
	}
	s, _ := newClubSlice(t, f)
	s.Dispatch("fail", func(st *State[model.Club]) { st.Error = "old failure" })

	pending := make(chan State[model.Club], 1)
	unsubscribe := s.Subscribe(func(ev Event[model.Club]) {
		if ev.Phase == Pending {
			pending <- ev.State
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.FetchList(context.Background(), nil)
	}()

	st := <-pending
	if st.HasError() || !st.Loading {
		t.Errorf("pending state = %+v, want loading without error", st)
	}
	close(release)
	<-done
}

func TestStaleFetchListIsDiscarded(t *testing.T) {
	first := make(chan struct{})
	var calls int
	var mu sync.Mutex
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				<-first
				return []model.Club{{ID: 1, Name: "stale"}}, nil
			}
			return []model.Club{{ID: 2, Name: "fresh"}}, nil
		},
	}
	s, _ := newClubSlice(t, f)

	started := make(chan struct{}, 1)
	unsubscribe := s.Subscribe(func(ev Event[model.Club]) {
		if ev.Op == OpFetchList.Name && ev.Phase == Pending {
			select {
			case started <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.FetchList(context.Background(), nil)
	}()
	<-started
	unsubscribe()

	if _, err := s.FetchList(context.Background(), nil); err != nil {
		t.Fatalf("second FetchList: %v", err)
	}
	if st := s.State(); !st.Loading {
		t.Errorf("loading = false while first request is still in flight")
	}

	close(first)
	<-done

	st := s.State()
	if diff := cmp.Diff([]model.Club{{ID: 2, Name: "fresh"}}, st.Items); diff != "" {
		t.Fatalf("stale response applied (-want +got):\n%s", diff)
	}
	if st.Loading {
		t.Errorf("loading = true after both requests finished")
	}
}

func TestDeleteRacingFetchList(t *testing.T) {
	releaseDelete := make(chan struct{})
	f := &fakeClubs{
		list: func(context.Context, url.Values) ([]model.Club, error) {
			return []model.Club{{ID: 1}, {ID: 2}}, nil
		},
		del: func(context.Context, int64) error {
			<-releaseDelete
			return nil
		},
	}
	s, _ := newClubSlice(t, f)
	seed(s, model.Club{ID: 1}, model.Club{ID: 2})

	done := make(chan error, 1)
	go func() { done <- s.Delete(context.Background(), 1) }()

	if _, err := s.FetchList(context.Background(), nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	close(releaseDelete)
	if err := <-done; err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if diff := cmp.Diff([]int64{2}, ids(s.State().Items)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestItemsStayUniqueAcrossMutations(t *testing.T) {
	next := int64(0)
	f := &fakeClubs{
		create: func(_ context.Context, payload any) (model.Club, error) {
			// Every third create echoes an id that already exists.
			next++
			id := next
			if next%3 == 0 {
				id = next - 1
			}
			return model.Club{ID: id}, nil
		},
		update: func(_ context.Context, id int64, _ any) (model.Club, error) {
			return model.Club{ID: id, Name: "renamed"}, nil
		},
	}
	s, _ := newClubSlice(t, f)

	for i := 0; i < 20; i++ {
		c, err := s.Create(context.Background(), nil)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := s.Update(context.Background(), c.ID, nil); err != nil {
			t.Fatalf("Update: %v", err)
		}
		seen := map[int64]bool{}
		for _, it := range s.State().Items {
			if seen[it.ID] {
				t.Fatalf("duplicate id %d after step %d", it.ID, i)
			}
			seen[it.ID] = true
		}
	}
}

func TestRunCustomOperation(t *testing.T) {
	s, rec := newClubSlice(t, &fakeClubs{})
	seed(s, model.Club{ID: 1, Name: "a"}, model.Club{ID: 2, Name: "b"})

	archive := Op{Name: "archiveAll", Verb: "archive", Mutation: true}
	err := s.Run(context.Background(), archive,
		func(context.Context) error { return nil },
		func(st *State[model.Club]) {
			for i := range st.Items {
				st.Items[i].Category = "archived"
			}
		},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range s.State().Items {
		if c.Category != "archived" {
			t.Fatalf("club %d not reduced: %+v", c.ID, c)
		}
	}

	err = s.Run(context.Background(), archive,
		func(context.Context) error { return errors.New("offline") },
		func(st *State[model.Club]) { st.Items = nil },
	)
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if got := s.State().Error; got != "Failed to archive clubs" {
		t.Errorf("error = %q", got)
	}
	if len(s.State().Items) != 2 {
		t.Errorf("reduce ran on failure")
	}
	if len(rec.Toasts()) != 1 {
		t.Errorf("mutation failure toasts = %d, want 1", len(rec.Toasts()))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, _ := newClubSlice(t, &fakeClubs{})
	seed(s, model.Club{ID: 1, Name: "a"})

	st := s.State()
	st.Items[0].Name = "mutated"
	st.Counters["x"] = 5

	again := s.State()
	if again.Items[0].Name != "a" {
		t.Errorf("snapshot shared items with container")
	}
	if again.Counter("x") != 0 {
		t.Errorf("snapshot shared counters with container")
	}
}

func TestCountersClampAtZero(t *testing.T) {
	var st State[model.Club]
	st.AddCounter("unread", -3)
	if got := st.Counter("unread"); got != 0 {
		t.Fatalf("counter = %d, want 0", got)
	}
	st.AddCounter("unread", 2)
	st.AddCounter("unread", -1)
	if got := st.Counter("unread"); got != 1 {
		t.Fatalf("counter = %d, want 1", got)
	}
}
