// Package campus assembles one resource slice per campus collection behind a
// shared REST client and session.
package campus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/notifications"
	"github.com/campusbeacon/beacon/internal/restclient"
	"github.com/campusbeacon/beacon/internal/slice"
	"github.com/campusbeacon/beacon/internal/toast"
)

// Options configures a Store.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Notifier   toast.Notifier
	Logger     *zap.Logger
	// OnSessionExpired runs after the store has dropped its signed-in user.
	OnSessionExpired func()
	LookupSize       int
	LookupTTL        time.Duration
}

// Store is the application state: every resource slice plus the session.
type Store struct {
	Client *restclient.Client

	Clubs         *slice.Slice[model.Club, model.ID]
	Coordinators  *slice.Slice[model.Coordinator, model.ID]
	Events        *slice.Slice[model.Event, model.ID]
	Notifications *notifications.Slice
	Contacts      *slice.Slice[model.Contact, model.ID]
	Users         *slice.Slice[model.User, model.ID]
	Marketplace   *slice.Slice[model.MarketplaceItem, model.ID]

	ClubNames *ClubNames

	logger    *zap.Logger
	onExpired func()

	mu   sync.Mutex
	user *model.User
}

// New wires the slices to a fresh client.
func New(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = toast.Nop{}
	}

	s := &Store{logger: logger, onExpired: opts.OnSessionExpired}

	client, err := restclient.New(restclient.Options{
		BaseURL:          opts.BaseURL,
		Timeout:          opts.Timeout,
		HTTPClient:       opts.HTTPClient,
		Logger:           logger.Named("rest"),
		OnSessionExpired: s.sessionExpired,
	})
	if err != nil {
		return nil, err
	}
	s.Client = client

	clubsAPI := restclient.NewResource[model.Club, model.ID](client, "/clubs")
	s.ClubNames = newClubNames(clubsAPI, opts.LookupSize, opts.LookupTTL)

	s.Clubs = slice.New(slice.Config[model.Club, model.ID]{
		Name:         "clubs",
		Collaborator: clubsAPI,
		Hooks:        s.ClubNames.hooks(),
		Notifier:     notifier,
		Logger:       logger,
	})
	s.ClubNames.clubs = s.Clubs

	s.Coordinators = newSlice[model.Coordinator](client, "coordinators", notifier, logger)
	s.Events = newSlice[model.Event](client, "events", notifier, logger)
	s.Contacts = newSlice[model.Contact](client, "contacts", notifier, logger)
	s.Users = newSlice[model.User](client, "users", notifier, logger)
	s.Marketplace = newSlice[model.MarketplaceItem](client, "marketplace", notifier, logger)
	s.Notifications = notifications.New(notifications.NewResource(client), notifier, logger)

	return s, nil
}

func newSlice[T model.Entity[model.ID]](client *restclient.Client, name string, notifier toast.Notifier, logger *zap.Logger) *slice.Slice[T, model.ID] {
	return slice.New(slice.Config[T, model.ID]{
		Name:         name,
		Collaborator: restclient.NewResource[T, model.ID](client, "/"+name),
		Notifier:     notifier,
		Logger:       logger,
	})
}

// Login signs in and remembers the account.
func (s *Store) Login(ctx context.Context, email, password string) (model.User, error) {
	user, err := s.Client.Login(ctx, email, password)
	if err != nil {
		return user, err
	}
	s.setUser(&user)
	s.logger.Info("signed in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// Signup registers and signs in a new account.
func (s *Store) Signup(ctx context.Context, creds model.Credentials) (model.User, error) {
	user, err := s.Client.Signup(ctx, creds)
	if err != nil {
		return user, err
	}
	s.setUser(&user)
	return user, nil
}

// Restore asks the collaborator which account the session cookie belongs to.
func (s *Store) Restore(ctx context.Context) (model.User, error) {
	user, err := s.Client.CurrentUser(ctx)
	if err != nil {
		s.setUser(nil)
		return user, err
	}
	s.setUser(&user)
	return user, nil
}

// Logout ends the session.
func (s *Store) Logout(ctx context.Context) error {
	err := s.Client.Logout(ctx)
	s.setUser(nil)
	s.ClubNames.cache.Purge()
	return err
}

// User returns the signed-in account, if any.
func (s *Store) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Store) setUser(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Store) sessionExpired() {
	s.setUser(nil)
	s.logger.Warn("session expired")
	if s.onExpired != nil {
		s.onExpired()
	}
}

// Bootstrap loads every collection visible to the signed-in account and the
// unread count concurrently. Each slice records its own failure; the first
// error is returned.
func (s *Store) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := s.Clubs.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Coordinators.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Events.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Contacts.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Marketplace.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Notifications.FetchList(ctx, nil); return err })
	g.Go(func() error { _, err := s.Notifications.FetchUnreadCount(ctx); return err })
	if u, ok := s.User(); ok && u.Role == "admin" {
		g.Go(func() error { _, err := s.Users.FetchList(ctx, nil); return err })
	}
	return g.Wait()
}

// MarketplaceForm builds the multipart payload for a listing. Tags travel as
// a JSON array and every file is its own "images" part.
func MarketplaceForm(fields map[string]any, images ...restclient.File) *restclient.Multipart {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if len(images) > 0 {
		out["images"] = images
	}
	return &restclient.Multipart{
		Fields:      out,
		ArrayFields: []string{"tags"},
		FileField:   "images",
	}
}
