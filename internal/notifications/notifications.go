// Package notifications wraps the notification slice with its unread counter.
//
// The counter is maintained incrementally: list fetches never recount it, it
// is seeded from the unread-count endpoint and then adjusted by each
// confirmed create, update, delete and mark operation. It never drops below
// zero.
package notifications

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/restclient"
	"github.com/campusbeacon/beacon/internal/slice"
	"github.com/campusbeacon/beacon/internal/toast"
)

// UnreadCounter is the counter name in slice.State.Counters.
const UnreadCounter = "unread"

var (
	opMarkRead    = slice.Op{Name: "markNotificationAsRead", Verb: "update", Mutation: true}
	opMarkAllRead = slice.Op{Name: "markAllNotificationsAsRead", Verb: "update", Mutation: true}
	opUnreadCount = slice.Op{Name: "fetchUnreadCount", Verb: "fetch", LatestOnly: true}
)

// Marker is the collaborator surface for read-state endpoints.
type Marker interface {
	MarkRead(ctx context.Context, id model.ID) (model.Notification, error)
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

// Collaborator is everything the notification slice talks to.
type Collaborator interface {
	slice.Collaborator[model.Notification, model.ID]
	Marker
}

// Slice is the notification container.
type Slice struct {
	*slice.Slice[model.Notification, model.ID]
	marker Marker
}

// New builds an empty notification slice.
func New(collab Collaborator, notifier toast.Notifier, logger *zap.Logger) *Slice {
	inner := slice.New(slice.Config[model.Notification, model.ID]{
		Name:         "notifications",
		Collaborator: collab,
		Hooks:        Hooks(),
		Notifier:     notifier,
		Logger:       logger,
	})
	return &Slice{Slice: inner, marker: collab}
}

// Hooks returns the unread bookkeeping reducers.
func Hooks() slice.Hooks[model.Notification] {
	return slice.Hooks[model.Notification]{
		AfterCreate: func(st *slice.State[model.Notification], created model.Notification) {
			if !created.IsRead {
				st.AddCounter(UnreadCounter, 1)
			}
		},
		AfterUpdate: func(st *slice.State[model.Notification], prev model.Notification, found bool, updated model.Notification) {
			if !found {
				return
			}
			st.AddCounter(UnreadCounter, readDelta(prev.IsRead, updated.IsRead))
		},
		AfterDelete: func(st *slice.State[model.Notification], removed model.Notification, found bool) {
			if found && !removed.IsRead {
				st.AddCounter(UnreadCounter, -1)
			}
		},
	}
}

func readDelta(wasRead, isRead bool) int {
	switch {
	case !wasRead && isRead:
		return -1
	case wasRead && !isRead:
		return 1
	default:
		return 0
	}
}

// UnreadCount returns the current counter value.
func (s *Slice) UnreadCount() int {
	return s.State().Counter(UnreadCounter)
}

// FetchUnreadCount seeds the counter from the collaborator.
func (s *Slice) FetchUnreadCount(ctx context.Context) (int, error) {
	var n int
	err := s.Run(ctx, opUnreadCount,
		func(ctx context.Context) (err error) {
			n, err = s.marker.UnreadCount(ctx)
			return err
		},
		func(st *slice.State[model.Notification]) {
			st.SetCounter(UnreadCounter, n)
		},
	)
	return n, err
}

// MarkAsRead marks one notification read and reduces the answer like an
// update.
func (s *Slice) MarkAsRead(ctx context.Context, id model.ID) (model.Notification, error) {
	var updated model.Notification
	hooks := Hooks()
	err := s.Run(ctx, opMarkRead,
		func(ctx context.Context) (err error) {
			updated, err = s.marker.MarkRead(ctx, id)
			return err
		},
		func(st *slice.State[model.Notification]) {
			slice.ReplaceItem[model.Notification, model.ID](st, updated, hooks.AfterUpdate)
		},
	)
	return updated, err
}

// MarkAllAsRead marks every notification read on the collaborator, then
// zeroes the counter and flips every in-memory record without refetching.
func (s *Slice) MarkAllAsRead(ctx context.Context) error {
	return s.Run(ctx, opMarkAllRead,
		func(ctx context.Context) error {
			return s.marker.MarkAllRead(ctx)
		},
		func(st *slice.State[model.Notification]) {
			for i := range st.Items {
				st.Items[i].IsRead = true
			}
			if st.Current != nil {
				st.Current.IsRead = true
			}
			st.SetCounter(UnreadCounter, 0)
		},
	)
}

// Resource is the REST collaborator for notifications.
type Resource struct {
	*restclient.Resource[model.Notification, model.ID]
	client *restclient.Client
}

// NewResource binds the notification endpoints to client.
func NewResource(client *restclient.Client) *Resource {
	return &Resource{
		Resource: restclient.NewResource[model.Notification, model.ID](client, "/notifications"),
		client:   client,
	}
}

// MarkRead flags one notification as read and returns it.
func (r *Resource) MarkRead(ctx context.Context, id model.ID) (model.Notification, error) {
	var out model.Notification
	err := r.client.DoRecord(ctx, http.MethodPut, r.ItemPath(id, "read"), nil, &out)
	return out, err
}

// MarkAllRead flags every notification of the session user as read.
func (r *Resource) MarkAllRead(ctx context.Context) error {
	return r.client.Do(ctx, http.MethodPut, r.Path()+"/read-all", nil, nil, nil)
}

// UnreadCount asks the collaborator for the unread total.
func (r *Resource) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := r.client.Do(ctx, http.MethodGet, r.Path()+"/unread-count", nil, nil, &out)
	return out.Count, err
}

// ListUnread is a convenience filter for the unread view.
func ListUnread() url.Values {
	return url.Values{"is_read": []string{"false"}}
}
