package mockapi

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/campusbeacon/beacon/internal/model"
)

type account struct {
	userID   model.ID
	password string
}

// Data is the collaborator's in-memory state.
type Data struct {
	Clubs         *collection[model.Club]
	Coordinators  *collection[model.Coordinator]
	Events        *collection[model.Event]
	Notifications *collection[model.Notification]
	Contacts      *collection[model.Contact]
	Marketplace   *collection[model.MarketplaceItem]
	Users         *collection[model.User]

	mu       sync.Mutex
	accounts map[string]account
	sessions map[string]model.ID
}

// NewData builds empty tables with their validation rules.
func NewData() *Data {
	d := &Data{
		Clubs:         newCollection(func(r *model.Club, id model.ID) { r.ID = id }),
		Coordinators:  newCollection(func(r *model.Coordinator, id model.ID) { r.ID = id }),
		Events:        newCollection(func(r *model.Event, id model.ID) { r.ID = id }),
		Notifications: newCollection(func(r *model.Notification, id model.ID) { r.ID = id }),
		Contacts:      newCollection(func(r *model.Contact, id model.ID) { r.ID = id }),
		Marketplace:   newCollection(func(r *model.MarketplaceItem, id model.ID) { r.ID = id }),
		Users:         newCollection(func(r *model.User, id model.ID) { r.ID = id }),
		accounts:      make(map[string]account),
		sessions:      make(map[string]model.ID),
	}

	d.Clubs.validate = func(c *collection[model.Club], rec model.Club) error {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return invalid("Name is required")
		}
		var dup bool
		c.eachLocked(func(other model.Club) bool {
			if other.ID != rec.ID && strings.EqualFold(strings.TrimSpace(other.Name), name) {
				dup = true
				return false
			}
			return true
		})
		if dup {
			return invalid("Name already exists")
		}
		return nil
	}
	d.Coordinators.validate = func(_ *collection[model.Coordinator], rec model.Coordinator) error {
		if strings.TrimSpace(rec.Name) == "" {
			return invalid("Name is required")
		}
		if rec.ClubID == 0 {
			return invalid("club_id is required")
		}
		return nil
	}
	d.Coordinators.match = func(rec model.Coordinator, q url.Values) bool {
		return matchID(q.Get("club_id"), rec.ClubID)
	}
	d.Events.validate = func(_ *collection[model.Event], rec model.Event) error {
		if strings.TrimSpace(rec.Title) == "" {
			return invalid("Title is required")
		}
		if !rec.EndsAt.IsZero() && rec.EndsAt.Before(rec.StartsAt) {
			return invalid("Event cannot end before it starts")
		}
		return nil
	}
	d.Events.match = func(rec model.Event, q url.Values) bool {
		return matchID(q.Get("club_id"), rec.ClubID)
	}
	d.Notifications.validate = func(_ *collection[model.Notification], rec model.Notification) error {
		if strings.TrimSpace(rec.Message) == "" {
			return invalid("Message is required")
		}
		return nil
	}
	d.Notifications.match = func(rec model.Notification, q url.Values) bool {
		v := q.Get("is_read")
		if v == "" {
			return true
		}
		want, err := strconv.ParseBool(v)
		return err != nil || rec.IsRead == want
	}
	d.Contacts.validate = func(_ *collection[model.Contact], rec model.Contact) error {
		if strings.TrimSpace(rec.Name) == "" {
			return invalid("Name is required")
		}
		return nil
	}
	d.Marketplace.validate = func(_ *collection[model.MarketplaceItem], rec model.MarketplaceItem) error {
		if strings.TrimSpace(rec.Title) == "" {
			return invalid("Title is required")
		}
		if rec.Price < 0 {
			return invalid("Price cannot be negative")
		}
		return nil
	}
	d.Users.validate = func(c *collection[model.User], rec model.User) error {
		email := strings.TrimSpace(rec.Email)
		if email == "" {
			return invalid("Email is required")
		}
		var dup bool
		c.eachLocked(func(other model.User) bool {
			if other.ID != rec.ID && strings.EqualFold(other.Email, email) {
				dup = true
				return false
			}
			return true
		})
		if dup {
			return invalid("Email already registered")
		}
		return nil
	}
	return d
}

func matchID(filter string, id model.ID) bool {
	if filter == "" {
		return true
	}
	want, err := strconv.ParseInt(filter, 10, 64)
	if err != nil {
		return false
	}
	return want == id
}

// Register creates a user with a password and returns it.
func (d *Data) Register(name, email, password, role string) (model.User, error) {
	if strings.TrimSpace(password) == "" {
		return model.User{}, invalid("Password is required")
	}
	user, err := d.Users.insert(model.User{Name: name, Email: email, Role: role, IsActive: true})
	if err != nil {
		return user, err
	}
	d.mu.Lock()
	d.accounts[strings.ToLower(email)] = account{userID: user.ID, password: password}
	d.mu.Unlock()
	return user, nil
}

func (d *Data) authenticate(email, password string) (model.User, bool) {
	d.mu.Lock()
	acct, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	d.mu.Unlock()
	if !ok || acct.password != password {
		return model.User{}, false
	}
	user, err := d.Users.get(acct.userID)
	if err != nil || !user.IsActive {
		return model.User{}, false
	}
	return user, true
}

func (d *Data) openSession(token string, userID model.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[token] = userID
}

func (d *Data) sessionUser(token string) (model.User, bool) {
	d.mu.Lock()
	userID, ok := d.sessions[token]
	d.mu.Unlock()
	if !ok {
		return model.User{}, false
	}
	user, err := d.Users.get(userID)
	if err != nil {
		return model.User{}, false
	}
	return user, true
}

func (d *Data) closeSession(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, token)
}

// ExpireSessions drops every open session.
func (d *Data) ExpireSessions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = make(map[string]model.ID)
}
