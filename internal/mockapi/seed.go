package mockapi

import (
	"time"

	"github.com/campusbeacon/beacon/internal/model"
)

// Seed registers an admin account and a small sample campus.
func Seed(d *Data, adminEmail, adminPassword string) error {
	if _, err := d.Register("Campus Admin", adminEmail, adminPassword, "admin"); err != nil {
		return err
	}

	chess, err := d.Clubs.insert(model.Club{Name: "Chess Club", Category: "games", Description: "Weekly blitz and classical nights."})
	if err != nil {
		return err
	}
	robotics, err := d.Clubs.insert(model.Club{Name: "Robotics", Category: "engineering"})
	if err != nil {
		return err
	}

	if _, err := d.Coordinators.insert(model.Coordinator{ClubID: chess.ID, Name: "Ada Okafor", Email: "ada@campus.test", Role: "president"}); err != nil {
		return err
	}
	if _, err := d.Coordinators.insert(model.Coordinator{ClubID: robotics.ID, Name: "Lin Park", Email: "lin@campus.test", Role: "lead"}); err != nil {
		return err
	}

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	if _, err := d.Events.insert(model.Event{ClubID: chess.ID, Title: "Open Blitz Night", Location: "Library Hall", StartsAt: start, EndsAt: start.Add(3 * time.Hour)}); err != nil {
		return err
	}

	for _, msg := range []string{"Welcome to CampusBeacon", "Chess Club posted a new event"} {
		if _, err := d.Notifications.insert(model.Notification{Type: "info", Message: msg, CreatedAt: time.Now().UTC()}); err != nil {
			return err
		}
	}

	if _, err := d.Contacts.insert(model.Contact{Name: "Student Services", Department: "Administration", Email: "help@campus.test", Phone: "+1 555 0100"}); err != nil {
		return err
	}
	if _, err := d.Marketplace.insert(model.MarketplaceItem{Title: "Calculus textbook", Price: 25, Condition: "good", Tags: []string{"books", "math"}}); err != nil {
		return err
	}
	return nil
}
