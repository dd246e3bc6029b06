package model

import "time"

// Club is a student organisation.
type Club struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

func (c Club) GetID() ID { return c.ID }

// Coordinator is a member responsible for running a club.
type Coordinator struct {
	ID     ID     `json:"id"`
	ClubID ID     `json:"club_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role,omitempty"`
}

func (c Coordinator) GetID() ID { return c.ID }

// Event is a scheduled club activity.
type Event struct {
	ID          ID        `json:"id"`
	ClubID      ID        `json:"club_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at,omitzero"`
	EndsAt      time.Time `json:"ends_at,omitzero"`
	ImageURL    string    `json:"image_url,omitempty"`
}

func (e Event) GetID() ID { return e.ID }

// Notification is a message addressed to the signed-in user.
type Notification struct {
	ID        ID        `json:"id"`
	UserID    ID        `json:"user_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (n Notification) GetID() ID { return n.ID }

// Contact is an entry in the campus directory.
type Contact struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (c Contact) GetID() ID { return c.ID }

// MarketplaceItem is a listing posted by a student.
type MarketplaceItem struct {
	ID          ID        `json:"id"`
	SellerID    ID        `json:"seller_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Condition   string    `json:"condition,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Images      []string  `json:"images,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

func (m MarketplaceItem) GetID() ID { return m.ID }

// User is an account managed from the administration views.
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (u User) GetID() ID { return u.ID }

// Credentials are posted to the login and signup endpoints.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
