package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusbeacon/beacon/internal/model"
)

// SessionCookie names the opaque session cookie.
const SessionCookie = "beacon_session"

const sessionUserKey = "session_user"

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func failFor(c *gin.Context, err error) {
	var verr validationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.msg)
	case errors.Is(err, errNotFound):
		fail(c, http.StatusNotFound, "not found")
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func pathID(c *gin.Context) (model.ID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// binder decodes a request body onto rec; for updates rec already holds the
// stored record so absent fields keep their value.
type binder[T any] func(c *gin.Context, rec *T) error

func bindJSON[T any](c *gin.Context, rec *T) error {
	if err := json.NewDecoder(c.Request.Body).Decode(rec); err != nil {
		return invalid("invalid JSON body")
	}
	return nil
}

// mountCRUD registers list, detail, create, update and delete routes.
func mountCRUD[T model.Entity[model.ID]](r gin.IRoutes, base string, col *collection[T], bind binder[T]) {
	r.GET(base, func(c *gin.Context) {
		c.JSON(http.StatusOK, col.list(c.Request.URL.Query()))
	})
	r.GET(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		rec, err := col.get(id)
		if err != nil {
			failFor(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
	r.POST(base, func(c *gin.Context) {
		var rec T
		if err := bind(c, &rec); err != nil {
			failFor(c, err)
			return
		}
		created, err := col.insert(rec)
		if err != nil {
			failFor(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	})
	r.PUT(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		updated, err := col.update(id, func(rec *T) error { return bind(c, rec) })
		if err != nil {
			failFor(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})
	r.DELETE(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := col.remove(id); err != nil {
			failFor(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
}

func (s *Server) requireSession(c *gin.Context) {
	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	user, ok := s.data.sessionUser(token)
	if !ok {
		fail(c, http.StatusUnauthorized, "session expired")
		return
	}
	c.Set(sessionUserKey, user)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	v, _ := c.Get(sessionUserKey)
	user, _ := v.(model.User)
	if user.Role != "admin" {
		fail(c, http.StatusForbidden, "admin access required")
		return
	}
	c.Next()
}

func (s *Server) startSession(c *gin.Context, user model.User) {
	token := uuid.NewString()
	s.data.openSession(token, user.ID)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(s.sessionTTL/time.Second), "/", "", false, true)
}

func (s *Server) handleLogin(c *gin.Context) {
	var creds model.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, ok := s.data.authenticate(creds.Email, creds.Password)
	if !ok {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.startSession(c, user)
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleSignup(c *gin.Context) {
	var creds model.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.data.Register(creds.Name, creds.Email, creds.Password, "student")
	if err != nil {
		failFor(c, err)
		return
	}
	s.startSession(c, user)
	c.JSON(http.StatusCreated, user)
}

func (s *Server) handleMe(c *gin.Context) {
	v, _ := c.Get(sessionUserKey)
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		s.data.closeSession(token)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	count := 0
	for _, n := range s.data.Notifications.list(nil) {
		if !n.IsRead {
			count++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	updated, err := s.data.Notifications.update(id, func(n *model.Notification) error {
		n.IsRead = true
		return nil
	})
	if err != nil {
		failFor(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	s.data.Notifications.updateAll(func(n *model.Notification) { n.IsRead = true })
	c.JSON(http.StatusOK, gin.H{"count": 0})
}

// bindMarketplace accepts JSON or a multipart form with a JSON-encoded
// "tags" field and any number of "images" file parts.
func (s *Server) bindMarketplace(c *gin.Context, rec *model.MarketplaceItem) error {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return bindJSON(c, rec)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return invalid("invalid multipart body")
	}
	if v, ok := formValue(form.Value, "title"); ok {
		rec.Title = v
	}
	if v, ok := formValue(form.Value, "description"); ok {
		rec.Description = v
	}
	if v, ok := formValue(form.Value, "condition"); ok {
		rec.Condition = v
	}
	if v, ok := formValue(form.Value, "price"); ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalid("Price must be a number")
		}
		rec.Price = price
	}
	if v, ok := formValue(form.Value, "seller_id"); ok {
		seller, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return invalid("seller_id must be a number")
		}
		rec.SellerID = seller
	}
	if v, ok := formValue(form.Value, "tags"); ok {
		var tags []string
		if err := json.Unmarshal([]byte(v), &tags); err != nil {
			return invalid("tags must be a JSON array")
		}
		rec.Tags = tags
	}
	if files := form.File["images"]; len(files) > 0 {
		images := make([]string, 0, len(files))
		for _, fh := range files {
			images = append(images, fmt.Sprintf("/uploads/%s-%s", uuid.NewString(), path.Base(fh.Filename)))
		}
		rec.Images = append(rec.Images, images...)
	}
	return nil
}

func formValue(values map[string][]string, key string) (string, bool) {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}
