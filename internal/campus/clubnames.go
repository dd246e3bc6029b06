package campus

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusbeacon/beacon/internal/lookup"
	"github.com/campusbeacon/beacon/internal/model"
	"github.com/campusbeacon/beacon/internal/restclient"
	"github.com/campusbeacon/beacon/internal/slice"
)

// maxNameLoads bounds concurrent detail requests in Names.
const maxNameLoads = 4

// ClubNames resolves club ids to display names. Loaded clubs answer
// directly; others are fetched once and cached.
type ClubNames struct {
	clubs *slice.Slice[model.Club, model.ID]
	api   *restclient.Resource[model.Club, model.ID]
	cache *lookup.Cache[model.ID, string]
}

func newClubNames(api *restclient.Resource[model.Club, model.ID], size int, ttl time.Duration) *ClubNames {
	return &ClubNames{
		api:   api,
		cache: lookup.New[model.ID, string](size, ttl),
	}
}

// Name returns the display name of club id.
func (n *ClubNames) Name(ctx context.Context, id model.ID) (string, error) {
	if n.clubs != nil {
		if c, ok := n.clubs.Find(id); ok {
			return c.Name, nil
		}
	}
	return n.cache.GetOrLoad(ctx, id, func(ctx context.Context, id model.ID) (string, error) {
		c, err := n.api.Get(ctx, id)
		return c.Name, err
	})
}

// Names resolves several ids. Unknown clubs are left out of the result.
func (n *ClubNames) Names(ctx context.Context, ids []model.ID) (map[model.ID]string, error) {
	names := make([]string, len(ids))
	var g errgroup.Group
	g.SetLimit(maxNameLoads)
	for i, id := range ids {
		g.Go(func() error {
			name, err := n.Name(ctx, id)
			if restclient.StatusOf(err) == http.StatusNotFound {
				return nil
			}
			names[i] = name
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[model.ID]string, len(ids))
	for i, id := range ids {
		if names[i] != "" {
			out[id] = names[i]
		}
	}
	return out, nil
}

// hooks keep the cache consistent with confirmed club mutations.
func (n *ClubNames) hooks() slice.Hooks[model.Club] {
	return slice.Hooks[model.Club]{
		AfterUpdate: func(_ *slice.State[model.Club], _ model.Club, _ bool, updated model.Club) {
			n.cache.Remove(updated.ID)
		},
		AfterDelete: func(_ *slice.State[model.Club], removed model.Club, found bool) {
			if !found {
				// The deleted id is unknown here, so drop everything.
				n.cache.Purge()
				return
			}
			n.cache.Remove(removed.ID)
		},
	}
}
