package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
)

// HandleStream streams every event to the admin as server-sent events.
func HandleStream(hub *Hub) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		events, cancel := hub.Subscribe()
		defer cancel()

		return web.Stream(ctx, w, "change", events)
	}
}

func HandleCounts(c *Counter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, c.Snapshot(), http.StatusOK)
	}
}

// HandleSeen resets the unseen count of a table on every instance.
func HandleSeen(pub Publisher) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		table := web.Param(r, "table")
		if !known(table) {
			return weberr.NotFound(fmt.Errorf("unknown table %q", table))
		}

		if err := pub.Publish(ctx, Seen(table)); err != nil {
			return fmt.Errorf("publishing seen event: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func known(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}
