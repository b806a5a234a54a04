package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/broadcast"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

type StreamHandler struct {
	hub   *broadcast.Hub
	mylog logger.Logger
}

func NewStreamHandler(hub *broadcast.Hub, mylog logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub:   hub,
		mylog: mylog,
	}
}

// Subscribe streams transition events for one channel over SSE until the
// client disconnects. The channel key is authorized against the caller before
// any event flows.
func (h *StreamHandler) Subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := principal(w, r)
		if !ok {
			return
		}

		key := r.URL.Query().Get("channel")
		if err := authorizeChannel(actor, key); err != nil {
			serviceError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			jsonError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
			return
		}

		sub := h.hub.Subscribe(key)
		defer h.hub.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		mylog := h.mylog.Action("stream_subscribe")
		mylog.Info("subscriber connected", "channel", key, "actor_id", actor.ActorID)

		for {
			select {
			case <-r.Context().Done():
				mylog.Info("subscriber disconnected", "channel", key, "dropped", sub.Dropped())
				return
			case ev, open := <-sub.Events():
				if !open {
					return
				}
				body, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: transition\ndata: %s\n\n", body)
				flusher.Flush()
			}
		}
	}
}

// authorizeChannel checks the caller may watch the requested channel key.
// Customers see their table, kitchen staff their restaurant's stations,
// waiters and cashiers the waiter feed, managerial roles everything in their
// restaurant.
func authorizeChannel(actor models.Principal, key string) error {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || parts[1] == "" {
		return core.ErrValidation
	}

	switch parts[0] {
	case "table":
		if actor.Role == models.RoleCustomer {
			if parts[1] != actor.TableID {
				return core.ErrForbidden
			}
			return nil
		}
		if actor.Role.Managerial() || actor.Role == models.RoleWaiter || actor.Role == models.RoleCashier {
			return nil
		}
		return core.ErrForbidden
	case "kitchen":
		if len(parts) != 3 || parts[2] == "" {
			return core.ErrValidation
		}
		if actor.Role == models.RoleKitchen || actor.Role.Managerial() {
			if parts[1] != actor.RestaurantID {
				return core.ErrForbidden
			}
			return nil
		}
		return core.ErrForbidden
	case "waiter":
		switch actor.Role {
		case models.RoleWaiter, models.RoleCashier:
		default:
			if !actor.Role.Managerial() {
				return core.ErrForbidden
			}
		}
		if parts[1] != actor.RestaurantID {
			return core.ErrForbidden
		}
		return nil
	case "admin":
		if !actor.Role.Managerial() || parts[1] != actor.RestaurantID {
			return core.ErrForbidden
		}
		return nil
	default:
		return core.ErrValidation
	}
}
