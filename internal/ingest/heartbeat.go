package ingest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/good-yellow-bee/oncall/internal/heartbeat"
	"github.com/good-yellow-bee/oncall/internal/queue"
)

// heartbeatRequest is the action envelope of the heartbeat endpoint.
// timeout_seconds arrives as a JSON number or a numeric string depending on
// the client, so it is coerced after decoding.
type heartbeatRequest struct {
	Action         string      `json:"action"`
	ID             string      `json:"id"`
	TimeoutSeconds interface{} `json:"timeout_seconds"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	Link           string      `json:"link"`
}

func (req *heartbeatRequest) timeout() (int, bool) {
	switch v := req.TimeoutSeconds.(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// handleHeartbeatAction serves the activate/deactivate/list/heartbeat
// actions of a channel's heartbeat records.
func (s *Server) handleHeartbeatAction(w http.ResponseWriter, r *http.Request) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errBadRequest("invalid JSON payload"))
		return
	}
	if req.ID == "" {
		req.ID = "default"
	}

	ctx := r.Context()
	switch req.Action {
	case "activate":
		timeout, ok := req.timeout()
		if !ok {
			respondError(w, errBadRequest("timeout_seconds int expected"))
			return
		}
		title := req.Title
		if title == "" {
			title = "Title"
		}
		_, err := s.monitor.Activate(ctx, channel.ID, req.ID, timeout, title, req.Message, req.Link)
		switch {
		case errors.Is(err, heartbeat.ErrInvalidTimeout):
			respondError(w, errBadRequest("timeout_seconds int expected"))
			return
		case errors.Is(err, heartbeat.ErrDuplicateID):
			respondError(w, errBadRequest("id should be unique"))
			return
		case err != nil:
			log.Printf("activate heartbeat: %v", err)
			respondError(w, errInternal())
			return
		}

	case "deactivate":
		err := s.monitor.Deactivate(ctx, channel.ID, req.ID)
		if errors.Is(err, heartbeat.ErrNotFound) {
			respondError(w, errBadRequest("heartbeat not found"))
			return
		}
		if err != nil {
			log.Printf("deactivate heartbeat: %v", err)
			respondError(w, errInternal())
			return
		}

	case "list":
		entries, err := s.monitor.List(ctx, channel.ID)
		if err != nil {
			log.Printf("list heartbeats: %v", err)
			respondError(w, errInternal())
			return
		}
		respondJSON(w, http.StatusOK, entries)
		return

	case "heartbeat":
		err := s.monitor.Signal(ctx, channel.ID, req.ID)
		if errors.Is(err, heartbeat.ErrNotFound) {
			respondError(w, errBadRequest("heartbeat not found"))
			return
		}
		if err != nil {
			log.Printf("heartbeat signal: %v", err)
			respondError(w, errInternal())
			return
		}

	default:
		respondError(w, errBadRequest("unknown action"))
		return
	}

	respondOK(w)
}

// handleHeartbeatSignal is the fire-and-forget liveness ping. The signal is
// applied asynchronously so the HTTP path stays sub-second; an unknown id
// surfaces only in worker logs.
func (s *Server) handleHeartbeatSignal(w http.ResponseWriter, r *http.Request) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if !s.config.Debug && s.signals.CheckAndConsume(channel.ID).Limited {
		respondError(w, errRateLimited())
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = "default"
	}

	task, err := queue.NewTask(queue.KindHeartbeatProcess, queue.HeartbeatProcessPayload{
		ChannelID:     channel.ID,
		UserDefinedID: id,
	})
	if err != nil {
		log.Printf("build heartbeat_process task: %v", err)
		respondError(w, errInternal())
		return
	}
	if err := s.submitter.Submit(r.Context(), task, 0); err != nil {
		log.Printf("enqueue heartbeat_process task: %v", err)
		respondError(w, errInternal())
		return
	}
	respondOK(w)
}
