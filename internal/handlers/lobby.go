// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/lobby"
	"github.com/jason-s-yu/tresillo/internal/models"
)

type createRoomRequest struct {
	Mode  models.Mode            `json:"mode"`
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// CreateRoomHandler handles POST /rooms. The body names the mode and optional
// house-rule overrides; an empty body makes a room with the server defaults.
func CreateRoomHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "bad room request payload")
			return
		}
		if req.Mode != "" && !req.Mode.Valid() {
			writeError(w, http.StatusBadRequest, "invalid mode")
			return
		}
		rules, err := game.ParseRules(req.Rules, srv.Rules)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		room := srv.Rooms.Create(req.Mode, rules)
		info, _ := room.Info()
		srv.Logger.Infof("room %s created (%s)", room.ID, info.Mode)
		writeJSON(w, http.StatusCreated, info)
	}
}

// ListRoomsHandler handles GET /rooms.
func ListRoomsHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := srv.Rooms.List()
		if rooms == nil {
			rooms = []game.RoomInfo{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
	}
}

type queueRequest struct {
	ClientID string      `json:"clientId"`
	Mode     models.Mode `json:"mode"`
}

// QueueHandler handles POST /lobby/queue.
func QueueHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad queue request payload")
			return
		}
		if req.ClientID == "" {
			writeError(w, http.StatusBadRequest, "clientId is required")
			return
		}
		res, err := srv.Matchmaker.JoinQueue(r.Context(), req.ClientID, req.Mode)
		if errors.Is(err, lobby.ErrBadMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "queue operation failed")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// LeaveQueueHandler handles DELETE /lobby/queue with the same body as the join.
func LeaveQueueHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" {
			writeError(w, http.StatusBadRequest, "bad queue request payload")
			return
		}
		err := srv.Matchmaker.LeaveQueue(r.Context(), req.ClientID, req.Mode)
		if errors.Is(err, lobby.ErrBadMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			srv.Logger.Warnf("leave queue for %s: %v", req.ClientID, err)
			writeError(w, http.StatusInternalServerError, "queue operation failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MatchHandler handles GET /lobby/match/{clientId}.
func MatchHandler(srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientId")
		roomID, ok, err := srv.Matchmaker.Match(r.Context(), clientID)
		if err != nil {
			srv.Logger.Warnf("match lookup for %s: %v", clientID, err)
			writeError(w, http.StatusInternalServerError, "match lookup failed")
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"matched": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"matched": true, "roomId": roomID})
	}
}
