package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/devquest008/campus-connect/internal/realtime"
	"github.com/devquest008/campus-connect/internal/views"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type TagRequest struct {
	Tag string `json:"tag"`
}

type VisibilityRequest struct {
	CrossCampusVisible *bool `json:"cross_campus_visible"`
}

type MessageRequest struct {
	Content string `json:"content"`
}

type DirectMessageRequest struct {
	ReceiverId string `json:"receiver_id"`
	Content    string `json:"content"`
}

type MarkReadRequest struct {
	PeerId string `json:"peer_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type ConnectionRequest struct {
	AddresseeId string `json:"addressee_id"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *App) writeError(w http.ResponseWriter, err error) {
	errResp := errorFromView(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *App) readJson(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}
	return true
}

func validId(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// pathId returns the {id} route parameter when it is a well formed id.
func (s *App) pathId(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validId(id) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return "", false
	}
	return id, true
}

func (s *App) userId(w http.ResponseWriter, r *http.Request) (string, bool) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
	return userId, ok
}

func (s *App) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *App) campuses(w http.ResponseWriter, r *http.Request) {
	campuses, err := s.views.Login.Campuses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, campuses)
}

func (s *App) getProfile(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	profile, err := s.views.Profile.Get(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, profile)
}

func (s *App) setupProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}

	var req views.ProfileInput
	if !s.readJson(w, r, &req) {
		return
	}

	state, err := s.views.Profile.Setup(r.Context(), account, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, state.Wire())
}

func (s *App) updateProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}

	var req views.ProfileInput
	if !s.readJson(w, r, &req) {
		return
	}

	state, err := s.views.Profile.Update(r.Context(), account, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, state.Wire())
}

func (s *App) toggleTag(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req TagRequest
	if !s.readJson(w, r, &req) {
		return
	}

	profile, err := s.views.Profile.ToggleInterest(r.Context(), userId, req.Tag)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, profile)
}

func (s *App) setVisibility(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req VisibilityRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if req.CrossCampusVisible == nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	profile, err := s.views.Profile.SetVisibility(r.Context(), userId, *req.CrossCampusVisible)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, profile)
}

func (s *App) badges(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	badges, err := s.views.Profile.Badges(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, badges)
}

func (s *App) dashboard(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	dash, err := s.views.Dashboard.Load(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, dash)
}

func (s *App) heatmap(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	hm, err := s.views.Heatmap.Load(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, hm)
}

func (s *App) listSessions(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	sessions, err := s.views.Sessions.List(r.Context(), userId, r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, sessions)
}

func (s *App) createSession(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req views.SessionInput
	if !s.readJson(w, r, &req) {
		return
	}

	sessions, err := s.views.Sessions.Create(r.Context(), userId, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, sessions)
}

type sessionAction func(ctx context.Context, userId, sessionId, category string) (any, error)

// withSession resolves the caller and the {id} session, runs action and
// writes its result.
func (s *App) withSession(w http.ResponseWriter, r *http.Request, action sessionAction) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}
	sessionId, ok := s.pathId(w, r)
	if !ok {
		return
	}

	res, err := action(r.Context(), userId, sessionId, r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, res)
}

func (s *App) joinSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, userId, sessionId, category string) (any, error) {
		return s.views.Sessions.Join(ctx, userId, sessionId, category)
	})
}

func (s *App) leaveSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, userId, sessionId, category string) (any, error) {
		return s.views.Sessions.Leave(ctx, userId, sessionId, category)
	})
}

func (s *App) checkIn(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, userId, sessionId, category string) (any, error) {
		return s.views.Sessions.CheckIn(ctx, userId, sessionId, category)
	})
}

func (s *App) sessionMembers(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, userId, sessionId, _ string) (any, error) {
		return s.views.Sessions.Members(ctx, userId, sessionId)
	})
}

func (s *App) sessionMessages(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, userId, sessionId, _ string) (any, error) {
		return s.views.Sessions.Messages(ctx, userId, sessionId)
	})
}

func (s *App) postSessionMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}
	sessionId, ok := s.pathId(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if !s.readJson(w, r, &req) {
		return
	}

	msg, err := s.views.Sessions.Post(r.Context(), userId, sessionId, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *App) listBroadcasts(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	broadcasts, err := s.views.Broadcasts.List(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, broadcasts)
}

func (s *App) createBroadcast(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req views.BroadcastInput
	if !s.readJson(w, r, &req) {
		return
	}

	broadcast, err := s.views.Broadcasts.Create(r.Context(), userId, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, broadcast)
}

func (s *App) deleteBroadcast(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}
	id, ok := s.pathId(w, r)
	if !ok {
		return
	}

	if err := s.views.Broadcasts.Delete(r.Context(), userId, id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *App) contacts(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	contacts, err := s.views.Chat.Contacts(r.Context(), userId, q.Get("tab"), q.Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, contacts)
}

func (s *App) thread(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	peerId := r.URL.Query().Get("peer_id")
	if !validId(peerId) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages, err := s.views.Chat.Thread(r.Context(), userId, peerId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *App) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req DirectMessageRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if !validId(req.ReceiverId) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.views.Chat.Send(r.Context(), userId, req.ReceiverId, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *App) markRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req MarkReadRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if !validId(req.PeerId) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	n, err := s.views.Chat.MarkRead(r.Context(), userId, req.PeerId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{Updated: n})
}

func (s *App) listConnections(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	conns, err := s.views.Chat.Connections(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, conns)
}

func (s *App) requestConnection(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}

	var req ConnectionRequest
	if !s.readJson(w, r, &req) {
		return
	}
	if !validId(req.AddresseeId) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := s.views.Chat.RequestConnection(r.Context(), userId, req.AddresseeId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, conn)
}

func (s *App) acceptConnection(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.userId(w, r)
	if !ok {
		return
	}
	id, ok := s.pathId(w, r)
	if !ok {
		return
	}

	conn, err := s.views.Chat.AcceptConnection(r.Context(), userId, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, conn)
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	account, ok := s.account(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := realtime.NewClient(account.Id, conn, s.hub, s.log)

	s.hub.RegisterClient(client)
	go client.Write()
	go client.Read()
}
