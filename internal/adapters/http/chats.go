package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type chatRequest struct {
	Message        string `json:"message"`
	BotID          string `json:"botId,omitempty"`
	PreviousChatID string `json:"previousChatId,omitempty"`
}

// Handler for POST /api/chats.
func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidRequest, err))
		return
	}

	botID, err := s.authorize(r, body.BotID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sessionID := s.session(w, r)
	reply, err := s.svc.HandleInboundMessage(r.Context(), sessionID, botID, body.Message, body.PreviousChatID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// authorize resolves the bot of the request and checks the caller's origin against it.
// The body's bot id wins when the header is absent; when both are present they must agree.
func (s *Server) authorize(r *http.Request, bodyBotID string) (string, error) {
	header := r.Header.Get(HeaderBotID)
	botID := bodyBotID
	switch {
	case botID == "" && header == "":
		return "", fmt.Errorf("%w: bot id is required", domain.ErrInvalidRequest)
	case botID == "":
		botID = header
	case header != "" && header != botID:
		return "", fmt.Errorf("%w: %s does not match the requested bot", domain.ErrUnauthorized, HeaderBotID)
	}

	info, err := s.svc.LaunchInfo(r.Context(), botID)
	if err != nil {
		return "", err
	}

	origin := r.Header.Get(HeaderOrigin)
	if origin == "" {
		origin = r.Header.Get("Origin")
	}
	if !info.AllowsOrigin(origin) {
		return "", fmt.Errorf("%w: origin %q is not allowed for bot %q", domain.ErrUnauthorized, origin, botID)
	}
	return botID, nil
}

// session returns the visitor's session id, issuing a cookie on first contact.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Handler for GET /api/chats/{chatSessionId}.
func (s *Server) getChatHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ChatHistory(r.Context(), chi.URLParam(r, "chatSessionId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// Handler for GET /api/chats.
func (s *Server) getAllChats(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.AllChats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) invalidateAll(w http.ResponseWriter, r *http.Request) {
	s.svc.InvalidateAllBotConfigs()
	s.logger.Info("bot config cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) invalidateBot(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botId")
	s.svc.InvalidateBotConfig(botID)
	s.logger.Info("bot config invalidated", "bot", botID)
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(records []domain.ChatRecord) []domain.ChatRecord {
	if records == nil {
		return []domain.ChatRecord{}
	}
	return records
}
