package main

import (
	"net/http"
	"strings"

	"github.com/PaulBabatuyi/mentorship-hub/internal/mentorship"
	"github.com/PaulBabatuyi/mentorship-hub/internal/notify"
)

type createRequestBody struct {
	MentorID string `json:"mentorId"`
	Message  string `json:"message"`
	Subject  string `json:"subject"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.MentorID == "" || strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "Mentor ID and message are required")
		return
	}

	uid, _ := userIDFromContext(r.Context())
	req, err := s.mentorship.Create(r.Context(), uid, objectID(body.MentorID), body.Message, body.Subject)
	if err != nil {
		writeServiceError(w, err, "Failed to create mentorship request")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Mentorship request sent successfully",
		"request": req,
	})
}

func (s *Server) handleReceivedRequests(w http.ResponseWriter, r *http.Request) {
	uid, _ := userIDFromContext(r.Context())
	views, err := s.mentorship.Received(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch mentorship requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": nonNil(views)})
}

func (s *Server) handleSentRequests(w http.ResponseWriter, r *http.Request) {
	uid, _ := userIDFromContext(r.Context())
	views, err := s.mentorship.Sent(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch sent requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": nonNil(views)})
}

type resolveRequestBody struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

func (s *Server) handleResolveRequest(w http.ResponseWriter, r *http.Request) {
	var body resolveRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.RequestID == "" || body.Status == "" {
		writeError(w, http.StatusBadRequest, "Request ID and status are required")
		return
	}

	uid, _ := userIDFromContext(r.Context())
	req, err := s.mentorship.Resolve(r.Context(), objectID(body.RequestID), uid, body.Status)
	if err != nil {
		writeServiceError(w, err, "Failed to update mentorship request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Mentorship request " + string(req.Status),
		"request": req,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	uid, _ := userIDFromContext(r.Context())
	msgs, err := s.mentorship.Conversation(r.Context(), objectID(requestID), uid)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": nonNil(msgs)})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	uid, _ := userIDFromContext(r.Context())
	sums, err := s.mentorship.Conversations(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": nonNil(sums)})
}

type sendMessageBody struct {
	MentorshipRequestID string `json:"mentorshipRequestId"`
	Content             string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendMessageBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.MentorshipRequestID == "" || strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "Request ID and content are required")
		return
	}

	uid, _ := userIDFromContext(r.Context())
	msg, err := s.mentorship.SendMessage(r.Context(), objectID(body.MentorshipRequestID), uid, body.Content)
	if err != nil {
		writeServiceError(w, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

// handleUnreadCount never fails; anonymous callers and store errors get 0.
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	var n int64
	if uid, ok := userIDFromContext(r.Context()); ok {
		n = s.notify.UnreadMessages(r.Context(), uid)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unreadCount": n})
}

// handleNotifications never fails; anonymous callers get an empty feed.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	feed := notify.Empty()
	if uid, ok := userIDFromContext(r.Context()); ok {
		feed = s.notify.Feed(r.Context(), uid)
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	mentorID := r.URL.Query().Get("mentorId")
	if mentorID == "" {
		writeError(w, http.StatusBadRequest, "Mentor ID is required")
		return
	}
	summary, err := s.mentorship.MentorFeedback(r.Context(), objectID(mentorID))
	if err != nil {
		writeServiceError(w, err, "Failed to fetch feedback")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type submitFeedbackBody struct {
	MentorshipRequestID string `json:"mentorshipRequestId"`
	Rating              int    `json:"rating"`
	Comment             string `json:"comment"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var body submitFeedbackBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.MentorshipRequestID == "" || body.Rating == 0 {
		writeError(w, http.StatusBadRequest, "Request ID and rating are required")
		return
	}

	uid, _ := userIDFromContext(r.Context())
	fb, err := s.mentorship.SubmitFeedback(r.Context(), objectID(body.MentorshipRequestID), uid, body.Rating, body.Comment)
	if err != nil {
		writeServiceError(w, err, "Failed to submit feedback")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Feedback submitted successfully",
		"feedback": fb,
	})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ mentorshipService = (*mentorship.Service)(nil)
