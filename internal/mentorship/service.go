// Package mentorship owns the mentorship request lifecycle and everything it
// gates: chat between the two parties, feedback, and account removal.
//
// A request starts pending and is resolved exactly once by its mentor to
// accepted or rejected. Only accepted requests carry a conversation.
package mentorship

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
)

// UserStore is the part of the users collection the service reads.
type UserStore interface {
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	UsersByID(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*data.User, error)
	DeleteUser(ctx context.Context, id bson.ObjectID) error
}

// RequestStore persists mentorship requests. TransitionFromPending must be
// atomic: it succeeds for at most one caller per request.
type RequestStore interface {
	CreateRequest(ctx context.Context, menteeID, mentorID bson.ObjectID, subject, message string) (*data.MentorshipRequest, error)
	GetRequest(ctx context.Context, id bson.ObjectID) (*data.MentorshipRequest, error)
	HasPendingBetween(ctx context.Context, a, b bson.ObjectID) (bool, error)
	TransitionFromPending(ctx context.Context, id bson.ObjectID, to data.RequestStatus) (*data.MentorshipRequest, error)
	ListForMentor(ctx context.Context, mentorID bson.ObjectID) ([]*data.MentorshipRequest, error)
	ListForMentee(ctx context.Context, menteeID bson.ObjectID) ([]*data.MentorshipRequest, error)
	AcceptedIDsFor(ctx context.Context, userID bson.ObjectID) ([]bson.ObjectID, error)
	IDsInvolving(ctx context.Context, userID bson.ObjectID) ([]bson.ObjectID, error)
	DeleteInvolving(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	SaveMessage(ctx context.Context, requestID, senderID bson.ObjectID, senderName string, role data.SenderRole, content string) (*data.Message, error)
	ConversationHistory(ctx context.Context, requestID bson.ObjectID, limit int64) ([]*data.Message, error)
	MarkRead(ctx context.Context, requestID, readerID bson.ObjectID) (int64, error)
	Summaries(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID) ([]*data.ConversationSummary, error)
	DeleteForAccount(ctx context.Context, requestIDs []bson.ObjectID, senderID bson.ObjectID) (int64, error)
}

// FeedbackStore persists mentor ratings.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *data.Feedback) (*data.Feedback, error)
	ListForMentor(ctx context.Context, mentorID bson.ObjectID) ([]*data.Feedback, error)
	DeleteInvolving(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// ResetTokenStore is only needed to purge tokens on account deletion.
type ResetTokenStore interface {
	DeleteForUser(ctx context.Context, userID bson.ObjectID) (int64, error)
}

// Service implements the request lifecycle over injected stores.
type Service struct {
	users    UserStore
	requests RequestStore
	messages MessageStore
	feedback FeedbackStore
	tokens   ResetTokenStore
}

// NewService wires a Service.
func NewService(users UserStore, requests RequestStore, messages MessageStore, feedback FeedbackStore, tokens ResetTokenStore) *Service {
	return &Service{
		users:    users,
		requests: requests,
		messages: messages,
		feedback: feedback,
		tokens:   tokens,
	}
}

// Create opens a pending request from mentee to mentor. It fails with
// ErrConflict while any pending request links the two users in either
// direction.
func (s *Service) Create(ctx context.Context, menteeID, mentorID bson.ObjectID, message, subject string) (*data.MentorshipRequest, error) {
	if mentorID.IsZero() {
		return nil, newError(ErrInvalid, "Mentor ID is required")
	}
	if menteeID == mentorID {
		return nil, newError(ErrInvalid, "You cannot request mentorship from yourself")
	}

	mentor, err := s.users.GetUserByID(ctx, mentorID)
	if err != nil {
		return nil, storeErr("Mentor", err)
	}
	if !mentor.Role.CanMentor() {
		return nil, newError(ErrInvalid, "This user is not accepting mentees")
	}

	pending, err := s.requests.HasPendingBetween(ctx, menteeID, mentorID)
	if err != nil {
		return nil, storeErr("Mentorship request", err)
	}
	if pending {
		return nil, newError(ErrConflict, "You already have a pending request with this user")
	}

	req, err := s.requests.CreateRequest(ctx, menteeID, mentorID, strings.TrimSpace(subject), strings.TrimSpace(message))
	if err != nil {
		return nil, storeErr("Mentorship request", err)
	}
	return req, nil
}

// Resolve moves a pending request to decision on behalf of its mentor.
// Only the first resolution wins; later calls get ErrConflict and leave the
// stored status alone.
func (s *Service) Resolve(ctx context.Context, requestID, actorID bson.ObjectID, decision string) (*data.MentorshipRequest, error) {
	to, err := data.ParseDecision(decision)
	if err != nil || requestID.IsZero() {
		return nil, newError(ErrInvalid, "Invalid request ID or status")
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("Request", err)
	}
	if req.MentorID != actorID {
		return nil, newError(ErrForbidden, "Only the addressed mentor can respond to this request")
	}

	updated, err := s.requests.TransitionFromPending(ctx, requestID, to)
	if err != nil {
		return nil, storeErr("Request", err)
	}
	return updated, nil
}

// CanMessage reports whether the request's conversation is open.
func (s *Service) CanMessage(ctx context.Context, requestID bson.ObjectID) (bool, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return false, storeErr("Mentorship request", err)
	}
	return canMessage(req.Status), nil
}

func canMessage(st data.RequestStatus) bool {
	switch st {
	case data.StatusAccepted:
		return true
	case data.StatusPending, data.StatusRejected:
		return false
	}
	return false
}

// party loads the request and checks userID takes part in it.
func (s *Service) party(ctx context.Context, requestID, userID bson.ObjectID) (*data.MentorshipRequest, error) {
	if requestID.IsZero() {
		return nil, newError(ErrInvalid, "Request ID is required")
	}
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("Mentorship request", err)
	}
	if !req.Involves(userID) {
		return nil, newError(ErrForbidden, "Not authorized to access this conversation")
	}
	return req, nil
}

// SendMessage stores an unread message from senderID. The sender must be a
// party to the request and the request must be accepted.
func (s *Service) SendMessage(ctx context.Context, requestID, senderID bson.ObjectID, content string) (*data.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newError(ErrInvalid, "Missing required fields")
	}

	req, err := s.party(ctx, requestID, senderID)
	if err != nil {
		return nil, err
	}
	if !canMessage(req.Status) {
		return nil, newError(ErrForbidden, "Messages can only be sent on accepted requests")
	}

	sender, err := s.users.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, storeErr("User", err)
	}

	role := data.SenderMentee
	if req.MentorID == senderID {
		role = data.SenderMentor
	}

	msg, err := s.messages.SaveMessage(ctx, req.ID, senderID, sender.Name, role, content)
	if err != nil {
		return nil, storeErr("Message", err)
	}
	return msg, nil
}

// Conversation returns the request's messages oldest first and marks the
// other party's messages read. The returned slice reflects read flags as
// they were before marking.
func (s *Service) Conversation(ctx context.Context, requestID, readerID bson.ObjectID) ([]*data.Message, error) {
	req, err := s.party(ctx, requestID, readerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ConversationHistory(ctx, req.ID, 0)
	if err != nil {
		return nil, storeErr("Messages", err)
	}
	if msgs == nil {
		msgs = []*data.Message{}
	}

	if _, err := s.messages.MarkRead(ctx, req.ID, readerID); err != nil {
		log.Printf("mark read failed for request %s: %v", req.ID.Hex(), err)
	}
	return msgs, nil
}

// Conversations summarises every open conversation of the user, most
// recently active first. Accepted requests without messages are omitted.
func (s *Service) Conversations(ctx context.Context, userID bson.ObjectID) ([]*data.ConversationSummary, error) {
	ids, err := s.requests.AcceptedIDsFor(ctx, userID)
	if err != nil {
		return nil, storeErr("Requests", err)
	}
	sums, err := s.messages.Summaries(ctx, ids, userID)
	if err != nil {
		return nil, storeErr("Messages", err)
	}
	return sums, nil
}

// RequestView is a request together with the other party's public profile.
type RequestView struct {
	*data.MentorshipRequest
	Mentee *data.PublicProfile `json:"mentee,omitempty"`
	Mentor *data.PublicProfile `json:"mentor,omitempty"`
}

// Received lists requests addressed to the mentor with mentee profiles.
func (s *Service) Received(ctx context.Context, mentorID bson.ObjectID) ([]RequestView, error) {
	reqs, err := s.requests.ListForMentor(ctx, mentorID)
	if err != nil {
		return nil, storeErr("Requests", err)
	}
	return s.views(ctx, reqs, func(r *data.MentorshipRequest) bson.ObjectID { return r.MenteeID })
}

// Sent lists requests the mentee sent with mentor profiles.
func (s *Service) Sent(ctx context.Context, menteeID bson.ObjectID) ([]RequestView, error) {
	reqs, err := s.requests.ListForMentee(ctx, menteeID)
	if err != nil {
		return nil, storeErr("Requests", err)
	}
	return s.views(ctx, reqs, func(r *data.MentorshipRequest) bson.ObjectID { return r.MentorID })
}

func (s *Service) views(ctx context.Context, reqs []*data.MentorshipRequest, other func(*data.MentorshipRequest) bson.ObjectID) ([]RequestView, error) {
	ids := make([]bson.ObjectID, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, other(r))
	}
	users, err := s.users.UsersByID(ctx, ids)
	if err != nil {
		return nil, storeErr("Users", err)
	}

	out := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		v := RequestView{MentorshipRequest: r}
		if u, ok := users[other(r)]; ok {
			p := u.Public()
			if other(r) == r.MenteeID {
				v.Mentee = &p
			} else {
				v.Mentor = &p
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// SubmitFeedback records a rating from the request's mentee for its mentor.
// The request must already be resolved. Repeated ratings are allowed.
func (s *Service) SubmitFeedback(ctx context.Context, requestID, menteeID bson.ObjectID, rating int, comment string) (*data.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, newError(ErrInvalid, "Rating must be between 1 and 5")
	}
	if requestID.IsZero() {
		return nil, newError(ErrInvalid, "Invalid feedback data")
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("Mentorship request", err)
	}
	if req.MenteeID != menteeID {
		return nil, newError(ErrForbidden, "Only the mentee of this request can leave feedback")
	}
	if !req.Status.Terminal() {
		return nil, newError(ErrConflict, "Feedback can only be left once the request is resolved")
	}

	fb, err := s.feedback.CreateFeedback(ctx, &data.Feedback{
		MentorshipRequestID: req.ID,
		MenteeID:            menteeID,
		MentorID:            req.MentorID,
		Rating:              rating,
		Comment:             strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, storeErr("Feedback", err)
	}
	return fb, nil
}

// FeedbackEntry is one rating as shown on a mentor's profile.
type FeedbackEntry struct {
	ID                   bson.ObjectID `json:"id"`
	Rating               int           `json:"rating"`
	Comment              string        `json:"comment"`
	MenteeID             bson.ObjectID `json:"menteeId"`
	MenteeName           string        `json:"menteeName"`
	MenteeProfilePicture string        `json:"menteeProfilePicture"`
	CreatedAt            time.Time     `json:"createdAt"`
}

// FeedbackSummary aggregates every rating a mentor received.
type FeedbackSummary struct {
	AverageRating  float64         `json:"averageRating"`
	TotalFeedbacks int             `json:"totalFeedbacks"`
	Feedbacks      []FeedbackEntry `json:"feedbacks"`
}

// MentorFeedback lists a mentor's ratings with the average rounded to one decimal.
func (s *Service) MentorFeedback(ctx context.Context, mentorID bson.ObjectID) (*FeedbackSummary, error) {
	if mentorID.IsZero() {
		return nil, newError(ErrInvalid, "Mentor ID is required")
	}

	fbs, err := s.feedback.ListForMentor(ctx, mentorID)
	if err != nil {
		return nil, storeErr("Feedback", err)
	}

	ids := make([]bson.ObjectID, 0, len(fbs))
	for _, fb := range fbs {
		ids = append(ids, fb.MenteeID)
	}
	mentees, err := s.users.UsersByID(ctx, ids)
	if err != nil {
		return nil, storeErr("Users", err)
	}

	out := &FeedbackSummary{
		AverageRating:  data.AverageRating(fbs),
		TotalFeedbacks: len(fbs),
		Feedbacks:      make([]FeedbackEntry, 0, len(fbs)),
	}
	for _, fb := range fbs {
		e := FeedbackEntry{
			ID:        fb.ID,
			Rating:    fb.Rating,
			Comment:   fb.Comment,
			MenteeID:  fb.MenteeID,
			CreatedAt: fb.CreatedAt,
		}
		if m, ok := mentees[fb.MenteeID]; ok {
			e.MenteeName = m.Name
			e.MenteeProfilePicture = m.ProfilePictureURL
		}
		out.Feedbacks = append(out.Feedbacks, e)
	}
	return out, nil
}

// DeleteAccount removes the user and everything hanging off them: messages
// in their conversations or sent by them, their requests, feedback on
// either side, reset tokens, then the user document itself.
func (s *Service) DeleteAccount(ctx context.Context, userID bson.ObjectID) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return storeErr("User", err)
	}

	ids, err := s.requests.IDsInvolving(ctx, userID)
	if err != nil {
		return storeErr("Requests", err)
	}
	if _, err := s.messages.DeleteForAccount(ctx, ids, userID); err != nil {
		return storeErr("Messages", err)
	}
	if _, err := s.requests.DeleteInvolving(ctx, userID); err != nil {
		return storeErr("Requests", err)
	}
	if _, err := s.feedback.DeleteInvolving(ctx, userID); err != nil {
		return storeErr("Feedback", err)
	}
	if _, err := s.tokens.DeleteForUser(ctx, userID); err != nil {
		return storeErr("Reset tokens", err)
	}

	err = s.users.DeleteUser(ctx, userID)
	if errors.Is(err, data.ErrNotFound) {
		// removed concurrently; the cascade above already ran
		return nil
	}
	if err != nil {
		return storeErr("User", err)
	}
	return nil
}
