package mentorship

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
)

var errDown = errors.New("connection refused")

// memStore implements every store interface in memory. Setting fail makes
// every call return errDown.
type memStore struct {
	mu       sync.Mutex
	fail     bool
	users    map[bson.ObjectID]*data.User
	requests map[bson.ObjectID]*data.MentorshipRequest
	messages []*data.Message
	feedback []*data.Feedback
	tokens   map[bson.ObjectID]int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[bson.ObjectID]*data.User{},
		requests: map[bson.ObjectID]*data.MentorshipRequest{},
		tokens:   map[bson.ObjectID]int{},
	}
}

func (m *memStore) service() *Service {
	return NewService(m, m.reqs(), m.msgs(), m.fbs(), m)
}

func (m *memStore) addUser(name string, role data.Role) *data.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &data.User{ID: bson.NewObjectID(), Name: name, Email: name + "@example.com", Role: role}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addRequest(mentee, mentor *data.User, st data.RequestStatus) *data.MentorshipRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	r := &data.MentorshipRequest{ID: bson.NewObjectID(), MenteeID: mentee.ID, MentorID: mentor.ID, Status: st, CreatedAt: now, UpdatedAt: now}
	m.requests[r.ID] = r
	return r
}

func (m *memStore) status(id bson.ObjectID) data.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

// ---- users ----

func (m *memStore) GetUserByID(_ context.Context, id bson.ObjectID) (*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UsersByID(_ context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*data.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	out := map[bson.ObjectID]*data.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *memStore) DeleteUser(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return data.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) DeleteForUser(_ context.Context, id bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.tokens[id]
	delete(m.tokens, id)
	return int64(n), nil
}

// ---- requests ----

type memRequests struct{ *memStore }

func (m *memStore) reqs() memRequests { return memRequests{m} }

func (m memRequests) CreateRequest(_ context.Context, menteeID, mentorID bson.ObjectID, subject, message string) (*data.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	now := time.Now().UTC()
	r := &data.MentorshipRequest{
		ID: bson.NewObjectID(), MenteeID: menteeID, MentorID: mentorID,
		Status: data.StatusPending, Subject: subject, Message: message,
		CreatedAt: now, UpdatedAt: now,
	}
	m.requests[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m memRequests) GetRequest(_ context.Context, id bson.ObjectID) (*data.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	r, ok := m.requests[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memRequests) HasPendingBetween(_ context.Context, a, b bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errDown
	}
	for _, r := range m.requests {
		if r.Status != data.StatusPending {
			continue
		}
		if (r.MenteeID == a && r.MentorID == b) || (r.MenteeID == b && r.MentorID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (m memRequests) TransitionFromPending(_ context.Context, id bson.ObjectID, to data.RequestStatus) (*data.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	r, ok := m.requests[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	if r.Status != data.StatusPending {
		return nil, data.ErrNotPending
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC().Add(time.Millisecond)
	cp := *r
	return &cp, nil
}

func (m memRequests) list(match func(*data.MentorshipRequest) bool) []*data.MentorshipRequest {
	var out []*data.MentorshipRequest
	for _, r := range m.requests {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

func (m memRequests) ListForMentor(_ context.Context, id bson.ObjectID) ([]*data.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	return m.list(func(r *data.MentorshipRequest) bool { return r.MentorID == id }), nil
}

func (m memRequests) ListForMentee(_ context.Context, id bson.ObjectID) ([]*data.MentorshipRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	return m.list(func(r *data.MentorshipRequest) bool { return r.MenteeID == id }), nil
}

func (m memRequests) AcceptedIDsFor(_ context.Context, id bson.ObjectID) ([]bson.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	var ids []bson.ObjectID
	for _, r := range m.list(func(r *data.MentorshipRequest) bool { return r.Status == data.StatusAccepted && r.Involves(id) }) {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m memRequests) IDsInvolving(_ context.Context, id bson.ObjectID) ([]bson.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []bson.ObjectID
	for _, r := range m.list(func(r *data.MentorshipRequest) bool { return r.Involves(id) }) {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m memRequests) DeleteInvolving(_ context.Context, id bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, r := range m.requests {
		if r.Involves(id) {
			delete(m.requests, k)
			n++
		}
	}
	return n, nil
}

// ---- messages ----

type memMessages struct{ *memStore }

func (m *memStore) msgs() memMessages { return memMessages{m} }

func (m memMessages) SaveMessage(_ context.Context, requestID, senderID bson.ObjectID, senderName string, role data.SenderRole, content string) (*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	msg := &data.Message{
		ID: bson.NewObjectID(), MentorshipRequestID: requestID, SenderID: senderID,
		SenderName: senderName, SenderRole: role, Content: content, CreatedAt: time.Now().UTC(),
	}
	m.messages = append(m.messages, msg)
	cp := *msg
	return &cp, nil
}

func (m memMessages) ConversationHistory(_ context.Context, requestID bson.ObjectID, _ int64) ([]*data.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	var out []*data.Message
	for _, msg := range m.messages {
		if msg.MentorshipRequestID == requestID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memMessages) MarkRead(_ context.Context, requestID, readerID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.MentorshipRequestID == requestID && msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

// Summaries groups messages per conversation in insertion order, which is
// chronological here. Output order follows first appearance.
func (m memMessages) Summaries(_ context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID) ([]*data.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	in := map[bson.ObjectID]bool{}
	for _, id := range requestIDs {
		in[id] = true
	}
	byID := map[bson.ObjectID]*data.ConversationSummary{}
	var out []*data.ConversationSummary
	for _, msg := range m.messages {
		if !in[msg.MentorshipRequestID] {
			continue
		}
		sum, ok := byID[msg.MentorshipRequestID]
		if !ok {
			sum = &data.ConversationSummary{RequestID: msg.MentorshipRequestID}
			byID[msg.MentorshipRequestID] = sum
			out = append(out, sum)
		}
		sum.LastMessage, sum.LastSender, sum.LastMessageAt = msg.Content, msg.SenderName, msg.CreatedAt
		if !msg.IsRead && msg.SenderID != readerID {
			sum.Unread++
		}
	}
	return out, nil
}

func (m memMessages) DeleteForAccount(_ context.Context, requestIDs []bson.ObjectID, senderID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := map[bson.ObjectID]bool{}
	for _, id := range requestIDs {
		in[id] = true
	}
	kept := m.messages[:0]
	var n int64
	for _, msg := range m.messages {
		if in[msg.MentorshipRequestID] || msg.SenderID == senderID {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return n, nil
}

// ---- feedback ----

type memFeedback struct{ *memStore }

func (m *memStore) fbs() memFeedback { return memFeedback{m} }

func (m memFeedback) CreateFeedback(_ context.Context, fb *data.Feedback) (*data.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	fb.ID = bson.NewObjectID()
	fb.CreatedAt = time.Now().UTC()
	m.feedback = append(m.feedback, fb)
	return fb, nil
}

func (m memFeedback) ListForMentor(_ context.Context, id bson.ObjectID) ([]*data.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDown
	}
	var out []*data.Feedback
	for _, fb := range m.feedback {
		if fb.MentorID == id {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (m memFeedback) DeleteInvolving(_ context.Context, id bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.feedback[:0]
	var n int64
	for _, fb := range m.feedback {
		if fb.MenteeID == id || fb.MentorID == id {
			n++
			continue
		}
		kept = append(kept, fb)
	}
	m.feedback = kept
	return n, nil
}
