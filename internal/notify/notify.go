// Package notify builds the notification feed shown behind the bell icon:
// unread chat messages, pending requests addressed to the user as mentor,
// and recent answers to requests the user sent as mentee.
package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
)

const (
	// MaxItems caps the merged feed.
	MaxItems = 30
	// SourceLimit caps each of the three sources before merging.
	SourceLimit = 20
	// PreviewRunes is the longest message preview kept verbatim.
	PreviewRunes = 80
	// ResolvedWindow is how far back request answers are reported.
	ResolvedWindow = 7 * 24 * time.Hour
)

// Kind discriminates notification items.
type Kind string

const (
	KindMessage   Kind = "message"
	KindRequest   Kind = "request"
	KindApproval  Kind = "approval"
	KindRejection Kind = "rejection"
)

// Item is one entry of the feed. Items are derived on every call and never stored.
type Item struct {
	ID         string    `json:"id"`
	Type       Kind      `json:"type"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Link       string    `json:"link"`
}

// Feed is the aggregated result. TotalUnread is not bounded by the item cap.
type Feed struct {
	Notifications []Item `json:"notifications"`
	TotalUnread   int64  `json:"totalUnread"`
}

// Empty is the feed returned on any failure.
func Empty() Feed {
	return Feed{Notifications: []Item{}, TotalUnread: 0}
}

// RequestSource is the read side of the requests collection used by the feed.
type RequestSource interface {
	AcceptedIDsFor(ctx context.Context, userID bson.ObjectID) ([]bson.ObjectID, error)
	PendingForMentor(ctx context.Context, mentorID bson.ObjectID, limit int64) ([]*data.MentorshipRequest, error)
	CountPendingForMentor(ctx context.Context, mentorID bson.ObjectID) (int64, error)
	ResolvedForMentee(ctx context.Context, menteeID bson.ObjectID, since time.Time, limit int64) ([]*data.MentorshipRequest, error)
}

// MessageSource is the read side of the messages collection used by the feed.
type MessageSource interface {
	UnreadFor(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID, limit int64) ([]*data.Message, error)
	CountUnreadFor(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID) (int64, error)
}

// NameSource resolves display names.
type NameSource interface {
	NamesByID(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]string, error)
}

// Aggregator assembles feeds from the three sources.
type Aggregator struct {
	requests RequestSource
	messages MessageSource
	names    NameSource
	now      func() time.Time
}

// NewAggregator returns an Aggregator reading from the given sources.
func NewAggregator(requests RequestSource, messages MessageSource, names NameSource) *Aggregator {
	return &Aggregator{
		requests: requests,
		messages: messages,
		names:    names,
		now:      time.Now,
	}
}

// Feed returns the user's notifications, newest first. It never fails: any
// store error is logged and an empty feed is returned.
func (a *Aggregator) Feed(ctx context.Context, userID bson.ObjectID) Feed {
	feed, err := a.build(ctx, userID)
	if err != nil {
		log.Printf("notifications for %s: %v", userID.Hex(), err)
		return Empty()
	}
	return feed
}

// UnreadMessages counts unread messages addressed to the user across their
// accepted conversations, or 0 on any error.
func (a *Aggregator) UnreadMessages(ctx context.Context, userID bson.ObjectID) int64 {
	ids, err := a.requests.AcceptedIDsFor(ctx, userID)
	if err != nil {
		log.Printf("unread count for %s: %v", userID.Hex(), err)
		return 0
	}
	n, err := a.messages.CountUnreadFor(ctx, ids, userID)
	if err != nil {
		log.Printf("unread count for %s: %v", userID.Hex(), err)
		return 0
	}
	return n
}

func (a *Aggregator) build(ctx context.Context, userID bson.ObjectID) (Feed, error) {
	conversations, err := a.requests.AcceptedIDsFor(ctx, userID)
	if err != nil {
		return Feed{}, fmt.Errorf("accepted requests: %w", err)
	}

	unread, err := a.messages.UnreadFor(ctx, conversations, userID, SourceLimit)
	if err != nil {
		return Feed{}, fmt.Errorf("unread messages: %w", err)
	}
	pending, err := a.requests.PendingForMentor(ctx, userID, SourceLimit)
	if err != nil {
		return Feed{}, fmt.Errorf("pending requests: %w", err)
	}
	resolved, err := a.requests.ResolvedForMentee(ctx, userID, a.now().Add(-ResolvedWindow), SourceLimit)
	if err != nil {
		return Feed{}, fmt.Errorf("resolved requests: %w", err)
	}

	// counts are taken over the full sets, not the capped lists
	unreadCount, err := a.messages.CountUnreadFor(ctx, conversations, userID)
	if err != nil {
		return Feed{}, fmt.Errorf("count unread: %w", err)
	}
	pendingCount, err := a.requests.CountPendingForMentor(ctx, userID)
	if err != nil {
		return Feed{}, fmt.Errorf("count pending: %w", err)
	}

	ids := make([]bson.ObjectID, 0, len(pending)+len(resolved))
	for _, r := range pending {
		ids = append(ids, r.MenteeID)
	}
	for _, r := range resolved {
		ids = append(ids, r.MentorID)
	}
	names, err := a.names.NamesByID(ctx, ids)
	if err != nil {
		return Feed{}, fmt.Errorf("names: %w", err)
	}

	items := make([]Item, 0, len(unread)+len(pending)+len(resolved))
	for _, m := range unread {
		items = append(items, messageItem(m))
	}
	for _, r := range pending {
		items = append(items, requestItem(r, names[r.MenteeID]))
	}
	for _, r := range resolved {
		item, ok := resolutionItem(r, names[r.MentorID])
		if !ok {
			continue
		}
		items = append(items, item)
	}

	// equal timestamps keep source order
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	return Feed{Notifications: items, TotalUnread: unreadCount + pendingCount}, nil
}

func messageItem(m *data.Message) Item {
	return Item{
		ID:         "msg-" + m.ID.Hex(),
		Type:       KindMessage,
		SenderName: orDefault(m.SenderName, "Someone"),
		Text:       Preview(m.Content),
		Timestamp:  m.CreatedAt,
		Link:       "/chat?requestId=" + m.MentorshipRequestID.Hex(),
	}
}

func requestItem(r *data.MentorshipRequest, menteeName string) Item {
	text := "Requested mentorship"
	if r.Subject != "" {
		text += ": " + r.Subject
	}
	return Item{
		ID:         "req-pending-" + r.ID.Hex(),
		Type:       KindRequest,
		SenderName: orDefault(menteeName, "Someone"),
		Text:       text,
		Timestamp:  r.CreatedAt,
		Link:       "/dashboard",
	}
}

// resolutionItem maps an answered request; ok is false for pending ones.
func resolutionItem(r *data.MentorshipRequest, mentorName string) (Item, bool) {
	item := Item{
		ID:         fmt.Sprintf("req-%s-%s", r.Status, r.ID.Hex()),
		SenderName: orDefault(mentorName, "A mentor"),
		Timestamp:  r.UpdatedAt,
		Link:       "/dashboard",
	}
	switch r.Status {
	case data.StatusAccepted:
		item.Type = KindApproval
		item.Text = "Accepted your mentorship request"
	case data.StatusRejected:
		item.Type = KindRejection
		item.Text = "Declined your mentorship request"
	case data.StatusPending:
		return Item{}, false
	default:
		return Item{}, false
	}
	return item, true
}

// Preview shortens s to PreviewRunes runes plus "..." when it is longer.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewRunes {
		return s
	}
	return string(r[:PreviewRunes]) + "..."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
