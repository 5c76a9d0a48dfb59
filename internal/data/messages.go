package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is the "messages" collection; every document carries its parent request id
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// ConversationSummary describes the latest activity in one conversation.
type ConversationSummary struct {
	RequestID     bson.ObjectID `bson:"_id" json:"requestId"`
	LastMessage   string        `bson:"last_message" json:"lastMessage"`
	LastSender    string        `bson:"last_sender" json:"lastSender"`
	LastMessageAt time.Time     `bson:"last_message_at" json:"lastMessageAt"`
	Unread        int64         `bson:"unread" json:"unread"`
}

// SaveMessage inserts an unread message and returns the saved record.
func (m *MessagesStore) SaveMessage(ctx context.Context, requestID, senderID bson.ObjectID, senderName string, role SenderRole, content string) (*Message, error) {
	now := time.Now().UTC()
	msg := &Message{
		MentorshipRequestID: requestID,
		SenderID:            senderID,
		SenderName:          senderName,
		SenderRole:          role,
		Content:             content,
		IsRead:              false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// ConversationHistory returns the most recent limit messages of a
// conversation ordered oldest→newest. limit 0 returns the whole conversation.
func (m *MessagesStore) ConversationHistory(ctx context.Context, requestID bson.ObjectID, limit int64) ([]*Message, error) {
	// newest first so the limit keeps the tail of the conversation
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.coll.Find(ctx, bson.M{"mentorship_request_id": requestID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []*Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// Reverse into chronological order for the chat view
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead flags every unread message in the conversation not written by
// reader as read and returns how many changed.
func (m *MessagesStore) MarkRead(ctx context.Context, requestID, readerID bson.ObjectID) (int64, error) {
	filter := bson.M{
		"mentorship_request_id": requestID,
		"sender_id":             bson.M{"$ne": readerID},
		"is_read":               false,
	}
	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now().UTC()}}

	res, err := m.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadFor returns up to limit unread messages addressed to reader across
// the given conversations, newest first.
func (m *MessagesStore) UnreadFor(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID, limit int64) ([]*Message, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.coll.Find(ctx, unreadFilter(requestIDs, readerID), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CountUnreadFor counts every unread message addressed to reader across the
// given conversations.
func (m *MessagesStore) CountUnreadFor(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID) (int64, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}
	return m.coll.CountDocuments(ctx, unreadFilter(requestIDs, readerID))
}

// Summaries aggregates the latest message and the unread count for reader in
// each conversation, most recently active first.
func (m *MessagesStore) Summaries(ctx context.Context, requestIDs []bson.ObjectID, readerID bson.ObjectID) ([]*ConversationSummary, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}

	pipeline := mongo.Pipeline{
		// Stage 1: only the caller's conversations
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "mentorship_request_id", Value: bson.D{{Key: "$in", Value: requestIDs}}},
		}}},

		// Stage 2: chronological so $last picks the newest message
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}}}},

		// Stage 3: one row per conversation
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$mentorship_request_id"},
			{Key: "last_message", Value: bson.D{{Key: "$last", Value: "$content"}}},
			{Key: "last_sender", Value: bson.D{{Key: "$last", Value: "$sender_name"}}},
			{Key: "last_message_at", Value: bson.D{{Key: "$last", Value: "$created_at"}}},
			// unread = not read and written by the other party
			{Key: "unread", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$is_read", false}}},
						bson.D{{Key: "$ne", Value: bson.A{"$sender_id", readerID}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},

		// Stage 4: most recent conversation first
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}}}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := make([]*ConversationSummary, 0)
	if err = cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// DeleteForAccount removes messages in the given conversations and any
// message the user sent elsewhere.
func (m *MessagesStore) DeleteForAccount(ctx context.Context, requestIDs []bson.ObjectID, senderID bson.ObjectID) (int64, error) {
	filter := bson.M{"sender_id": senderID}
	if len(requestIDs) > 0 {
		filter = bson.M{"$or": bson.A{
			bson.M{"mentorship_request_id": bson.M{"$in": requestIDs}},
			bson.M{"sender_id": senderID},
		}}
	}

	res, err := m.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func unreadFilter(requestIDs []bson.ObjectID, readerID bson.ObjectID) bson.M {
	return bson.M{
		"mentorship_request_id": bson.M{"$in": requestIDs},
		"sender_id":             bson.M{"$ne": readerID},
		"is_read":               false,
	}
}
