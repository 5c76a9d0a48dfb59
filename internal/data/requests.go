package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RequestsStore provides mentorship request database operations.
type RequestsStore struct {
	coll *mongo.Collection
}

// NewRequestsStore returns a RequestsStore using given collection.
func NewRequestsStore(coll *mongo.Collection) *RequestsStore {
	return &RequestsStore{coll: coll}
}

// CreateRequest inserts a pending request between mentee and mentor.
func (s *RequestsStore) CreateRequest(ctx context.Context, menteeID, mentorID bson.ObjectID, subject, message string) (*MentorshipRequest, error) {
	now := time.Now().UTC()
	req := &MentorshipRequest{
		MenteeID:  menteeID,
		MentorID:  mentorID,
		Status:    StatusPending,
		Subject:   subject,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := s.coll.InsertOne(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = result.InsertedID.(bson.ObjectID)
	return req, nil
}

// GetRequest finds a request by id.
func (s *RequestsStore) GetRequest(ctx context.Context, id bson.ObjectID) (*MentorshipRequest, error) {
	var req MentorshipRequest
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// HasPendingBetween reports whether a pending request links the two users
// in either direction.
func (s *RequestsStore) HasPendingBetween(ctx context.Context, a, b bson.ObjectID) (bool, error) {
	filter := bson.M{
		"status": StatusPending,
		"$or": bson.A{
			bson.M{"mentee_id": a, "mentor_id": b},
			bson.M{"mentee_id": b, "mentor_id": a},
		},
	}
	count, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// TransitionFromPending atomically moves a pending request to the given
// terminal status. The filter on status makes this a compare-and-swap: of two
// racing callers only one matches. ErrNotPending is returned when the request
// exists but was already resolved.
func (s *RequestsStore) TransitionFromPending(ctx context.Context, id bson.ObjectID, to RequestStatus) (*MentorshipRequest, error) {
	filter := bson.M{"_id": id, "status": StatusPending}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req MentorshipRequest
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// distinguish "gone" from "already resolved"
	if _, getErr := s.GetRequest(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrNotPending
}

// AcceptedIDsFor returns the ids of accepted requests the user takes part in.
// These ids are the user's conversations.
func (s *RequestsStore) AcceptedIDsFor(ctx context.Context, userID bson.ObjectID) ([]bson.ObjectID, error) {
	filter := bson.M{
		"status": StatusAccepted,
		"$or":    bson.A{bson.M{"mentor_id": userID}, bson.M{"mentee_id": userID}},
	}
	return s.ids(ctx, filter)
}

// IDsInvolving returns the ids of every request the user takes part in.
func (s *RequestsStore) IDsInvolving(ctx context.Context, userID bson.ObjectID) ([]bson.ObjectID, error) {
	return s.ids(ctx, involving(userID))
}

func (s *RequestsStore) ids(ctx context.Context, filter bson.M) ([]bson.ObjectID, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]bson.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ListForMentor returns requests addressed to the mentor, newest first.
func (s *RequestsStore) ListForMentor(ctx context.Context, mentorID bson.ObjectID) ([]*MentorshipRequest, error) {
	return s.find(ctx, bson.M{"mentor_id": mentorID}, "created_at", 0)
}

// ListForMentee returns requests sent by the mentee, newest first.
func (s *RequestsStore) ListForMentee(ctx context.Context, menteeID bson.ObjectID) ([]*MentorshipRequest, error) {
	return s.find(ctx, bson.M{"mentee_id": menteeID}, "created_at", 0)
}

// PendingForMentor returns at most limit pending requests addressed to the
// mentor, newest first.
func (s *RequestsStore) PendingForMentor(ctx context.Context, mentorID bson.ObjectID, limit int64) ([]*MentorshipRequest, error) {
	return s.find(ctx, bson.M{"mentor_id": mentorID, "status": StatusPending}, "created_at", limit)
}

// CountPendingForMentor counts every pending request addressed to the mentor.
func (s *RequestsStore) CountPendingForMentor(ctx context.Context, mentorID bson.ObjectID) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"mentor_id": mentorID, "status": StatusPending})
}

// ResolvedForMentee returns requests sent by the mentee that were accepted
// or rejected at or after since, most recently updated first.
func (s *RequestsStore) ResolvedForMentee(ctx context.Context, menteeID bson.ObjectID, since time.Time, limit int64) ([]*MentorshipRequest, error) {
	filter := bson.M{
		"mentee_id":  menteeID,
		"status":     bson.M{"$in": bson.A{StatusAccepted, StatusRejected}},
		"updated_at": bson.M{"$gte": since},
	}
	return s.find(ctx, filter, "updated_at", limit)
}

// DeleteInvolving removes every request the user takes part in.
func (s *RequestsStore) DeleteInvolving(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, involving(userID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// find runs filter sorted descending on sortField; limit 0 means no limit.
func (s *RequestsStore) find(ctx context.Context, filter bson.M, sortField string, limit int64) ([]*MentorshipRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []*MentorshipRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func involving(userID bson.ObjectID) bson.M {
	return bson.M{"$or": bson.A{bson.M{"mentee_id": userID}, bson.M{"mentor_id": userID}}}
}
