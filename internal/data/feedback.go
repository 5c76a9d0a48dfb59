package data

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// FeedbackStore provides feedback database operations.
type FeedbackStore struct {
	coll *mongo.Collection
}

// NewFeedbackStore returns a FeedbackStore using given collection.
func NewFeedbackStore(coll *mongo.Collection) *FeedbackStore {
	return &FeedbackStore{coll: coll}
}

// CreateFeedback stores a rating for a mentorship request.
func (f *FeedbackStore) CreateFeedback(ctx context.Context, fb *Feedback) (*Feedback, error) {
	now := time.Now().UTC()
	fb.CreatedAt = now
	fb.UpdatedAt = now

	result, err := f.coll.InsertOne(ctx, fb)
	if err != nil {
		return nil, err
	}
	fb.ID = result.InsertedID.(bson.ObjectID)
	return fb, nil
}

// ListForMentor returns all feedback left for the mentor, newest first.
func (f *FeedbackStore) ListForMentor(ctx context.Context, mentorID bson.ObjectID) ([]*Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := f.coll.Find(ctx, bson.M{"mentor_id": mentorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*Feedback
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteInvolving removes feedback written by or about the user.
func (f *FeedbackStore) DeleteInvolving(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := f.coll.DeleteMany(ctx, involving(userID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// AverageRating returns the mean rating rounded to one decimal, or 0 for no feedback.
func AverageRating(fbs []*Feedback) float64 {
	if len(fbs) == 0 {
		return 0
	}
	sum := 0
	for _, fb := range fbs {
		sum += fb.Rating
	}
	avg := float64(sum) / float64(len(fbs))
	return math.Round(avg*10) / 10
}
