package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ResetTokensStore keeps hashed password reset tokens. Expired documents are
// removed by the TTL index on expires_at.
type ResetTokensStore struct {
	coll *mongo.Collection
}

// NewResetTokensStore returns a ResetTokensStore using given collection.
func NewResetTokensStore(coll *mongo.Collection) *ResetTokensStore {
	return &ResetTokensStore{coll: coll}
}

// CreateToken stores the hash of a freshly issued reset token.
func (r *ResetTokensStore) CreateToken(ctx context.Context, userID bson.ObjectID, tokenHash string, expiresAt time.Time) error {
	_, err := r.coll.InsertOne(ctx, &PasswordResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// FindValid returns the first unexpired token whose hash matches raw
// according to match. Tokens are stored hashed, so every live candidate has
// to be compared.
func (r *ResetTokensStore) FindValid(ctx context.Context, raw string, match func(hash, raw string) bool) (*PasswordResetToken, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"expires_at": bson.M{"$gt": time.Now().UTC()}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var t PasswordResetToken
		if err := cursor.Decode(&t); err != nil {
			return nil, err
		}
		if match(t.TokenHash, raw) {
			return &t, nil
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

// DeleteToken removes a consumed token.
func (r *ResetTokensStore) DeleteToken(ctx context.Context, id bson.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteForUser removes every token issued to the user.
func (r *ResetTokensStore) DeleteForUser(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
