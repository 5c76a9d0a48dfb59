// Package data provides DB models and stores.
package data

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/PaulBabatuyi/mentorship-hub/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore performs user DB operations.
type UsersStore struct {
	// coll is the "users" collection; the unique email index lives in db.CreateIndexes
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// ProfileUpdate carries the editable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name              *string
	Bio               *string
	Role              *Role
	Skills            []string
	Interests         []string
	ProfilePictureURL *string
}

// CreateUser inserts a new user document. The password must already be hashed.
func (u *UsersStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	now := time.Now().UTC()
	user.Email = normalize.Email(user.Email)
	user.Skills = normalize.Tags(user.Skills)
	user.Interests = normalize.Tags(user.Interests)
	if user.ProfilePictureURL == "" {
		user.ProfilePictureURL = DefaultProfilePicture
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// unique index on email rejects a second registration
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserExists checks if a user exists by email.
func (u *UsersStore) UserExists(ctx context.Context, email string) (bool, error) {
	count, err := u.coll.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UsersByID loads every user in ids in a single query. Missing ids are
// simply absent from the returned map.
func (u *UsersStore) UsersByID(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*User, error) {
	out := make(map[bson.ObjectID]*User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// password hashes never leave this query
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}

// NamesByID returns display names keyed by user id.
func (u *UsersStore) NamesByID(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]string, error) {
	users, err := u.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[bson.ObjectID]string, len(users))
	for id, user := range users {
		names[id] = user.Name
	}
	return names, nil
}

// ListMentors returns users who accept mentees, optionally filtered by a
// skill (case-insensitive exact match), sorted by name.
func (u *UsersStore) ListMentors(ctx context.Context, skill string) ([]*User, error) {
	filter := bson.M{"role": bson.M{"$in": bson.A{RoleMentor, RoleBoth}}}
	if skill != "" {
		filter["skills"] = bson.M{"$regex": "^" + regexp.QuoteMeta(skill) + "$", "$options": "i"}
	}

	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := u.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	mentors := []*User{}
	if err := cursor.All(ctx, &mentors); err != nil {
		return nil, err
	}
	return mentors, nil
}

// UpdateProfile applies the non-nil fields of upd and returns the updated user.
func (u *UsersStore) UpdateProfile(ctx context.Context, id bson.ObjectID, upd ProfileUpdate) (*User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.Skills != nil {
		set["skills"] = normalize.Tags(upd.Skills)
	}
	if upd.Interests != nil {
		set["interests"] = normalize.Tags(upd.Interests)
	}
	if upd.ProfilePictureURL != nil {
		set["profile_picture_url"] = *upd.ProfilePictureURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user User
	err := u.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetPassword replaces the stored password hash.
func (u *UsersStore) SetPassword(ctx context.Context, id bson.ObjectID, hashedPassword string) error {
	res, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": hashedPassword, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user document itself.
func (u *UsersStore) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	res, err := u.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
