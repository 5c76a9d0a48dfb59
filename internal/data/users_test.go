package data

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/mentorship-hub/internal/db"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func setupDB(t *testing.T) *db.Client {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri, "mentorship_data_test")
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}

	// ensure clean collections in case previous runs left data
	_ = c.UsersCollection().Drop(ctx)
	_ = c.RequestsCollection().Drop(ctx)
	_ = c.MessagesCollection().Drop(ctx)
	_ = c.FeedbackCollection().Drop(ctx)
	_ = c.ResetTokensCollection().Drop(ctx)

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func mustUser(t *testing.T, users *UsersStore, name string, role Role, skills ...string) *User {
	t.Helper()
	email := time.Now().UTC().Format("20060102-150405.000000") + "-" + name + "@example.com"
	u, err := users.CreateUser(context.Background(), &User{
		Email:    email,
		Password: "hashed-password",
		Name:     name,
		Role:     role,
		Skills:   skills,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return u
}

func TestUsersCreateAndGet(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	user, err := users.CreateUser(ctx, &User{
		Email:    "  Ada@Example.COM ",
		Password: "hashed-password",
		Name:     "Ada",
		Role:     RoleMentor,
		Skills:   []string{"Go", " go ", "Rust", ""},
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email got %s", user.Email)
	}
	if len(user.Skills) != 2 {
		t.Fatalf("expected deduped skills, got %v", user.Skills)
	}
	if user.ProfilePictureURL != DefaultProfilePicture {
		t.Fatalf("expected default picture, got %q", user.ProfilePictureURL)
	}

	ok, err := users.UserExists(ctx, "ADA@example.com")
	if err != nil || !ok {
		t.Fatalf("UserExists failed: ok=%v err=%v", ok, err)
	}

	byEmail, err := users.GetUserByEmail(ctx, "ada@EXAMPLE.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("GetUserByEmail returned wrong user")
	}

	got, err := users.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Name != "Ada" {
		t.Fatalf("GetUserByID returned wrong name: %s", got.Name)
	}

	// duplicate email
	_, err = users.CreateUser(ctx, &User{Email: "ada@example.com", Password: "x", Name: "Other", Role: RoleMentee})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := users.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersListMentorsAndProfile(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	mustUser(t, users, "zed", RoleMentor, "Go")
	mustUser(t, users, "amy", RoleBoth, "python")
	mustUser(t, users, "bob", RoleMentee, "go")

	all, err := users.ListMentors(ctx, "")
	if err != nil {
		t.Fatalf("ListMentors failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "amy" || all[1].Name != "zed" {
		t.Fatalf("unexpected mentors: %+v", all)
	}
	if all[0].Password != "" {
		t.Fatalf("password hash leaked from ListMentors")
	}

	goMentors, err := users.ListMentors(ctx, "GO")
	if err != nil {
		t.Fatalf("ListMentors(GO) failed: %v", err)
	}
	if len(goMentors) != 1 || goMentors[0].Name != "zed" {
		t.Fatalf("unexpected skill filter result: %+v", goMentors)
	}

	bio := "ten years of Go"
	updated, err := users.UpdateProfile(ctx, goMentors[0].ID, ProfileUpdate{Bio: &bio, Skills: []string{"Go", "gRPC"}})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Bio != bio || len(updated.Skills) != 2 || updated.Name != "zed" {
		t.Fatalf("unexpected profile after update: %+v", updated)
	}

	names, err := users.NamesByID(ctx, []bson.ObjectID{updated.ID})
	if err != nil || names[updated.ID] != "zed" {
		t.Fatalf("NamesByID: names=%v err=%v", names, err)
	}

	if err := users.SetPassword(ctx, updated.ID, "new-hash"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if err := users.DeleteUser(ctx, updated.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := users.DeleteUser(ctx, updated.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
