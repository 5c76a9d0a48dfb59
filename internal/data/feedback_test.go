package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAverageRating(t *testing.T) {
	cases := []struct {
		ratings []int
		want    float64
	}{
		{nil, 0},
		{[]int{5}, 5},
		{[]int{4, 5}, 4.5},
		{[]int{5, 4, 4}, 4.3},
		{[]int{1, 2, 2}, 1.7},
	}
	for _, tc := range cases {
		fbs := make([]*Feedback, 0, len(tc.ratings))
		for _, r := range tc.ratings {
			fbs = append(fbs, &Feedback{Rating: r})
		}
		if got := AverageRating(fbs); got != tc.want {
			t.Errorf("AverageRating(%v) = %v, want %v", tc.ratings, got, tc.want)
		}
	}
}

func TestFeedbackStore(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	reqs := NewRequestsStore(c.RequestsCollection())
	feedback := NewFeedbackStore(c.FeedbackCollection())
	ctx := context.Background()

	mentor := mustUser(t, users, "mentor", RoleMentor)
	mentee := mustUser(t, users, "mentee", RoleMentee)
	req, err := reqs.CreateRequest(ctx, mentee.ID, mentor.ID, "", "hi")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	for _, r := range []int{5, 4} {
		_, err := feedback.CreateFeedback(ctx, &Feedback{
			MentorshipRequestID: req.ID,
			MenteeID:            mentee.ID,
			MentorID:            mentor.ID,
			Rating:              r,
		})
		if err != nil {
			t.Fatalf("CreateFeedback failed: %v", err)
		}
	}

	list, err := feedback.ListForMentor(ctx, mentor.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListForMentor: n=%d err=%v", len(list), err)
	}
	if AverageRating(list) != 4.5 {
		t.Fatalf("unexpected average %v", AverageRating(list))
	}

	n, err := feedback.DeleteInvolving(ctx, mentee.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteInvolving: n=%d err=%v", n, err)
	}
}

func TestResetTokensStore(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	tokens := NewResetTokensStore(c.ResetTokensCollection())
	ctx := context.Background()

	u := mustUser(t, users, "forgetful", RoleMentee)
	equal := func(hash, raw string) bool { return hash == "h:"+raw }

	if err := tokens.CreateToken(ctx, u.ID, "h:expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if err := tokens.CreateToken(ctx, u.ID, "h:live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if _, err := tokens.FindValid(ctx, "expired", equal); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired token to be ignored, got %v", err)
	}

	tok, err := tokens.FindValid(ctx, "live", equal)
	if err != nil {
		t.Fatalf("FindValid failed: %v", err)
	}
	if tok.UserID != u.ID {
		t.Fatalf("token bound to wrong user")
	}

	if err := tokens.DeleteToken(ctx, tok.ID); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}
	if _, err := tokens.FindValid(ctx, "live", equal); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected consumed token to be gone, got %v", err)
	}

	n, err := tokens.DeleteForUser(ctx, u.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteForUser: n=%d err=%v", n, err)
	}
}
