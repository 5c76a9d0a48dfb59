package data

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMessagesSaveAndQuery(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	reqs := NewRequestsStore(c.RequestsCollection())
	msgs := NewMessagesStore(c.MessagesCollection())
	ctx := context.Background()

	mentor := mustUser(t, users, "mentor", RoleMentor)
	mentee := mustUser(t, users, "mentee", RoleMentee)
	req, err := reqs.CreateRequest(ctx, mentee.ID, mentor.ID, "", "hi")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if _, err := msgs.SaveMessage(ctx, req.ID, mentee.ID, mentee.Name, SenderMentee, "hi mentor"); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if _, err := msgs.SaveMessage(ctx, req.ID, mentor.ID, mentor.Name, SenderMentor, "hello mentee"); err != nil {
		t.Fatalf("SaveMessage 2 failed: %v", err)
	}
	if _, err := msgs.SaveMessage(ctx, req.ID, mentee.ID, mentee.Name, SenderMentee, "thanks"); err != nil {
		t.Fatalf("SaveMessage 3 failed: %v", err)
	}

	// history is chronological and limit keeps the tail
	history, err := msgs.ConversationHistory(ctx, req.ID, 2)
	if err != nil {
		t.Fatalf("ConversationHistory failed: %v", err)
	}
	if len(history) != 2 || history[0].Content != "hello mentee" || history[1].Content != "thanks" {
		t.Fatalf("unexpected history: %+v", history)
	}

	ids := []bson.ObjectID{req.ID}
	n, err := msgs.CountUnreadFor(ctx, ids, mentor.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountUnreadFor(mentor): n=%d err=%v", n, err)
	}

	unread, err := msgs.UnreadFor(ctx, ids, mentor.ID, 1)
	if err != nil || len(unread) != 1 || unread[0].Content != "thanks" {
		t.Fatalf("UnreadFor: %+v err=%v", unread, err)
	}

	sums, err := msgs.Summaries(ctx, ids, mentor.ID)
	if err != nil || len(sums) != 1 {
		t.Fatalf("Summaries: %+v err=%v", sums, err)
	}
	if sums[0].LastMessage != "thanks" || sums[0].Unread != 2 {
		t.Fatalf("unexpected summary: %+v", sums[0])
	}

	marked, err := msgs.MarkRead(ctx, req.ID, mentor.ID)
	if err != nil || marked != 2 {
		t.Fatalf("MarkRead: n=%d err=%v", marked, err)
	}
	// own messages are untouched
	if n, _ := msgs.CountUnreadFor(ctx, ids, mentee.ID); n != 1 {
		t.Fatalf("expected mentee to still have 1 unread, got %d", n)
	}

	deleted, err := msgs.DeleteForAccount(ctx, ids, mentee.ID)
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteForAccount: n=%d err=%v", deleted, err)
	}
}

func TestMessagesEmptyConversationSet(t *testing.T) {
	c := setupDB(t)
	msgs := NewMessagesStore(c.MessagesCollection())
	ctx := context.Background()

	reader := bson.NewObjectID()
	if got, err := msgs.UnreadFor(ctx, nil, reader, 20); err != nil || len(got) != 0 {
		t.Fatalf("UnreadFor(nil): %v err=%v", got, err)
	}
	if n, err := msgs.CountUnreadFor(ctx, nil, reader); err != nil || n != 0 {
		t.Fatalf("CountUnreadFor(nil): %d err=%v", n, err)
	}
}
