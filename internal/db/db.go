// Package db manages MongoDB connections and collections.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "mentorship"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db is the application database; every collection is reached through it
	db *mongo.Database
}

// New connects to MongoDB and returns a Client bound to database.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	if database == "" {
		database = DefaultDatabase
	}

	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(30 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(2)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping so a bad URI fails at startup rather than on the first request
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// RequestsCollection returns the mentorship requests collection.
func (c *Client) RequestsCollection() *mongo.Collection {
	return c.db.Collection("mentorship_requests")
}

// MessagesCollection returns the messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection("messages")
}

// FeedbackCollection returns the feedback collection.
func (c *Client) FeedbackCollection() *mongo.Collection {
	return c.db.Collection("feedback")
}

// ResetTokensCollection returns the password reset tokens collection.
func (c *Client) ResetTokensCollection() *mongo.Collection {
	return c.db.Collection("password_reset_tokens")
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes every store query relies on. It is
// idempotent and safe to run at each startup.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS =====
	// unique email backs ErrDuplicate on registration
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "name", Value: 1}}},
	}
	if _, err := c.UsersCollection().Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	// ===== MENTORSHIP REQUESTS =====
	requests := []mongo.IndexModel{
		// received list, pending feed, pending-pair check
		{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		// sent list, resolved feed
		{Keys: bson.D{{Key: "mentee_id", Value: 1}, {Key: "status", Value: 1}, {Key: "updated_at", Value: -1}}},
	}
	if _, err := c.RequestsCollection().Indexes().CreateMany(ctx, requests); err != nil {
		return fmt.Errorf("failed to create request indexes: %w", err)
	}

	// ===== MESSAGES =====
	messages := []mongo.IndexModel{
		// conversation history
		{Keys: bson.D{{Key: "mentorship_request_id", Value: 1}, {Key: "created_at", Value: -1}}},
		// unread feed and counts
		{Keys: bson.D{{Key: "mentorship_request_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "sender_id", Value: 1}}},
	}
	if _, err := c.MessagesCollection().Indexes().CreateMany(ctx, messages); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// ===== FEEDBACK =====
	feedback := mongo.IndexModel{Keys: bson.D{{Key: "mentor_id", Value: 1}, {Key: "created_at", Value: -1}}}
	if _, err := c.FeedbackCollection().Indexes().CreateOne(ctx, feedback); err != nil {
		return fmt.Errorf("failed to create feedback index: %w", err)
	}

	// ===== PASSWORD RESET TOKENS =====
	// TTL: documents are dropped once expires_at passes
	ttl := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := c.ResetTokensCollection().Indexes().CreateOne(ctx, ttl); err != nil {
		return fmt.Errorf("failed to create reset token index: %w", err)
	}

	return nil
}
