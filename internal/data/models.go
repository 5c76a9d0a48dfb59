package data

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role is the part a user plays on the platform.
type Role string

const (
	RoleMentor Role = "Mentor"
	RoleMentee Role = "Mentee"
	RoleBoth   Role = "Both"
)

// ParseRole validates a role coming from a client.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMentor, RoleMentee, RoleBoth:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// CanMentor reports whether users with this role accept mentorship requests.
func (r Role) CanMentor() bool {
	switch r {
	case RoleMentor, RoleBoth:
		return true
	case RoleMentee:
		return false
	}
	return false
}

// RequestStatus is the lifecycle state of a mentorship request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// ParseDecision validates a resolution chosen by a mentor. Only terminal
// states are accepted; nothing ever transitions back to pending.
func ParseDecision(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case StatusAccepted, StatusRejected:
		return st, nil
	case StatusPending:
		return "", fmt.Errorf("cannot resolve a request to %q", s)
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected:
		return true
	case StatusPending:
		return false
	}
	return false
}

// SenderRole records which side of a request wrote a message.
type SenderRole string

const (
	SenderMentor SenderRole = "Mentor"
	SenderMentee SenderRole = "Mentee"
)

// DefaultProfilePicture is assigned to accounts that never set one.
const DefaultProfilePicture = "https://api.dicebear.com/7.x/avataaars/svg?seed=default"

// User maps to users collection
type User struct {
	ID                bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string        `bson:"email" json:"email"`
	Password          string        `bson:"password" json:"-"`
	Name              string        `bson:"name" json:"name"`
	Bio               string        `bson:"bio" json:"bio"`
	Role              Role          `bson:"role" json:"role"`
	Skills            []string      `bson:"skills" json:"skills"`
	Interests         []string      `bson:"interests" json:"interests"`
	ProfilePictureURL string        `bson:"profile_picture_url" json:"profilePictureUrl"`
	CreatedAt         time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updatedAt"`
}

// MentorshipRequest maps to mentorship_requests collection
type MentorshipRequest struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	MenteeID  bson.ObjectID `bson:"mentee_id" json:"menteeId"`
	MentorID  bson.ObjectID `bson:"mentor_id" json:"mentorId"`
	Status    RequestStatus `bson:"status" json:"status"`
	Subject   string        `bson:"subject,omitempty" json:"subject,omitempty"`
	Message   string        `bson:"message" json:"message"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Involves reports whether the user is the mentee or the mentor.
func (r *MentorshipRequest) Involves(userID bson.ObjectID) bool {
	return r.MenteeID == userID || r.MentorID == userID
}

// Message maps to messages collection; every message belongs to one request.
type Message struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"id"`
	MentorshipRequestID bson.ObjectID `bson:"mentorship_request_id" json:"mentorshipRequestId"`
	SenderID            bson.ObjectID `bson:"sender_id" json:"senderId"`
	SenderName          string        `bson:"sender_name" json:"senderName"`
	SenderRole          SenderRole    `bson:"sender_role" json:"senderRole"`
	Content             string        `bson:"content" json:"content"`
	IsRead              bool          `bson:"is_read" json:"isRead"`
	CreatedAt           time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Feedback maps to feedback collection
type Feedback struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"id"`
	MentorshipRequestID bson.ObjectID `bson:"mentorship_request_id" json:"mentorshipRequestId"`
	MenteeID            bson.ObjectID `bson:"mentee_id" json:"menteeId"`
	MentorID            bson.ObjectID `bson:"mentor_id" json:"mentorId"`
	Rating              int           `bson:"rating" json:"rating"`
	Comment             string        `bson:"comment" json:"comment"`
	CreatedAt           time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time     `bson:"updated_at" json:"updatedAt"`
}

// PasswordResetToken stores only a bcrypt hash of the emailed token.
type PasswordResetToken struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	TokenHash string        `bson:"token_hash"`
	ExpiresAt time.Time     `bson:"expires_at"`
	CreatedAt time.Time     `bson:"created_at"`
}

// PublicProfile is the subset of a user shown to other users.
type PublicProfile struct {
	ID                bson.ObjectID `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email,omitempty"`
	Role              Role          `json:"role"`
	Bio               string        `json:"bio"`
	Skills            []string      `json:"skills"`
	Interests         []string      `json:"interests"`
	ProfilePictureURL string        `json:"profilePictureUrl"`
}

// Public strips private fields from a user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		Bio:               u.Bio,
		Skills:            u.Skills,
		Interests:         u.Interests,
		ProfilePictureURL: u.ProfilePictureURL,
	}
}
