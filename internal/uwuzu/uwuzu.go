// Package uwuzu is a typed client for the uwuzu social network API.
//
// Every domain object is a fixed-shape record decoded from the JSON the
// server returns; unknown keys are dropped rather than carried around as
// dynamic bags, so schema drift shows up at compile time.
package uwuzu

import "errors"

// ErrUnavailable wraps every transport, HTTP-status, or decode failure.
// Callers that only care whether the feed could be read at all should
// match with errors.Is.
var ErrUnavailable = errors.New("uwuzu: feed unavailable")

// ErrNotFound is returned when the server answers successfully but the
// requested object does not exist.
var ErrNotFound = errors.New("uwuzu: not found")

// User is an account on the server.
type User struct {
	ID       string `json:"userid"`
	Username string `json:"username"`
	Profile  string `json:"profile"`
}

// Post is a single timeline entry (the server calls these "ueuse").
//
// ID is stable, non-empty and unique for the lifetime of the feed; the
// watch and walk packages rely on that for deduplication.
type Post struct {
	ID        string `json:"uniqid"`
	Text      string `json:"text"`
	NSFW      bool   `json:"nsfw"`
	Account   User   `json:"account"`
	ReplyID   string `json:"replyid,omitempty"`
	ReuseID   string `json:"reuseid,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Notification is an entry from the notification inbox.
type Notification struct {
	Type string `json:"type"`
	Text string `json:"text"`
	From User   `json:"from"`
}

// ServerInfo describes the remote instance.
type ServerInfo struct {
	ServerName  string `json:"servername"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Favorites is the favorite state of a single post.
type Favorites struct {
	Count     int    `json:"count"`
	Favorited bool   `json:"favorited"`
	Users     []User `json:"users"`
}

// Report is a moderation report, visible to admin accounts only.
type Report struct {
	ReportedUserID string `json:"reported_userid"`
	PostID         string `json:"uniqid"`
	Reason         string `json:"reason"`
}

// NewPost describes a post to be created. Up to four local image files
// may be attached; they are base64-encoded into the request payload.
type NewPost struct {
	Text       string
	ReplyID    string
	ReuseID    string
	NSFW       bool
	ImagePaths []string
}

// ProfileUpdate carries the fields of a profile edit. Empty fields are
// left untouched on the server.
type ProfileUpdate struct {
	Username   string
	Profile    string
	IconPath   string
	HeaderPath string
}

// SanctionRequest describes an admin moderation action against a user.
type SanctionRequest struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Really  string
}
