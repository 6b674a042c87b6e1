package domain

import "time"

// WorkspaceSession is an in-memory record of a user's isolated execution
// context on the gateway. At most one active session exists per user at a
// time; repeated requests reuse it.
type WorkspaceSession struct {
	WorkspaceId  string    `json:"workspaceId"`
	UserId       string    `json:"userId"`
	SessionId    string    `json:"sessionId"`
	Created      time.Time `json:"created"`
	LastActivity time.Time `json:"lastActivity"`
	Active       bool      `json:"active"`
}
