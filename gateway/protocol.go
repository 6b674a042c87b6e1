package gateway

import (
	"encoding/json"
	"time"
)

// Outbound message types.
const (
	MessageTypeExecuteSkill     = "execute_skill"
	MessageTypeWorkspaceSetup   = "workspace_setup"
	MessageTypeWorkspaceRelease = "workspace_release"
	MessageTypeProfileSync      = "profile_sync"
)

// Unsolicited inbound message types.
const (
	MessageTypeWorkspaceReady = "workspace_ready"
	MessageTypeError          = "error"
)

// OutboundMessage is a JSON frame sent to the gateway over the persistent
// connection.
type OutboundMessage struct {
	Type        string                 `json:"type"`
	RequestId   string                 `json:"requestId,omitempty"`
	SkillName   string                 `json:"skillName,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	WorkspaceId string                 `json:"workspaceId,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// InboundMessage is a JSON frame received from the gateway, either a
// correlated response (RequestId set) or an unsolicited message (Type set).
type InboundMessage struct {
	Type          string          `json:"type,omitempty"`
	RequestId     string          `json:"requestId,omitempty"`
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         string          `json:"error,omitempty"`
	SkillName     string          `json:"skillName,omitempty"`
	ExecutionTime int64           `json:"executionTime,omitempty"` // milliseconds, as reported by the gateway
	Confidence    float64         `json:"confidence,omitempty"`
	WorkspaceId   string          `json:"workspaceId,omitempty"`
}
