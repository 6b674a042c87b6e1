package domain

import (
	"context"
	"fmt"
	"time"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

func StringToRole(s string) (Role, error) {
	switch s {
	case "member", "":
		// default
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	case "owner":
		return RoleOwner, nil
	default:
		return "", fmt.Errorf("invalid Role: \"%s\"", s)
	}
}

type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPro  SubscriptionTier = "pro"
	TierTeam SubscriptionTier = "team"
)

func StringToSubscriptionTier(s string) (SubscriptionTier, error) {
	switch s {
	case "free", "":
		// default
		return TierFree, nil
	case "pro":
		return TierPro, nil
	case "team":
		return TierTeam, nil
	default:
		return "", fmt.Errorf("invalid SubscriptionTier: \"%s\"", s)
	}
}

// UserAccount is the identity-provider view of a user, delivered with
// sign-in and token-refresh events.
type UserAccount struct {
	Id             string           `json:"id"`
	OrganizationId string           `json:"organizationId,omitempty"`
	Email          string           `json:"email,omitempty"`
	Role           Role             `json:"role"`
	Tier           SubscriptionTier `json:"tier"`
}

// AuditEvent is one security-relevant action, persisted append-only.
type AuditEvent struct {
	Id      string    `json:"id"`
	UserId  string    `json:"userId"`
	Action  string    `json:"action"`
	Detail  string    `json:"detail,omitempty"`
	Success bool      `json:"success"`
	Created time.Time `json:"created"`
}

// AuditStorage defines the interface for the append-only security audit log.
type AuditStorage interface {
	AppendAuditEvent(ctx context.Context, event AuditEvent) error
	GetAuditEvents(ctx context.Context, userId string, limit int) ([]AuditEvent, error)
}
