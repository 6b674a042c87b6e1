package auth

import (
	"sync/atomic"
	"time"

	"dayflow/domain"
)

// SecurityContext is the security state derived from one sign-in. It is
// recreated on every sign-in and discarded on sign-out.
type SecurityContext struct {
	UserId         string
	OrganizationId string
	Role           domain.Role
	Tier           domain.SubscriptionTier
	Permissions    Permissions
	SignedInAt     time.Time

	skillExecutions  atomic.Int64
	deniedExecutions atomic.Int64
}

// SkillExecutions is the number of permitted skill executions since sign-in.
func (c *SecurityContext) SkillExecutions() int64 {
	return c.skillExecutions.Load()
}

// DeniedExecutions is the number of execution attempts refused since sign-in.
func (c *SecurityContext) DeniedExecutions() int64 {
	return c.deniedExecutions.Load()
}

// CanUseGateway reports whether any gateway-backed feature is available.
func (c *SecurityContext) CanUseGateway() bool {
	return c.Permissions.GatewayAccess != GatewayAccessDisabled
}

type DataAction string

const (
	DataActionRead  DataAction = "read"
	DataActionWrite DataAction = "write"
)

// CanAccessData encodes the data-access policy: one's own data follows the
// read/write flags, others' data requires the shared-data flag for reads and
// the role-gated manage-team-data flag for writes.
func (c *SecurityContext) CanAccessData(ownerId string, action DataAction) bool {
	if ownerId == c.UserId {
		switch action {
		case DataActionRead:
			return c.Permissions.CanReadOwnData
		case DataActionWrite:
			return c.Permissions.CanWriteOwnData
		}
		return false
	}
	switch action {
	case DataActionRead:
		return c.Permissions.CanViewSharedData
	case DataActionWrite:
		return c.Permissions.CanManageTeamData
	}
	return false
}
