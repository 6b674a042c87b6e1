package auth

import "dayflow/domain"

type GatewayAccess string

const (
	GatewayAccessDisabled  GatewayAccess = "disabled"
	GatewayAccessLimited   GatewayAccess = "limited"
	GatewayAccessUnlimited GatewayAccess = "unlimited"
)

// limitedTierMaxExecutions caps skill executions per sign-in for limited-tier
// users.
const limitedTierMaxExecutions = 100

// Permissions is the per-sign-in permission set derived from the user's
// subscription tier and role.
type Permissions struct {
	GatewayAccess      GatewayAccess `json:"gatewayAccess"`
	MaxSkillExecutions int64         `json:"maxSkillExecutions,omitempty"` // 0 means unlimited
	CanReadOwnData     bool          `json:"canReadOwnData"`
	CanWriteOwnData    bool          `json:"canWriteOwnData"`
	CanViewSharedData  bool          `json:"canViewSharedData"`
	CanManageTeamData  bool          `json:"canManageTeamData"`
}

// ComputePermissions derives the permission set for an account. The
// gatewayEnabled flag always takes precedence: when false, gateway access is
// disabled regardless of tier.
func ComputePermissions(account domain.UserAccount, gatewayEnabled bool) Permissions {
	perms := Permissions{
		CanReadOwnData:  true,
		CanWriteOwnData: true,
	}

	switch account.Tier {
	case domain.TierPro:
		perms.GatewayAccess = GatewayAccessLimited
		perms.MaxSkillExecutions = limitedTierMaxExecutions
	case domain.TierTeam:
		perms.GatewayAccess = GatewayAccessUnlimited
		perms.CanViewSharedData = true
		perms.CanManageTeamData = account.Role == domain.RoleAdmin || account.Role == domain.RoleOwner
	default:
		perms.GatewayAccess = GatewayAccessDisabled
	}

	if !gatewayEnabled {
		perms.GatewayAccess = GatewayAccessDisabled
		perms.MaxSkillExecutions = 0
	}
	return perms
}
