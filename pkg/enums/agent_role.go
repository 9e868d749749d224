package enums

// AgentRole classifies back-office staff accounts.
type AgentRole string

const (
	// AgentRoleSuivi marks follow-up agents, the only role orders are routed to.
	AgentRoleSuivi AgentRole = "AGENT_SUIVI"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Assignable reports whether orders may be routed to this role.
func (r AgentRole) Assignable() bool {
	return r == AgentRoleSuivi
}
