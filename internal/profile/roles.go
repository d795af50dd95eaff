package profile

// DefaultRole is assigned to newly created profiles.
const DefaultRole = "code"

// ValidRoles is the fixed set of agent roles a profile may prefer.
var ValidRoles = []string{"code", "architect", "ask"}

// IsValidRole reports whether role is in the fixed valid set.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DefaultInstructions returns the seed instruction set for a new
// profile, one base instruction per role.
func DefaultInstructions() []RoleInstruction {
	return []RoleInstruction{
		{
			Role:         "code",
			Instructions: "Prioritize code quality and maintainability, and include appropriate error handling.",
			Priority:     1,
		},
		{
			Role:         "architect",
			Instructions: "Prioritize consistency and extensibility in system design, and provide detailed design documentation.",
			Priority:     1,
		},
		{
			Role:         "ask",
			Instructions: "Provide concrete, practical answers to questions, including examples where helpful.",
			Priority:     1,
		},
	}
}
