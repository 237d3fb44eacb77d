package rbac

type Role string
type Action string

const (
	RoleParticipant Role = "participant"
	RolePresenter   Role = "presenter"
)

const (
	ActionRead     Action = "read"
	ActionRespond  Action = "respond"
	ActionEdit     Action = "edit"
	ActionModerate Action = "moderate"
)

func Can(role Role, action Action) bool {
	switch role {
	case RolePresenter:
		return true
	case RoleParticipant:
		return action == ActionRead || action == ActionRespond
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleParticipant, RolePresenter:
		return Role(role)
	default:
		return RoleParticipant
	}
}
