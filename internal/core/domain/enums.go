package domain

// GroupType decides how membership of a group may change.
type GroupType string

const (
	TypeRegularGroup   GroupType = "RegularGroup"
	TypeUserToUser     GroupType = "UserToUser"
	TypeMessagesToSelf GroupType = "MessagesToSelf"
)

// Description is the human label used in listings.
func (t GroupType) Description() string {
	switch t {
	case TypeUserToUser:
		return "Private"
	case TypeMessagesToSelf:
		return "Messages to Self"
	default:
		return "Regular"
	}
}

// Valid reports whether t is one of the known types.
func (t GroupType) Valid() bool {
	return t == TypeRegularGroup || t == TypeUserToUser || t == TypeMessagesToSelf
}

// GroupStatus is Active until the group is deactivated. There is no way back.
type GroupStatus string

const (
	StatusActive      GroupStatus = "Active"
	StatusDeactivated GroupStatus = "Deactivated"
)

// Kind is the variant of a group: a plain group, a channel inside a
// community, or a community.
type Kind string

const (
	KindPlain     Kind = "Group"
	KindChannel   Kind = "Channel"
	KindCommunity Kind = "Community"
)

// Action names an entry in a group's audit log.
type Action string

const (
	ActionAdd        Action = "Add"
	ActionLeave      Action = "Leave"
	ActionRemove     Action = "Remove"
	ActionUpgrade    Action = "Upgrade"
	ActionDowngrade  Action = "Downgrade"
	ActionDeactivate Action = "Deactivate"
	ActionPost       Action = "Post"
	ActionReply      Action = "Reply"
)

func (a Action) Description() string {
	switch a {
	case ActionAdd:
		return "Add member to group"
	case ActionLeave:
		return "Leave group"
	case ActionRemove:
		return "Remove member from group"
	case ActionUpgrade:
		return "Upgrade regular member to admin"
	case ActionDowngrade:
		return "Downgrade admin to regular member"
	case ActionDeactivate:
		return "Deactivated group"
	case ActionPost:
		return "Make post"
	case ActionReply:
		return "Make reply to post"
	}
	return string(a)
}

// ParseAction maps a persisted action name back to an Action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionAdd, ActionLeave, ActionRemove, ActionUpgrade, ActionDowngrade,
		ActionDeactivate, ActionPost, ActionReply:
		return a, true
	}
	return "", false
}

// Capacity limits.
const (
	MinGroupCapacity = 2
	MaxGroupCapacity = 5
	SelfCapacity     = 1
)
