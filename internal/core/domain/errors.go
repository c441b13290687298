package domain

import "errors"

// Denial reasons. Public group operations collapse these to a bool;
// Execute and the service layer keep them for logging and tests.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDeactivated       = errors.New("group is deactivated")
	ErrFixedMembership   = errors.New("group type has fixed membership")
	ErrAtCapacity        = errors.New("group is at capacity")
	ErrNotAdmin          = errors.New("actor is not an administrator")
	ErrNotMember         = errors.New("user is not a current member")
	ErrAlreadyMember     = errors.New("user is already a member")
	ErrAlreadyAdmin      = errors.New("user is already an administrator")
	ErrFormerMember      = errors.New("user left or was removed and cannot rejoin")
	ErrCreator           = errors.New("creator cannot leave or be removed")
	ErrSoleAdmin         = errors.New("group must keep at least one administrator")
	ErrNotInCommunity    = errors.New("user is not a member of the parent community")
	ErrPostNotFound      = errors.New("post not found in this conversation")
	ErrRepliesDisabled   = errors.New("communities do not accept replies")
	ErrAnnouncementReply = errors.New("announcements cannot be replied to")
	ErrNotCommunity      = errors.New("group is not a community")
	ErrChannelBlocked    = errors.New("user holds a channel role that cannot be dropped")
)

// Reason returns the short text of a denial, or "" for success.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
