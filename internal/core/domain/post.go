package domain

import "fmt"

// NoReply is what ReplyFor returns for top-level posts and announcements.
// No post ever has this id.
const NoReply int64 = -1

// Post is an immutable message in a group's conversation. Announcements are
// posts made in a community; they never reply to anything and nothing may
// reply to them.
type Post struct {
	id           int64
	text         string
	author       *User
	group        *Group
	parent       *Post
	announcement bool
}

func newPost(id int64, text string, author *User, g *Group, parent *Post, announcement bool) *Post {
	if id <= 0 {
		id = postIDs.Next()
	} else {
		postIDs.AdvanceTo(id)
	}
	if announcement {
		parent = nil
	}
	return &Post{id: id, text: text, author: author, group: g, parent: parent, announcement: announcement}
}

func (p *Post) ID() int64             { return p.id }
func (p *Post) Text() string          { return p.text }
func (p *Post) Author() *User         { return p.author }
func (p *Post) Group() *Group         { return p.group }
func (p *Post) Parent() *Post         { return p.parent }
func (p *Post) IsAnnouncement() bool  { return p.announcement }
func (p *Post) PostedBy() PhoneNumber { return p.author.Phone() }

// ReplyFor returns the id of the post this one answers, or NoReply.
func (p *Post) ReplyFor() int64 {
	if p.announcement || p.parent == nil {
		return NoReply
	}
	return p.parent.id
}

func (p *Post) String() string {
	s := fmt.Sprintf("(ID: %d, Posted by: %s) %s", p.id, p.author.DisplayName(), p.text)
	if id := p.ReplyFor(); id != NoReply {
		s = fmt.Sprintf("\t(Is Reply for message with ID: %d)\n%s", id, s)
	}
	return s
}

// Verify checks that the author is a current or historical member of the
// owning group and that a reply does not answer an announcement.
func (p *Post) Verify() bool {
	if p.author == nil || p.group == nil {
		return false
	}
	if p.parent != nil && (p.announcement || p.parent.announcement) {
		return false
	}
	if p.announcement && p.group.kind != KindCommunity {
		return false
	}
	return p.group.hasMember(p.author) || p.group.hasHistory(p.author)
}
