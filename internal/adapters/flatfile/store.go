package flatfile

import (
	"CommunicationHub/internal/core/ports"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// fileStore keeps the snapshot in one sectioned, line-oriented text file.
type fileStore struct {
	path string
	log  zerolog.Logger
}

var _ ports.SnapshotStore = (*fileStore)(nil)

// NewStore returns a store backed by the file at path. The file is created
// on the first Save.
func NewStore(path string, baseLogger *zerolog.Logger) ports.SnapshotStore {
	return &fileStore{
		path: path,
		log:  baseLogger.With().Str("component", "flatfile_store").Str("path", path).Logger(),
	}
}

// Save writes the snapshot to a temporary file and renames it over the
// target, so a crash never leaves a half-written file behind.
func (s *fileStore) Save(ctx context.Context, snap *ports.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	writeSnapshot(w, snap)
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("could not replace %s: %w", s.path, err)
	}

	s.log.Debug().Int("users", len(snap.Users)).Int("groups", len(snap.Groups)).Msg("Snapshot written")
	return nil
}

func writeSnapshot(w io.Writer, snap *ports.Snapshot) {
	line := func(fields ...string) { fmt.Fprintln(w, joinFields(fields...)) }
	i64 := func(n int64) string { return strconv.FormatInt(n, 10) }

	fmt.Fprintln(w, sectionPrefix+sectionUsers)
	for _, u := range snap.Users {
		line(escape(u.FirstName), escape(u.LastName), u.Phone)
	}

	fmt.Fprintln(w, sectionPrefix+sectionGroups)
	for _, g := range snap.Groups {
		line(i64(g.ID), g.Type, escape(g.Name), g.CreatorPhone, strconv.Itoa(g.Capacity), g.Status, i64(g.ParentID))
	}

	fmt.Fprintln(w, sectionPrefix+sectionMemberships)
	for _, m := range snap.Memberships {
		line(i64(m.GroupID), m.Phone, strconv.FormatBool(m.IsAdmin))
	}

	fmt.Fprintln(w, sectionPrefix+sectionContacts)
	for _, c := range snap.Contacts {
		line(c.Owner, c.Contact)
	}

	fmt.Fprintln(w, sectionPrefix+sectionPosts)
	for _, p := range snap.Posts {
		line(i64(p.ID), i64(p.GroupID), p.PosterPhone, i64(p.ReplyToID), strconv.FormatBool(p.IsAnnouncement), escape(p.Text))
	}

	fmt.Fprintln(w, sectionPrefix+sectionAudit)
	for _, a := range snap.Audit {
		line(i64(a.GroupID), a.Action, a.ActorPhone, a.SubjectPhone, i64(a.PostID))
	}
}

// Load reads the file. A missing file is an empty snapshot; lines that do
// not parse are logged and skipped.
func (s *fileStore) Load(ctx context.Context) (*ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info().Msg("No snapshot file yet")
		return &ports.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", s.path, err)
	}
	defer f.Close()

	snap, err := s.read(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	return snap, nil
}

func (s *fileStore) read(r io.Reader) (*ports.Snapshot, error) {
	snap := &ports.Snapshot{}
	section := ""
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), sectionPrefix) {
			section = strings.ToUpper(strings.TrimSpace(line[len(sectionPrefix):]))
			continue
		}
		if err := parseLine(snap, section, line); err != nil {
			s.log.Warn().Err(err).Int("line", lineNo).Str("section", section).Msg("Skipping malformed line")
		}
	}
	return snap, scanner.Err()
}

var errFieldCount = errors.New("wrong number of fields")

func parseLine(snap *ports.Snapshot, section, line string) error {
	switch section {
	case sectionUsers:
		f := splitFields(line, 3)
		if len(f) != 3 {
			return errFieldCount
		}
		snap.Users = append(snap.Users, ports.UserRecord{FirstName: f[0], LastName: f[1], Phone: f[2]})

	case sectionGroups:
		f := splitFields(line, 7)
		if len(f) != 7 {
			return errFieldCount
		}
		var g ports.GroupRecord
		var err error
		if g.ID, err = strconv.ParseInt(f[0], 10, 64); err != nil {
			return err
		}
		if g.Capacity, err = strconv.Atoi(f[4]); err != nil {
			return err
		}
		if g.ParentID, err = strconv.ParseInt(f[6], 10, 64); err != nil {
			return err
		}
		g.Type, g.Name, g.CreatorPhone, g.Status = f[1], f[2], f[3], f[5]
		snap.Groups = append(snap.Groups, g)

	case sectionMemberships:
		f := splitFields(line, 3)
		if len(f) != 3 {
			return errFieldCount
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			return err
		}
		admin, err := strconv.ParseBool(f[2])
		if err != nil {
			return err
		}
		snap.Memberships = append(snap.Memberships, ports.MembershipRecord{GroupID: id, Phone: f[1], IsAdmin: admin})

	case sectionContacts:
		f := splitFields(line, 2)
		if len(f) != 2 {
			return errFieldCount
		}
		snap.Contacts = append(snap.Contacts, ports.ContactRecord{Owner: f[0], Contact: f[1]})

	case sectionPosts:
		f := splitFields(line, 6)
		if len(f) != 6 {
			return errFieldCount
		}
		var p ports.PostRecord
		var err error
		if p.ID, err = strconv.ParseInt(f[0], 10, 64); err != nil {
			return err
		}
		if p.GroupID, err = strconv.ParseInt(f[1], 10, 64); err != nil {
			return err
		}
		if p.ReplyToID, err = strconv.ParseInt(f[3], 10, 64); err != nil {
			return err
		}
		if p.IsAnnouncement, err = strconv.ParseBool(f[4]); err != nil {
			return err
		}
		p.PosterPhone, p.Text = f[2], f[5]
		snap.Posts = append(snap.Posts, p)

	case sectionAudit:
		f := splitFields(line, 5)
		if len(f) != 5 {
			return errFieldCount
		}
		var a ports.AuditRecord
		var err error
		if a.GroupID, err = strconv.ParseInt(f[0], 10, 64); err != nil {
			return err
		}
		if a.PostID, err = strconv.ParseInt(f[4], 10, 64); err != nil {
			return err
		}
		a.Action, a.ActorPhone, a.SubjectPhone = f[1], f[2], f[3]
		snap.Audit = append(snap.Audit, a)

	default:
		return errors.New("line outside a known section")
	}
	return nil
}
