package postgres

import (
	"CommunicationHub/internal/core/ports"
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// insertChunk bounds the rows per INSERT so the statement stays under the
// protocol's parameter limit.
const insertChunk = 500

type snapshotRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	sb     squirrel.StatementBuilderType
	log    zerolog.Logger
}

var _ ports.SnapshotStore = (*snapshotRepository)(nil)

// NewSnapshotRepository stores hub snapshots in the hub_* tables. Post
// bodies are encrypted with secSvc.
func NewSnapshotRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.SnapshotStore {
	return &snapshotRepository{
		db:     db,
		secSvc: secSvc,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:    baseLogger.With().Str("component", "snapshot_repo").Logger(),
	}
}

// Save replaces the stored snapshot inside one transaction.
func (r *snapshotRepository) Save(ctx context.Context, snap *ports.Snapshot) error {
	bodies := make([]string, len(snap.Posts))
	for i, p := range snap.Posts {
		enc, err := r.secSvc.EncryptString(p.Text)
		if err != nil {
			r.log.Error().Err(err).Int64("post_id", p.ID).Msg("Failed to encrypt post body")
			return err
		}
		bodies[i] = enc
	}

	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"hub_audit", "hub_posts", "hub_memberships", "hub_contacts", "hub_groups", "hub_users"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("could not clear %s: %w", table, err)
			}
		}

		if err := r.insert(ctx, tx, "hub_users", []string{"phone", "first_name", "last_name"},
			lo.Map(snap.Users, func(u ports.UserRecord, _ int) []any {
				return []any{u.Phone, u.FirstName, u.LastName}
			})); err != nil {
			return err
		}

		if err := r.insert(ctx, tx, "hub_groups", []string{"id", "group_type", "name", "creator_phone", "capacity", "status", "parent_id"},
			lo.Map(snap.Groups, func(g ports.GroupRecord, _ int) []any {
				return []any{g.ID, g.Type, g.Name, g.CreatorPhone, g.Capacity, g.Status, g.ParentID}
			})); err != nil {
			return err
		}

		if err := r.insert(ctx, tx, "hub_memberships", []string{"group_id", "phone", "is_admin"},
			lo.Map(snap.Memberships, func(m ports.MembershipRecord, _ int) []any {
				return []any{m.GroupID, m.Phone, m.IsAdmin}
			})); err != nil {
			return err
		}

		if err := r.insert(ctx, tx, "hub_contacts", []string{"owner_phone", "contact_phone"},
			lo.Map(snap.Contacts, func(c ports.ContactRecord, _ int) []any {
				return []any{c.Owner, c.Contact}
			})); err != nil {
			return err
		}

		if err := r.insert(ctx, tx, "hub_posts", []string{"id", "group_id", "poster_phone", "reply_to_id", "is_announcement", "body"},
			lo.Map(snap.Posts, func(p ports.PostRecord, i int) []any {
				return []any{p.ID, p.GroupID, p.PosterPhone, p.ReplyToID, p.IsAnnouncement, bodies[i]}
			})); err != nil {
			return err
		}

		positions := make(map[int64]int)
		return r.insert(ctx, tx, "hub_audit", []string{"group_id", "seq", "action", "actor_phone", "subject_phone", "post_id"},
			lo.Map(snap.Audit, func(a ports.AuditRecord, _ int) []any {
				pos := positions[a.GroupID]
				positions[a.GroupID]++
				return []any{a.GroupID, pos, a.Action, a.ActorPhone, a.SubjectPhone, a.PostID}
			}))
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to save snapshot")
		return err
	}

	r.log.Info().Int("users", len(snap.Users)).Int("groups", len(snap.Groups)).Msg("Snapshot saved")
	return nil
}

func (r *snapshotRepository) insert(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) error {
	for _, chunk := range lo.Chunk(rows, insertChunk) {
		q := r.sb.Insert(table).Columns(columns...)
		for _, row := range chunk {
			q = q.Values(row...)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert into %s: %w", table, err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("could not insert into %s: %w", table, err)
		}
	}
	return nil
}

// Load reads every table back in replay order. Empty tables yield an
// empty snapshot.
func (r *snapshotRepository) Load(ctx context.Context) (*ports.Snapshot, error) {
	snap := &ports.Snapshot{}
	var err error

	snap.Users, err = selectAll(ctx, r, r.sb.Select("first_name", "last_name", "phone").From("hub_users").OrderBy("phone"),
		func(row pgx.Rows) (ports.UserRecord, error) {
			var u ports.UserRecord
			return u, row.Scan(&u.FirstName, &u.LastName, &u.Phone)
		})
	if err != nil {
		return nil, err
	}

	snap.Groups, err = selectAll(ctx, r, r.sb.Select("id", "group_type", "name", "creator_phone", "capacity", "status", "parent_id").From("hub_groups").OrderBy("id"),
		func(row pgx.Rows) (ports.GroupRecord, error) {
			var g ports.GroupRecord
			return g, row.Scan(&g.ID, &g.Type, &g.Name, &g.CreatorPhone, &g.Capacity, &g.Status, &g.ParentID)
		})
	if err != nil {
		return nil, err
	}

	snap.Memberships, err = selectAll(ctx, r, r.sb.Select("group_id", "phone", "is_admin").From("hub_memberships").OrderBy("group_id", "phone"),
		func(row pgx.Rows) (ports.MembershipRecord, error) {
			var m ports.MembershipRecord
			return m, row.Scan(&m.GroupID, &m.Phone, &m.IsAdmin)
		})
	if err != nil {
		return nil, err
	}

	snap.Contacts, err = selectAll(ctx, r, r.sb.Select("owner_phone", "contact_phone").From("hub_contacts").OrderBy("owner_phone", "contact_phone"),
		func(row pgx.Rows) (ports.ContactRecord, error) {
			var c ports.ContactRecord
			return c, row.Scan(&c.Owner, &c.Contact)
		})
	if err != nil {
		return nil, err
	}

	snap.Posts, err = selectAll(ctx, r, r.sb.Select("id", "group_id", "poster_phone", "reply_to_id", "is_announcement", "body").From("hub_posts").OrderBy("group_id", "id"),
		func(row pgx.Rows) (ports.PostRecord, error) {
			var p ports.PostRecord
			var body string
			if err := row.Scan(&p.ID, &p.GroupID, &p.PosterPhone, &p.ReplyToID, &p.IsAnnouncement, &body); err != nil {
				return p, err
			}
			text, err := r.secSvc.DecryptString(body)
			if err != nil {
				r.log.Error().Err(err).Int64("post_id", p.ID).Msg("Failed to decrypt post body (tampered?)")
				return p, err
			}
			p.Text = text
			return p, nil
		})
	if err != nil {
		return nil, err
	}

	snap.Audit, err = selectAll(ctx, r, r.sb.Select("group_id", "action", "actor_phone", "subject_phone", "post_id").From("hub_audit").OrderBy("group_id", "seq"),
		func(row pgx.Rows) (ports.AuditRecord, error) {
			var a ports.AuditRecord
			return a, row.Scan(&a.GroupID, &a.Action, &a.ActorPhone, &a.SubjectPhone, &a.PostID)
		})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func selectAll[T any](ctx context.Context, r *snapshotRepository, q squirrel.SelectBuilder, scan func(pgx.Rows) (T, error)) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.pool.Query(ctx, sql, args...)
	if err != nil {
		r.log.Error().Err(err).Str("query", sql).Msg("Failed to run select")
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
