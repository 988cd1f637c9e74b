package community

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/mindwell/internal/platform/db"
	"github.com/mindwell/mindwell/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed community repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const postCols = `id, user_id, circle_id, title, content, upvotes, view_count, is_deleted, created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.UserID, &p.CircleID, &p.Title, &p.Content,
		&p.Upvotes, &p.ViewCount, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) CreatePost(ctx context.Context, p *Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO community_posts (id, user_id, circle_id, title, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.CircleID, p.Title, p.Content)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	return nil
}

func (r *repoPG) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return scanPost(r.conn(ctx).QueryRow(ctx,
		`SELECT `+postCols+` FROM community_posts WHERE id = $1 AND NOT is_deleted`, id))
}

func (r *repoPG) ListPosts(ctx context.Context, circleID *uuid.UUID, p pagination.Params) ([]*Post, int64, error) {
	where := `NOT is_deleted`
	args := []interface{}{}
	if circleID != nil {
		where += ` AND circle_id = $1`
		args = append(args, *circleID)
	}

	var total int64
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM community_posts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting posts: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+postCols+` FROM community_posts WHERE `+where+
			` ORDER BY created_at DESC `+p.SQL(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.UserID, &post.CircleID, &post.Title, &post.Content,
			&post.Upvotes, &post.ViewCount, &post.IsDeleted, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, &post)
	}
	return posts, total, rows.Err()
}

func (r *repoPG) SoftDeletePost(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE community_posts
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE community_posts SET view_count = view_count + 1
		WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("incrementing view count: %w", err)
	}
	return nil
}

func (r *repoPG) UpvotePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE community_posts SET upvotes = upvotes + 1, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("upvoting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const commentCols = `id, post_id, user_id, content, upvotes, is_deleted, created_at, updated_at`

func (r *repoPG) CreateComment(ctx context.Context, c *Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO community_comments (id, post_id, user_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		c.ID, c.PostID, c.UserID, c.Content)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func (r *repoPG) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var c Comment
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+commentCols+` FROM community_comments WHERE id = $1 AND NOT is_deleted`, id).
		Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.Upvotes, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+commentCols+` FROM community_comments
		 WHERE post_id = $1 AND NOT is_deleted
		 ORDER BY created_at ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.Upvotes,
			&c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (r *repoPG) SoftDeleteComment(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE community_comments
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetReaction(ctx context.Context, userID string, postID, commentID *uuid.UUID) (*Reaction, error) {
	var re Reaction
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, post_id, comment_id, type, created_at
		FROM community_reactions
		WHERE user_id = $1
		  AND post_id IS NOT DISTINCT FROM $2
		  AND comment_id IS NOT DISTINCT FROM $3`,
		userID, postID, commentID).
		Scan(&re.ID, &re.UserID, &re.PostID, &re.CommentID, &re.Type, &re.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &re, err
}

func (r *repoPG) InsertReaction(ctx context.Context, re *Reaction) error {
	if re.ID == uuid.Nil {
		re.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO community_reactions (id, user_id, post_id, comment_id, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		re.ID, re.UserID, re.PostID, re.CommentID, re.Type)
	if err := row.Scan(&re.CreatedAt); err != nil {
		return fmt.Errorf("inserting reaction: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateReactionType(ctx context.Context, id uuid.UUID, reactionType string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE community_reactions SET type = $1 WHERE id = $2`, reactionType, id)
	if err != nil {
		return fmt.Errorf("updating reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteReaction(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM community_reactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) JoinCircle(ctx context.Context, m *CircleMembership) error {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO circle_memberships (circle_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (circle_id, user_id) DO UPDATE SET circle_id = EXCLUDED.circle_id
		RETURNING joined_at`,
		m.CircleID, m.UserID)
	if err := row.Scan(&m.JoinedAt); err != nil {
		return fmt.Errorf("joining circle: %w", err)
	}
	return nil
}

func (r *repoPG) LeaveCircle(ctx context.Context, circleID uuid.UUID, userID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM circle_memberships WHERE circle_id = $1 AND user_id = $2`, circleID, userID)
	if err != nil {
		return fmt.Errorf("leaving circle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListCircleMembers(ctx context.Context, circleID uuid.UUID) ([]*CircleMembership, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT circle_id, user_id, joined_at
		FROM circle_memberships
		WHERE circle_id = $1
		ORDER BY joined_at ASC`, circleID)
	if err != nil {
		return nil, fmt.Errorf("listing circle members: %w", err)
	}
	defer rows.Close()

	var members []*CircleMembership
	for rows.Next() {
		var m CircleMembership
		if err := rows.Scan(&m.CircleID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
