package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/util"

	"go.uber.org/zap"
)

const postSelect = `
        SELECT p.id, p.text, p.author_id, p.group_id, p.image, p.created_at,
               u.username, u.first_name, u.last_name,
               g.id, g.title, g.slug, g.description
        FROM posts p
        JOIN users u ON u.id = p.author_id
        LEFT JOIN post_groups g ON g.id = p.group_id`

var (
	_ interfaces.PostRepository    = (*postRepository)(nil)
	_ interfaces.GroupRepository   = (*groupRepository)(nil)
	_ interfaces.CommentRepository = (*commentRepository)(nil)
	_ interfaces.FollowRepository  = (*followRepository)(nil)
	_ interfaces.UserRepository    = (*userRepository)(nil)
)

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *postRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	query := `INSERT INTO posts (text, author_id, group_id, image, created_at)
              VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, post.Text, post.AuthorID, post.GroupID, post.Image, post.CreatedAt)
	if err != nil {
		util.Logger.Error("failed to create post", zap.Error(err))
		return err
	}

	postID, err := result.LastInsertId()
	if err != nil {
		util.Logger.Error("failed to read new post id", zap.Error(err))
		return err
	}
	post.ID = int(postID)

	util.Logger.Info("post created", zap.Int("post_id", post.ID))
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	query := `UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, post.Text, post.GroupID, post.Image, post.ID)
	if err != nil {
		util.Logger.Error("failed to update post", zap.Error(err), zap.Int("post_id", post.ID))
		return err
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		util.Logger.Error("failed to delete post", zap.Error(err), zap.Int("post_id", id))
		return err
	}

	util.Logger.Info("post deleted", zap.Int("post_id", id))
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id int) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

func (r *postRepository) Count(ctx context.Context, filter interfaces.PostFilter) (int, error) {
	where, args := postWhere(filter)
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	return total, err
}

func (r *postRepository) List(ctx context.Context, filter interfaces.PostFilter, limit, offset int) ([]*model.Post, error) {
	query, args := postListQuery(filter, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// postListQuery selects one page of posts, newest first.
func postListQuery(filter interfaces.PostFilter, limit, offset int) (string, []interface{}) {
	where, args := postWhere(filter)
	query := postSelect + where + `
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT ? OFFSET ?`
	return query, append(args, limit, offset)
}

func postWhere(filter interfaces.PostFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter.AuthorID != 0 {
		conds = append(conds, "p.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.GroupID != 0 {
		conds = append(conds, "p.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.FollowerID != 0 {
		conds = append(conds, "p.author_id IN (SELECT f.author_id FROM follows f WHERE f.user_id = ?)")
		args = append(args, filter.FollowerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		post      model.Post
		author    model.User
		groupID   sql.NullInt64
		gID       sql.NullInt64
		gTitle    sql.NullString
		gSlug     sql.NullString
		gDescribe sql.NullString
	)
	err := s.Scan(
		&post.ID, &post.Text, &post.AuthorID, &groupID, &post.Image, &post.CreatedAt,
		&author.Username, &author.FirstName, &author.LastName,
		&gID, &gTitle, &gSlug, &gDescribe,
	)
	if err != nil {
		return nil, err
	}

	author.ID = post.AuthorID
	post.Author = &author
	if groupID.Valid {
		id := int(groupID.Int64)
		post.GroupID = &id
	}
	if gID.Valid {
		post.Group = &model.Group{
			ID:          int(gID.Int64),
			Title:       gTitle.String,
			Slug:        gSlug.String,
			Description: gDescribe.String,
		}
	}
	return &post, nil
}

type groupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO post_groups (title, slug, description) VALUES (?, ?, ?)`,
		group.Title, group.Slug, group.Description)
	if err != nil {
		util.Logger.Error("failed to create group", zap.Error(err), zap.String("slug", group.Slug))
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	group.ID = int(id)
	return nil
}

func (r *groupRepository) FindByID(ctx context.Context, id int) (*model.Group, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *groupRepository) FindBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return r.findOne(ctx, `WHERE slug = ?`, slug)
}

func (r *groupRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Group, error) {
	var g model.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM post_groups `+where+` LIMIT 1`, arg,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, slug, description FROM post_groups ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

type commentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *commentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (post_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt)
	if err != nil {
		util.Logger.Error("failed to create comment",
			zap.Error(err),
			zap.Int("post_id", comment.PostID))
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	comment.ID = int(id)
	util.Logger.Info("comment created", zap.Int("comment_id", comment.ID), zap.Int("post_id", comment.PostID))
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID int) ([]*model.Comment, error) {
	query := `
        SELECT c.id, c.post_id, c.author_id, c.text, c.created_at,
               u.username, u.first_name, u.last_name
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.post_id = ?
        ORDER BY c.created_at ASC, c.id ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var comment model.Comment
		var author model.User
		err := rows.Scan(
			&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Text, &comment.CreatedAt,
			&author.Username, &author.FirstName, &author.LastName,
		)
		if err != nil {
			return nil, err
		}
		author.ID = comment.AuthorID
		comment.Author = &author
		comments = append(comments, &comment)
	}
	return comments, rows.Err()
}

type followRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) *followRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *model.Follow) (bool, error) {
	util.Logger.Info("creating follow", zap.Int("user_id", follow.UserID), zap.Int("author_id", follow.AuthorID))

	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO follows (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		follow.UserID, follow.AuthorID, follow.CreatedAt)
	if err != nil {
		util.Logger.Error("failed to create follow", zap.Error(err))
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, err
	}
	follow.ID = int(id)
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		util.Logger.Error("failed to delete follow", zap.Error(err))
		return err
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM follows
            WHERE user_id = ? AND author_id = ?
        )`, userID, authorID).Scan(&exists)
	return exists, err
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE author_id = ?`, authorID).Scan(&count)
	return count, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}
