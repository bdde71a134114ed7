package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL DEFAULT '',
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS post_groups (
		id SERIAL PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		slug VARCHAR(50) NOT NULL UNIQUE,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id SERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		author_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_id INT NULL REFERENCES post_groups(id) ON DELETE SET NULL,
		image VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id SERIAL PRIMARY KEY,
		post_id INT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		author_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		author_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uniq_follows_user_author UNIQUE (user_id, author_id),
		CONSTRAINT follows_not_self CHECK (user_id <> author_id)
	)`,
}

// NewPool connects to Postgres and applies the schema.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

var (
	_ interfaces.UserRepository    = (*userRepository)(nil)
	_ interfaces.GroupRepository   = (*groupRepository)(nil)
	_ interfaces.PostRepository    = (*postRepository)(nil)
	_ interfaces.CommentRepository = (*commentRepository)(nil)
	_ interfaces.FollowRepository  = (*followRepository)(nil)
)

type userRepository struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) *userRepository { return &userRepository{pool} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		util.Logger.Error("failed to create user", zap.Error(err), zap.String("username", user.Username))
		return err
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `username = $1`, username)
}

func (r *userRepository) findOne(ctx context.Context, cond string, arg any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, first_name, last_name, password_hash, created_at
		FROM users WHERE `+cond+` LIMIT 1`, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type groupRepository struct{ pool *pgxpool.Pool }

func NewGroupRepository(pool *pgxpool.Pool) *groupRepository { return &groupRepository{pool} }

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO post_groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		group.Title, group.Slug, group.Description,
	).Scan(&group.ID)
}

func (r *groupRepository) FindByID(ctx context.Context, id int) (*model.Group, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *groupRepository) FindBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return r.findOne(ctx, `slug = $1`, slug)
}

func (r *groupRepository) findOne(ctx context.Context, cond string, arg any) (*model.Group, error) {
	var g model.Group
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, slug, description FROM post_groups WHERE `+cond+` LIMIT 1`, arg,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*model.Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, slug, description FROM post_groups ORDER BY title`)
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

const postSelect = `
	SELECT p.id, p.text, p.author_id, p.group_id, p.image, p.created_at,
	       u.username, u.first_name, u.last_name,
	       g.id, g.title, g.slug, g.description
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN post_groups g ON g.id = p.group_id`

type postRepository struct{ pool *pgxpool.Pool }

func NewPostRepository(pool *pgxpool.Pool) *postRepository { return &postRepository{pool} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO posts (text, author_id, group_id, image, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		post.Text, post.AuthorID, post.GroupID, post.Image, post.CreatedAt,
	).Scan(&post.ID)
	if err != nil {
		util.Logger.Error("failed to create post", zap.Error(err))
		return err
	}
	util.Logger.Info("post created", zap.Int("post_id", post.ID))
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET text = $1, group_id = $2, image = $3 WHERE id = $4`,
		post.Text, post.GroupID, post.Image, post.ID)
	if err != nil {
		util.Logger.Error("failed to update post", zap.Error(err), zap.Int("post_id", post.ID))
	}
	return err
}

func (r *postRepository) Delete(ctx context.Context, id int) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		util.Logger.Error("failed to delete post", zap.Error(err), zap.Int("post_id", id))
		return err
	}
	util.Logger.Info("post deleted", zap.Int("post_id", id))
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id int) (*model.Post, error) {
	post, err := scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) Count(ctx context.Context, filter interfaces.PostFilter) (int, error) {
	where, args := postWhere(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	return total, err
}

func (r *postRepository) List(ctx context.Context, filter interfaces.PostFilter, limit, offset int) ([]*model.Post, error) {
	query, args := postListQuery(filter, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
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
func postListQuery(filter interfaces.PostFilter, limit, offset int) (string, []any) {
	where, args := postWhere(filter)
	n := len(args)
	query := postSelect + where + fmt.Sprintf(`
	ORDER BY p.created_at DESC, p.id DESC
	LIMIT $%d OFFSET $%d`, n+1, n+2)
	return query, append(args, limit, offset)
}

func postWhere(filter interfaces.PostFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.AuthorID != 0 {
		add("p.author_id = $%d", filter.AuthorID)
	}
	if filter.GroupID != 0 {
		add("p.group_id = $%d", filter.GroupID)
	}
	if filter.FollowerID != 0 {
		add("p.author_id IN (SELECT f.author_id FROM follows f WHERE f.user_id = $%d)", filter.FollowerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		post    model.Post
		author  model.User
		groupID *int
		gID     *int
		gTitle  *string
		gSlug   *string
		gDesc   *string
	)
	err := row.Scan(
		&post.ID, &post.Text, &post.AuthorID, &groupID, &post.Image, &post.CreatedAt,
		&author.Username, &author.FirstName, &author.LastName,
		&gID, &gTitle, &gSlug, &gDesc,
	)
	if err != nil {
		return nil, err
	}

	author.ID = post.AuthorID
	post.Author = &author
	post.GroupID = groupID
	if gID != nil {
		post.Group = &model.Group{ID: *gID, Title: deref(gTitle), Slug: deref(gSlug), Description: deref(gDesc)}
	}
	return &post, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type commentRepository struct{ pool *pgxpool.Pool }

func NewCommentRepository(pool *pgxpool.Pool) *commentRepository { return &commentRepository{pool} }

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (post_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		util.Logger.Error("failed to create comment", zap.Error(err), zap.Int("post_id", comment.PostID))
	}
	return err
}

func (r *commentRepository) ListByPost(ctx context.Context, postID int) ([]*model.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.text, c.created_at,
		       u.username, u.first_name, u.last_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var c model.Comment
		var author model.User
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt,
			&author.Username, &author.FirstName, &author.LastName); err != nil {
			return nil, err
		}
		author.ID = c.AuthorID
		c.Author = &author
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

type followRepository struct{ pool *pgxpool.Pool }

func NewFollowRepository(pool *pgxpool.Pool) *followRepository { return &followRepository{pool} }

func (r *followRepository) Create(ctx context.Context, follow *model.Follow) (bool, error) {
	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO follows (user_id, author_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, author_id) DO NOTHING
		RETURNING id`,
		follow.UserID, follow.AuthorID, follow.CreatedAt,
	).Scan(&follow.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		util.Logger.Error("failed to create follow", zap.Error(err))
		return false, err
	}
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM follows WHERE user_id = $1 AND author_id = $2`, userID, authorID)
	return err
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`,
		userID, authorID).Scan(&exists)
	return exists, err
}

func (r *followRepository) CountFollowers(ctx context.Context, authorID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM follows WHERE author_id = $1`, authorID).Scan(&n)
	return n, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
