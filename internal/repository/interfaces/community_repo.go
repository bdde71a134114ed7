package interfaces

import (
	"context"

	"yatube/internal/model"
)

// PostFilter narrows a post listing. Zero fields are ignored.
type PostFilter struct {
	AuthorID int
	GroupID  int
	// FollowerID keeps posts whose authors FollowerID follows.
	FollowerID int
}

// PostRepository stores posts. Listings are ordered newest first and carry
// the author and group of every post.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id int) error
	FindByID(ctx context.Context, id int) (*model.Post, error)
	Count(ctx context.Context, filter PostFilter) (int, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]*model.Post, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	FindByID(ctx context.Context, id int) (*model.Group, error)
	FindBySlug(ctx context.Context, slug string) (*model.Group, error)
	List(ctx context.Context) ([]*model.Group, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByPost(ctx context.Context, postID int) ([]*model.Comment, error)
}

// FollowRepository keeps at most one row per (user, author) pair.
type FollowRepository interface {
	// Create returns created=false when the pair already exists.
	Create(ctx context.Context, follow *model.Follow) (created bool, err error)
	Delete(ctx context.Context, userID, authorID int) error
	Exists(ctx context.Context, userID, authorID int) (bool, error)
	CountFollowers(ctx context.Context, authorID int) (int, error)
	CountFollowing(ctx context.Context, userID int) (int, error)
}
