package service

import (
	"context"
	"strings"

	"yatube/internal/errors"
	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/util"

	"go.uber.org/zap"
)

// DefaultPostsPerPage is used when PostService is built with a
// non-positive page size.
const DefaultPostsPerPage = 10

// PostService owns the post lifecycle and every post listing.
type PostService struct {
	posts   interfaces.PostRepository
	groups  interfaces.GroupRepository
	users   interfaces.UserRepository
	perPage int
}

func NewPostService(posts interfaces.PostRepository, groups interfaces.GroupRepository,
	users interfaces.UserRepository, perPage int) *PostService {
	if perPage <= 0 {
		perPage = DefaultPostsPerPage
	}
	return &PostService{posts: posts, groups: groups, users: users, perPage: perPage}
}

// PerPage is the listing page size.
func (s *PostService) PerPage() int { return s.perPage }

// CreatePost stores a new post written by author.
func (s *PostService) CreatePost(ctx context.Context, author *model.User, post *model.Post) error {
	if author == nil {
		return errors.New(errors.ErrUnauthorized, "login required")
	}
	if err := s.ValidatePost(ctx, post); err != nil {
		return err
	}
	post.AuthorID = author.ID

	if err := s.posts.Create(ctx, post); err != nil {
		return errors.Wrap(errors.ErrDatabase, "create post", err)
	}
	return nil
}

// GetEditablePost loads a post for editing. Only the author may edit.
func (s *PostService) GetEditablePost(ctx context.Context, editor *model.User, id int) (*model.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if editor == nil || editor.ID != post.AuthorID {
		return nil, errors.New(errors.ErrForbidden, "only the author can change this post")
	}
	return post, nil
}

// UpdatePost saves the text, group and image of an existing post.
func (s *PostService) UpdatePost(ctx context.Context, editor *model.User, post *model.Post) error {
	existing, err := s.GetEditablePost(ctx, editor, post.ID)
	if err != nil {
		return err
	}
	if err := s.ValidatePost(ctx, post); err != nil {
		return err
	}

	existing.Text = post.Text
	existing.GroupID = post.GroupID
	existing.Image = post.Image
	if err := s.posts.Update(ctx, existing); err != nil {
		return errors.Wrap(errors.ErrDatabase, "update post", err)
	}
	util.Logger.Info("post updated", zap.Int("post_id", existing.ID), zap.Int("editor_id", editor.ID))
	return nil
}

// DeletePost removes a post and its comments. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, editor *model.User, id int) (*model.Post, error) {
	post, err := s.GetEditablePost(ctx, editor, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "delete post", err)
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id int) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find post", err)
	}
	if post == nil {
		return nil, errors.New(errors.ErrPostNotFound, "post not found")
	}
	return post, nil
}

// CountPosts counts the posts matching filter.
func (s *PostService) CountPosts(ctx context.Context, filter interfaces.PostFilter) (int, error) {
	n, err := s.posts.Count(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "count posts", err)
	}
	return n, nil
}

// Index lists every post.
func (s *PostService) Index(ctx context.Context, page int) (*model.Page, error) {
	return s.page(ctx, interfaces.PostFilter{}, page)
}

// GroupPosts lists the posts of the group with the given slug.
func (s *PostService) GroupPosts(ctx context.Context, slug string, page int) (*model.Group, *model.Page, error) {
	group, err := s.groups.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrDatabase, "find group", err)
	}
	if group == nil {
		return nil, nil, errors.New(errors.ErrGroupNotFound, "group not found")
	}
	p, err := s.page(ctx, interfaces.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return group, p, nil
}

// ProfilePosts lists the posts written by username.
func (s *PostService) ProfilePosts(ctx context.Context, username string, page int) (*model.User, *model.Page, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	if author == nil {
		return nil, nil, errors.New(errors.ErrUserNotFound, "user not found")
	}
	p, err := s.page(ctx, interfaces.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return author, p, nil
}

// FollowFeed lists the posts of the authors user follows.
func (s *PostService) FollowFeed(ctx context.Context, user *model.User, page int) (*model.Page, error) {
	if user == nil {
		return nil, errors.New(errors.ErrUnauthorized, "login required")
	}
	return s.page(ctx, interfaces.PostFilter{FollowerID: user.ID}, page)
}

// Groups returns every group, for the group choice field.
func (s *PostService) Groups(ctx context.Context) ([]*model.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list groups", err)
	}
	return groups, nil
}

func (s *PostService) page(ctx context.Context, filter interfaces.PostFilter, number int) (*model.Page, error) {
	total, err := s.CountPosts(ctx, filter)
	if err != nil {
		return nil, err
	}

	p := &model.Page{
		Number:  model.ClampPage(number, s.perPage, total),
		PerPage: s.perPage,
		Total:   total,
	}
	posts, err := s.posts.List(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list posts", err)
	}
	p.Posts = posts
	return p, nil
}

// ValidatePost checks the text and group of post without saving it.
func (s *PostService) ValidatePost(ctx context.Context, post *model.Post) error {
	if strings.TrimSpace(post.Text) == "" {
		return errors.Invalid("text", "this field is required")
	}
	if post.GroupID == nil {
		return nil
	}
	group, err := s.groups.FindByID(ctx, *post.GroupID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "find group", err)
	}
	if group == nil {
		return errors.Invalid("group", "select a valid choice")
	}
	return nil
}

// CommentService handles comments on posts.
type CommentService struct {
	comments interfaces.CommentRepository
	posts    interfaces.PostRepository
}

func NewCommentService(comments interfaces.CommentRepository, posts interfaces.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// AddComment attaches a comment by author to an existing post.
func (s *CommentService) AddComment(ctx context.Context, author *model.User, postID int, text string) (*model.Comment, error) {
	if author == nil {
		return nil, errors.New(errors.ErrUnauthorized, "login required")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find post", err)
	}
	if post == nil {
		return nil, errors.New(errors.ErrPostNotFound, "post not found")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.Invalid("text", "this field is required")
	}

	comment := &model.Comment{PostID: post.ID, AuthorID: author.ID, Text: text, Author: author}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "create comment", err)
	}
	return comment, nil
}

// Comments lists the comments of a post, oldest first.
func (s *CommentService) Comments(ctx context.Context, postID int) ([]*model.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list comments", err)
	}
	return comments, nil
}
