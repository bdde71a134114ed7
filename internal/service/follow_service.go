package service

import (
	"context"

	"yatube/internal/errors"
	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/util"

	"go.uber.org/zap"
)

// FollowNotifier is told about every new follow.
type FollowNotifier interface {
	NotifyNewFollower(ctx context.Context, author, follower *model.User) error
}

// FollowService manages subscriptions between users.
type FollowService struct {
	follows  interfaces.FollowRepository
	users    interfaces.UserRepository
	notifier FollowNotifier
}

// NewFollowService builds the service. notifier may be nil.
func NewFollowService(follows interfaces.FollowRepository, users interfaces.UserRepository, notifier FollowNotifier) *FollowService {
	return &FollowService{follows: follows, users: users, notifier: notifier}
}

// Follow subscribes user to username. Following yourself and following
// twice are silently ignored.
func (s *FollowService) Follow(ctx context.Context, user *model.User, username string) (*model.User, error) {
	author, err := s.author(ctx, user, username)
	if err != nil {
		return nil, err
	}
	if author.ID == user.ID {
		util.Logger.Info("self follow ignored", zap.Int("user_id", user.ID))
		return author, nil
	}

	created, err := s.follows.Create(ctx, &model.Follow{UserID: user.ID, AuthorID: author.ID})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "create follow", err)
	}
	if !created {
		return author, nil
	}

	util.Logger.Info("follow created", zap.Int("user_id", user.ID), zap.Int("author_id", author.ID))
	if s.notifier != nil {
		if err := s.notifier.NotifyNewFollower(ctx, author, user); err != nil {
			util.Logger.Warn("follower notification failed", zap.Error(err), zap.Int("author_id", author.ID))
		}
	}
	return author, nil
}

// Unfollow removes the subscription if there is one.
func (s *FollowService) Unfollow(ctx context.Context, user *model.User, username string) (*model.User, error) {
	author, err := s.author(ctx, user, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Delete(ctx, user.ID, author.ID); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "delete follow", err)
	}
	return author, nil
}

// IsFollowing is false for anonymous viewers.
func (s *FollowService) IsFollowing(ctx context.Context, user *model.User, authorID int) (bool, error) {
	if user == nil {
		return false, nil
	}
	ok, err := s.follows.Exists(ctx, user.ID, authorID)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "check follow", err)
	}
	return ok, nil
}

// Counts returns how many users follow userID and how many userID follows.
func (s *FollowService) Counts(ctx context.Context, userID int) (followers, following int, err error) {
	if followers, err = s.follows.CountFollowers(ctx, userID); err != nil {
		return 0, 0, errors.Wrap(errors.ErrDatabase, "count followers", err)
	}
	if following, err = s.follows.CountFollowing(ctx, userID); err != nil {
		return 0, 0, errors.Wrap(errors.ErrDatabase, "count following", err)
	}
	return followers, following, nil
}

func (s *FollowService) author(ctx context.Context, user *model.User, username string) (*model.User, error) {
	if user == nil {
		return nil, errors.New(errors.ErrUnauthorized, "login required")
	}
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "find user", err)
	}
	if author == nil {
		return nil, errors.New(errors.ErrUserNotFound, "user not found")
	}
	return author, nil
}
