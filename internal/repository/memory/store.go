// Package memory keeps the content store in process memory. It backs
// DB_DRIVER=memory and the HTTP test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
)

type followKey struct {
	userID, authorID int
}

type Store struct {
	mu       sync.RWMutex
	seq      map[string]int
	users    map[int]model.User
	groups   map[int]model.Group
	posts    map[int]model.Post
	comments map[int]model.Comment
	follows  map[followKey]model.Follow
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		seq:      make(map[string]int),
		users:    make(map[int]model.User),
		groups:   make(map[int]model.Group),
		posts:    make(map[int]model.Post),
		comments: make(map[int]model.Comment),
		follows:  make(map[followKey]model.Follow),
		now:      time.Now,
	}
}

func (s *Store) Users() interfaces.UserRepository       { return &userRepository{s} }
func (s *Store) Groups() interfaces.GroupRepository     { return &groupRepository{s} }
func (s *Store) Posts() interfaces.PostRepository       { return &postRepository{s} }
func (s *Store) Comments() interfaces.CommentRepository { return &commentRepository{s} }
func (s *Store) Follows() interfaces.FollowRepository   { return &followRepository{s} }

// next must be called with mu held for writing.
func (s *Store) next(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return fmt.Errorf("duplicate username %q", user.Username)
		}
	}
	user.ID = r.s.next("users")
	user.CreatedAt = r.s.stamp(user.CreatedAt)
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id int) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

type groupRepository struct{ s *Store }

func (r *groupRepository) Create(_ context.Context, group *model.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("duplicate slug %q", group.Slug)
		}
	}
	group.ID = r.s.next("groups")
	r.s.groups[group.ID] = *group
	return nil
}

func (r *groupRepository) FindByID(_ context.Context, id int) (*model.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *groupRepository) FindBySlug(_ context.Context, slug string) (*model.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.groups {
		if g.Slug == slug {
			g := g
			return &g, nil
		}
	}
	return nil, nil
}

func (r *groupRepository) List(_ context.Context) ([]*model.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	groups := make([]*model.Group, 0, len(r.s.groups))
	for _, g := range r.s.groups {
		g := g
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

type postRepository struct{ s *Store }

func (r *postRepository) Create(_ context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	post.ID = r.s.next("posts")
	post.CreatedAt = r.s.stamp(post.CreatedAt)
	r.s.posts[post.ID] = detach(*post)
	return nil
}

func (r *postRepository) Update(_ context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.posts[post.ID]
	if !ok {
		return nil
	}
	stored.Text = post.Text
	stored.GroupID = copyInt(post.GroupID)
	stored.Image = post.Image
	r.s.posts[post.ID] = stored
	return nil
}

func (r *postRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.posts, id)
	for cid, c := range r.s.comments {
		if c.PostID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

func (r *postRepository) FindByID(_ context.Context, id int) (*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return r.attach(p), nil
}

func (r *postRepository) Count(_ context.Context, filter interfaces.PostFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.filtered(filter)), nil
}

func (r *postRepository) List(_ context.Context, filter interfaces.PostFilter, limit, offset int) ([]*model.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.filtered(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	posts := make([]*model.Post, 0, end-offset)
	for _, p := range matched[offset:end] {
		posts = append(posts, r.attach(p))
	}
	return posts, nil
}

func (r *postRepository) filtered(filter interfaces.PostFilter) []model.Post {
	var out []model.Post
	for _, p := range r.s.posts {
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.GroupID != 0 && !p.InGroup(filter.GroupID) {
			continue
		}
		if filter.FollowerID != 0 {
			if _, ok := r.s.follows[followKey{filter.FollowerID, p.AuthorID}]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// attach must be called with mu held.
func (r *postRepository) attach(p model.Post) *model.Post {
	p.GroupID = copyInt(p.GroupID)
	if u, ok := r.s.users[p.AuthorID]; ok {
		p.Author = &u
	}
	if p.GroupID != nil {
		if g, ok := r.s.groups[*p.GroupID]; ok {
			p.Group = &g
		}
	}
	return &p
}

func detach(p model.Post) model.Post {
	p.GroupID = copyInt(p.GroupID)
	p.Author = nil
	p.Group = nil
	return p
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

type commentRepository struct{ s *Store }

func (r *commentRepository) Create(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	comment.ID = r.s.next("comments")
	comment.CreatedAt = r.s.stamp(comment.CreatedAt)
	stored := *comment
	stored.Author = nil
	r.s.comments[comment.ID] = stored
	return nil
}

func (r *commentRepository) ListByPost(_ context.Context, postID int) ([]*model.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var comments []*model.Comment
	for _, c := range r.s.comments {
		if c.PostID != postID {
			continue
		}
		c := c
		if u, ok := r.s.users[c.AuthorID]; ok {
			c.Author = &u
		}
		comments = append(comments, &c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

type followRepository struct{ s *Store }

func (r *followRepository) Create(_ context.Context, follow *model.Follow) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := followKey{follow.UserID, follow.AuthorID}
	if _, ok := r.s.follows[key]; ok {
		return false, nil
	}
	follow.ID = r.s.next("follows")
	follow.CreatedAt = r.s.stamp(follow.CreatedAt)
	r.s.follows[key] = *follow
	return true, nil
}

func (r *followRepository) Delete(_ context.Context, userID, authorID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.follows, followKey{userID, authorID})
	return nil
}

func (r *followRepository) Exists(_ context.Context, userID, authorID int) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.follows[followKey{userID, authorID}]
	return ok, nil
}

func (r *followRepository) CountFollowers(_ context.Context, authorID int) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for k := range r.s.follows {
		if k.authorID == authorID {
			n++
		}
	}
	return n, nil
}

func (r *followRepository) CountFollowing(_ context.Context, userID int) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for k := range r.s.follows {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}
