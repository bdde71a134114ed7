package posts

import (
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"yatube/internal/api/form"
	"yatube/internal/errors"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/service"
	"yatube/internal/storage"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	follows  *service.FollowService
	storage  storage.Uploader
}

func NewPostHandler(posts *service.PostService, comments *service.CommentService,
	follows *service.FollowService, uploader storage.Uploader) *PostHandler {
	return &PostHandler{
		posts:    posts,
		comments: comments,
		follows:  follows,
		storage:  uploader,
	}
}

// Index is the home listing of every post.
func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.posts.Index(c.Request.Context(), pageNumber(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	util.RenderHTML(c, http.StatusOK, "posts/index.html", gin.H{"page_obj": page})
}

func (h *PostHandler) GroupPosts(c *gin.Context) {
	group, page, err := h.posts.GroupPosts(c.Request.Context(), c.Param("slug"), pageNumber(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	util.RenderHTML(c, http.StatusOK, "posts/group_list.html", gin.H{
		"group":    group,
		"page_obj": page,
	})
}

func (h *PostHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	author, page, err := h.posts.ProfilePosts(ctx, c.Param("username"), pageNumber(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	following, err := h.follows.IsFollowing(ctx, util.CurrentUser(c), author.ID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	followers, followingCount, err := h.follows.Counts(ctx, author.ID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	util.RenderHTML(c, http.StatusOK, "posts/profile.html", gin.H{
		"author":          author,
		"page_obj":        page,
		"following":       following,
		"followers_count": followers,
		"following_count": followingCount,
	})
}

func (h *PostHandler) PostDetail(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.GetPost(ctx, id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	comments, err := h.comments.Comments(ctx, id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	count, err := h.posts.CountPosts(ctx, interfaces.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	util.RenderHTML(c, http.StatusOK, "posts/post_detail.html", gin.H{
		"post":        post,
		"comments":    comments,
		"posts_count": count,
		"form":        NewCommentForm(),
	})
}

// PostCreate shows the empty post form.
func (h *PostHandler) PostCreate(c *gin.Context) {
	groups, err := h.posts.Groups(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	h.renderPostForm(c, NewPostForm(groups, nil), nil)
}

// PostCreateSubmit saves a new post and redirects to it.
func (h *PostHandler) PostCreateSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	user := util.CurrentUser(c)

	post := &model.Post{}
	f, ok := h.bindPost(c, post)
	if !ok {
		return
	}
	if !f.Valid() {
		h.renderPostForm(c, f, nil)
		return
	}

	if err := h.posts.CreatePost(ctx, user, post); err != nil {
		if f.AddError(err) {
			h.renderPostForm(c, f, nil)
			return
		}
		errors.HandleError(c, err)
		return
	}

	util.Logger.Info("post published", zap.Int("post_id", post.ID), zap.Int("author_id", user.ID))
	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}

// PostEdit shows the form of a post to its author.
func (h *PostHandler) PostEdit(c *gin.Context) {
	post := middleware.EditablePost(c)
	groups, err := h.posts.Groups(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	h.renderPostForm(c, NewPostForm(groups, post), post)
}

// PostEditSubmit saves the edited post. Without a new upload the old
// image stays.
func (h *PostHandler) PostEditSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	existing := middleware.EditablePost(c)

	post := &model.Post{ID: existing.ID, Image: existing.Image}
	f, ok := h.bindPost(c, post)
	if !ok {
		return
	}
	if !f.Valid() {
		h.renderPostForm(c, f, existing)
		return
	}

	if err := h.posts.UpdatePost(ctx, util.CurrentUser(c), post); err != nil {
		if f.AddError(err) {
			h.renderPostForm(c, f, existing)
			return
		}
		errors.HandleError(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}

func (h *PostHandler) PostDelete(c *gin.Context) {
	user := util.CurrentUser(c)
	post, err := h.posts.DeletePost(c.Request.Context(), user, middleware.EditablePost(c).ID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, post.Author.ProfileURL())
}

// AddComment stores a comment. An empty comment is dropped and the user
// is sent back to the post either way.
func (h *PostHandler) AddComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var input commentInput
	if err := c.ShouldBind(&input); err == nil {
		_, err = h.comments.AddComment(c.Request.Context(), util.CurrentUser(c), id, input.Text)
		if err != nil && !errors.Is(err, errors.ErrValidation) {
			errors.HandleError(c, err)
			return
		}
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", id))
}

// FollowIndex lists the posts of followed authors.
func (h *PostHandler) FollowIndex(c *gin.Context) {
	page, err := h.posts.FollowFeed(c.Request.Context(), util.CurrentUser(c), pageNumber(c))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	util.RenderHTML(c, http.StatusOK, "posts/follow.html", gin.H{"page_obj": page})
}

func (h *PostHandler) ProfileFollow(c *gin.Context) {
	author, err := h.follows.Follow(c.Request.Context(), util.CurrentUser(c), c.Param("username"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, author.ProfileURL())
}

func (h *PostHandler) ProfileUnfollow(c *gin.Context) {
	author, err := h.follows.Unfollow(c.Request.Context(), util.CurrentUser(c), c.Param("username"))
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, author.ProfileURL())
}

// bindPost reads the submitted form into post and stores an uploaded
// image. ok is false when the response has already been written.
func (h *PostHandler) bindPost(c *gin.Context, post *model.Post) (*form.Form, bool) {
	ctx := c.Request.Context()
	groups, err := h.posts.Groups(ctx)
	if err != nil {
		errors.HandleError(c, err)
		return nil, false
	}

	var input postInput
	bindErr := c.ShouldBind(&input)

	f := NewPostForm(groups, nil)
	f.SetValue("text", input.Text)
	f.SetValue("group", input.Group)
	f.SetValue("image", post.Image)
	if bindErr != nil && !f.AddError(bindErr) {
		util.Logger.Warn("post form could not be bound", zap.Error(bindErr))
		f.Errors = append(f.Errors, "The submitted form could not be read.")
	}

	post.Text = input.Text
	post.GroupID = nil
	if g := strings.TrimSpace(input.Group); g != "" {
		id, err := strconv.Atoi(g)
		if err != nil {
			f.SetError("group", "Select a valid choice.")
		} else {
			post.GroupID = &id
		}
	}

	file, err := c.FormFile("image")
	switch {
	case stderrors.Is(err, http.ErrMissingFile), stderrors.Is(err, http.ErrNotMultipart):
		return f, true
	case err != nil:
		f.SetError("image", "The uploaded file could not be read.")
		return f, true
	}
	if err := storage.CheckImage(file); err != nil {
		f.SetError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return f, true
	}
	if !f.Valid() {
		return f, true
	}
	if err := h.posts.ValidatePost(ctx, post); err != nil {
		if f.AddError(err) {
			return f, true
		}
		errors.HandleError(c, err)
		return nil, false
	}

	image, err := h.upload(c, file)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrStorage, "store image", err))
		return nil, false
	}
	post.Image = image
	return f, true
}

func (h *PostHandler) upload(c *gin.Context, file *multipart.FileHeader) (string, error) {
	path := storage.PostImagePath(file.Filename)
	image, err := h.storage.UploadFile(c.Request.Context(), file, path)
	if err != nil {
		util.Logger.Error("image upload failed", zap.Error(err), zap.String("path", path))
		return "", err
	}
	return image, nil
}

func (h *PostHandler) renderPostForm(c *gin.Context, f *form.Form, post *model.Post) {
	util.RenderHTML(c, http.StatusOK, "posts/create_post.html", gin.H{
		"form":    f,
		"is_edit": post != nil,
		"post":    post,
	})
}

// pageNumber reads ?page=; anything unusable means the first page.
func pageNumber(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return n
}

func postID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("post_id"))
	if err != nil {
		errors.NotFound(c)
		return 0, false
	}
	return id, true
}
