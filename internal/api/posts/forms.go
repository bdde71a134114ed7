package posts

import (
	"strconv"

	"yatube/internal/api/form"
	"yatube/internal/model"
)

type postInput struct {
	Text  string `form:"text" binding:"notblank"`
	Group string `form:"group"`
}

type commentInput struct {
	Text string `form:"text" binding:"notblank"`
}

// NewPostForm builds the create/edit form, filled from post when editing.
func NewPostForm(groups []*model.Group, post *model.Post) *form.Form {
	text := form.Char("text", "Post text", true)
	text.Multiline = true
	text.HelpText = "Text of the new post"

	choices := make([]form.Choice, 0, len(groups))
	for _, g := range groups {
		choices = append(choices, form.Choice{Value: strconv.Itoa(g.ID), Label: g.Title})
	}
	group := &form.Field{
		Name:     "group",
		Label:    "Group",
		Kind:     form.KindChoice,
		Choices:  choices,
		HelpText: "Group the post belongs to",
	}

	image := &form.Field{Name: "image", Label: "Image", Kind: form.KindImage}

	f := form.New(text, group, image)
	if post != nil {
		f.SetValue("text", post.Text)
		if post.GroupID != nil {
			f.SetValue("group", strconv.Itoa(*post.GroupID))
		}
		f.SetValue("image", post.Image)
	}
	return f
}

// NewCommentForm is the comment box on the post page.
func NewCommentForm() *form.Form {
	text := form.Char("text", "Comment", true)
	text.Multiline = true
	return form.New(text)
}
