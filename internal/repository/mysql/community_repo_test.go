package mysql

import (
	"strings"
	"testing"

	"yatube/internal/repository/interfaces"

	"github.com/stretchr/testify/assert"
)

func TestPostWhere(t *testing.T) {
	where, args := postWhere(interfaces.PostFilter{})
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = postWhere(interfaces.PostFilter{AuthorID: 3, GroupID: 7})
	assert.Equal(t, " WHERE p.author_id = ? AND p.group_id = ?", where)
	assert.Equal(t, []interface{}{3, 7}, args)

	where, args = postWhere(interfaces.PostFilter{FollowerID: 5})
	assert.Equal(t, " WHERE p.author_id IN (SELECT f.author_id FROM follows f WHERE f.user_id = ?)", where)
	assert.Equal(t, []interface{}{5}, args)
}

func TestPostListQuery(t *testing.T) {
	query, args := postListQuery(interfaces.PostFilter{GroupID: 2}, 10, 20)

	assert.Contains(t, query, "WHERE p.group_id = ?")
	assert.Contains(t, query, "ORDER BY p.created_at DESC, p.id DESC")
	assert.Less(t, strings.Index(query, "WHERE"), strings.Index(query, "ORDER BY"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(query), "LIMIT ? OFFSET ?"))
	assert.Equal(t, []interface{}{2, 10, 20}, args)
}
