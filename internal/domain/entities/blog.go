package entities

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// PostStatus is the publication state of a blog post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// ParsePostStatus maps a string to a PostStatus
func ParsePostStatus(value string) (PostStatus, bool) {
	switch PostStatus(strings.ToLower(strings.TrimSpace(value))) {
	case PostStatusDraft:
		return PostStatusDraft, true
	case PostStatusPublished:
		return PostStatusPublished, true
	case PostStatusArchived:
		return PostStatusArchived, true
	}
	return "", false
}

// BlogPost is an article written by a user
type BlogPost struct {
	ID        int64      `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	AuthorID  int64      `json:"author_id" db:"author_id"`
	Slug      string     `json:"slug" db:"slug"`
	Status    PostStatus `json:"status" db:"status"`
	ViewCount int64      `json:"view_count" db:"view_count"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPublished reports whether the post is publicly visible
func (p *BlogPost) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// Comment is a reply on a blog post, optionally nested under another comment
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	PostID    int64     `json:"post_id" db:"post_id"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CommentNode is a comment with its replies resolved
type CommentNode struct {
	*Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildCommentTree arranges comments into parent/reply trees. Comments whose
// parent is absent become roots. Comments that sit on a parent cycle are
// promoted to roots at the point the cycle is detected so every comment
// appears exactly once.
func BuildCommentTree(comments []*Comment) []*CommentNode {
	ordered := make([]*Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	byID := make(map[int64]*Comment, len(ordered))
	for _, c := range ordered {
		byID[c.ID] = c
	}

	children := make(map[int64][]*Comment)
	var roots []*Comment
	for _, c := range ordered {
		if c.ParentID == nil || *c.ParentID == c.ID {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	visited := make(map[int64]bool, len(ordered))
	var build func(c *Comment) *CommentNode
	build = func(c *Comment) *CommentNode {
		visited[c.ID] = true
		node := &CommentNode{Comment: c, Replies: []*CommentNode{}}
		for _, child := range children[c.ID] {
			if visited[child.ID] {
				continue
			}
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	tree := make([]*CommentNode, 0, len(roots))
	for _, root := range roots {
		if !visited[root.ID] {
			tree = append(tree, build(root))
		}
	}
	for _, c := range ordered {
		if !visited[c.ID] {
			tree = append(tree, build(c))
		}
	}
	return tree
}

// Slugify derives a URL slug from free text: lowercase ASCII letters and
// digits separated by single hyphens.
func Slugify(value string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
