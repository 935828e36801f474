package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// BlogAdapter implements repositories.BlogRepository
type BlogAdapter struct {
	s *Store
}

var _ repositories.BlogRepository = (*BlogAdapter)(nil)

func (a *BlogAdapter) CreatePost(ctx context.Context, post *entities.BlogPost) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.users[post.AuthorID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", post.AuthorID))
	}
	if a.slugTakenLocked(post.Slug, 0) {
		return apperrors.NewConflictError(fmt.Sprintf("slug %q already exists", post.Slug))
	}
	now := a.s.timestamp()
	post.ID = a.s.id("posts")
	post.ViewCount = 0
	post.CreatedAt = now
	post.UpdatedAt = now
	a.s.posts[post.ID] = copyPost(post)
	return nil
}

func (a *BlogAdapter) GetPostByID(ctx context.Context, id int64) (*entities.BlogPost, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	p, ok := a.s.posts[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", id))
	}
	return copyPost(p), nil
}

func (a *BlogAdapter) GetPostBySlug(ctx context.Context, slug string) (*entities.BlogPost, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	for _, p := range a.s.posts {
		if p.Slug == slug {
			return copyPost(p), nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("post %q not found", slug))
}

func (a *BlogAdapter) ListPublished(ctx context.Context, limit, offset int) ([]*entities.BlogPost, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []*entities.BlogPost{}
	for _, p := range a.s.posts {
		if p.IsPublished() {
			out = append(out, copyPost(p))
		}
	}
	sortPostsNewestFirst(out)
	return paginate(out, limit, offset), nil
}

func (a *BlogAdapter) ListByAuthor(ctx context.Context, authorID int64) ([]*entities.BlogPost, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []*entities.BlogPost{}
	for _, p := range a.s.posts {
		if p.AuthorID == authorID {
			out = append(out, copyPost(p))
		}
	}
	sortPostsNewestFirst(out)
	return out, nil
}

func (a *BlogAdapter) UpdatePost(ctx context.Context, post *entities.BlogPost) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	existing, ok := a.s.posts[post.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", post.ID))
	}
	if a.slugTakenLocked(post.Slug, post.ID) {
		return apperrors.NewConflictError(fmt.Sprintf("slug %q already exists", post.Slug))
	}
	existing.Title = post.Title
	existing.Content = post.Content
	existing.Slug = post.Slug
	existing.Status = post.Status
	existing.UpdatedAt = a.s.timestamp()

	*post = *copyPost(existing)
	return nil
}

func (a *BlogAdapter) DeletePost(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.posts[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", id))
	}
	a.s.deletePostLocked(id)
	return nil
}

func (a *BlogAdapter) IncrementViewCount(ctx context.Context, id int64) (int64, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	p, ok := a.s.posts[id]
	if !ok {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", id))
	}
	p.ViewCount++
	return p.ViewCount, nil
}

func (a *BlogAdapter) CreateComment(ctx context.Context, comment *entities.Comment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.posts[comment.PostID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", comment.PostID))
	}
	if comment.ParentID != nil {
		parent, ok := a.s.comments[*comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return apperrors.NewValidationError("parent comment does not belong to this post")
		}
	}
	now := a.s.timestamp()
	comment.ID = a.s.id("comments")
	comment.CreatedAt = now
	comment.UpdatedAt = now
	a.s.comments[comment.ID] = copyComment(comment)
	return nil
}

func (a *BlogAdapter) GetComment(ctx context.Context, id int64) (*entities.Comment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	c, ok := a.s.comments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("comment %d not found", id))
	}
	return copyComment(c), nil
}

func (a *BlogAdapter) ListComments(ctx context.Context, postID int64) ([]*entities.Comment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	out := []*entities.Comment{}
	for _, c := range a.s.comments {
		if c.PostID == postID {
			out = append(out, copyComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (a *BlogAdapter) DeleteComment(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.comments[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("comment %d not found", id))
	}
	a.s.deleteCommentLocked(id)
	return nil
}

func (a *BlogAdapter) slugTakenLocked(slug string, selfID int64) bool {
	for _, p := range a.s.posts {
		if p.ID != selfID && p.Slug == slug {
			return true
		}
	}
	return false
}

func sortPostsNewestFirst(posts []*entities.BlogPost) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
