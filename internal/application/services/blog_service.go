package services

import (
	"context"
	"strings"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/policy"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// CreatePostInput carries a new post. Slug is derived from the title when empty
// and Status defaults to draft.
type CreatePostInput struct {
	Title   string
	Content string
	Slug    string
	Status  string
}

// UpdatePostInput holds the post fields to change; nil fields are left as they are
type UpdatePostInput struct {
	Title   *string
	Content *string
	Slug    *string
	Status  *string
}

// BlogService handles posts and threaded comments
type BlogService struct {
	repo repositories.BlogRepository
}

// NewBlogService creates a new blog service
func NewBlogService(repo repositories.BlogRepository) *BlogService {
	return &BlogService{repo: repo}
}

// ListPublished returns published posts, newest first
func (s *BlogService) ListPublished(ctx context.Context, limit, offset int) ([]*entities.BlogPost, error) {
	return s.repo.ListPublished(ctx, limit, offset)
}

// ListMine returns every post the acting identity wrote
func (s *BlogService) ListMine(ctx context.Context, actor policy.Actor) ([]*entities.BlogPost, error) {
	return s.repo.ListByAuthor(ctx, actor.UserID)
}

// GetByID returns a post visible to the viewer. viewer is nil for anonymous reads.
func (s *BlogService) GetByID(ctx context.Context, viewer *policy.Actor, id int64) (*entities.BlogPost, error) {
	post, err := s.repo.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, post)
}

// GetBySlug returns a post visible to the viewer by its slug
func (s *BlogService) GetBySlug(ctx context.Context, viewer *policy.Actor, slug string) (*entities.BlogPost, error) {
	post, err := s.repo.GetPostBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return s.view(ctx, viewer, post)
}

// Create stores a post authored by the acting identity
func (s *BlogService) Create(ctx context.Context, actor policy.Actor, in CreatePostInput) (*entities.BlogPost, error) {
	if !policy.CanCreatePost(actor) {
		return nil, apperrors.NewForbiddenError("authentication required to write posts")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidationError("content is required")
	}

	status := entities.PostStatusDraft
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := entities.ParsePostStatus(in.Status)
		if !ok {
			return nil, apperrors.NewValidationError("status must be draft, published or archived")
		}
		status = parsed
	}

	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = title
	}
	slug := entities.Slugify(source)
	if slug == "" {
		return nil, apperrors.NewValidationError("slug must contain letters or digits")
	}

	post := &entities.BlogPost{
		Title:    title,
		Content:  in.Content,
		AuthorID: actor.UserID,
		Slug:     slug,
		Status:   status,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update changes a post written by the acting identity
func (s *BlogService) Update(ctx context.Context, actor policy.Actor, id int64, in UpdatePostInput) (*entities.BlogPost, error) {
	post, err := s.repo.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdatePost(actor, post) {
		return nil, apperrors.NewForbiddenError("you can only edit your own posts")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty")
		}
		post.Title = title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, apperrors.NewValidationError("content cannot be empty")
		}
		post.Content = *in.Content
	}
	if in.Slug != nil {
		slug := entities.Slugify(*in.Slug)
		if slug == "" {
			return nil, apperrors.NewValidationError("slug must contain letters or digits")
		}
		post.Slug = slug
	}
	if in.Status != nil {
		status, ok := entities.ParsePostStatus(*in.Status)
		if !ok {
			return nil, apperrors.NewValidationError("status must be draft, published or archived")
		}
		post.Status = status
	}

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post and its comments. The author or an admin may delete.
func (s *BlogService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	post, err := s.repo.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeletePost(actor, post) {
		return apperrors.NewForbiddenError("you can only delete your own posts")
	}
	return s.repo.DeletePost(ctx, id)
}

// ListComments returns a visible post's comments in creation order
func (s *BlogService) ListComments(ctx context.Context, viewer *policy.Actor, postID int64) ([]*entities.Comment, error) {
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, postID)
}

// CommentTree returns a visible post's comments arranged as reply trees
func (s *BlogService) CommentTree(ctx context.Context, viewer *policy.Actor, postID int64) ([]*entities.CommentNode, error) {
	comments, err := s.ListComments(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	return entities.BuildCommentTree(comments), nil
}

// AddComment stores a comment on a visible post, optionally as a reply
func (s *BlogService) AddComment(ctx context.Context, actor policy.Actor, postID int64, content string, parentID *int64) (*entities.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required")
	}
	if _, err := s.visiblePost(ctx, &actor, postID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.repo.GetComment(ctx, *parentID)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		if parent == nil || parent.PostID != postID {
			return nil, apperrors.NewValidationError("parent comment does not belong to this post")
		}
	}

	comment := &entities.Comment{
		Content:  content,
		AuthorID: actor.UserID,
		PostID:   postID,
		ParentID: parentID,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment and its replies. The author or an admin may delete.
func (s *BlogService) DeleteComment(ctx context.Context, actor policy.Actor, id int64) error {
	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteComment(actor, comment) {
		return apperrors.NewForbiddenError("you can only delete your own comments")
	}
	return s.repo.DeleteComment(ctx, id)
}

func (s *BlogService) visiblePost(ctx context.Context, viewer *policy.Actor, id int64) (*entities.BlogPost, error) {
	post, err := s.repo.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewPost(viewer, post) {
		return nil, apperrors.NewNotFoundError("post not found")
	}
	return post, nil
}

// view applies the visibility rule and counts a read by anyone but the author
func (s *BlogService) view(ctx context.Context, viewer *policy.Actor, post *entities.BlogPost) (*entities.BlogPost, error) {
	if !policy.CanViewPost(viewer, post) {
		return nil, apperrors.NewNotFoundError("post not found")
	}
	if post.IsPublished() && (viewer == nil || !viewer.Owns(post.AuthorID)) {
		count, err := s.repo.IncrementViewCount(ctx, post.ID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Int64("post_id", post.ID).Msg("failed to count post view")
		} else {
			post.ViewCount = count
		}
	}
	return post, nil
}
