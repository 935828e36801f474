package repositories

import (
	"context"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// BlogRepository defines the interface for blog posts and their comments
type BlogRepository interface {
	// CreatePost stores a post. A duplicate slug yields a conflict error.
	CreatePost(ctx context.Context, post *entities.BlogPost) error

	// GetPostByID retrieves a post by ID
	GetPostByID(ctx context.Context, id int64) (*entities.BlogPost, error)

	// GetPostBySlug retrieves a post by slug
	GetPostBySlug(ctx context.Context, slug string) (*entities.BlogPost, error)

	// ListPublished returns published posts, newest first
	ListPublished(ctx context.Context, limit, offset int) ([]*entities.BlogPost, error)

	// ListByAuthor returns every post by the author regardless of status, newest first
	ListByAuthor(ctx context.Context, authorID int64) ([]*entities.BlogPost, error)

	// UpdatePost updates title, content, slug and status
	UpdatePost(ctx context.Context, post *entities.BlogPost) error

	// DeletePost removes a post and all of its comments
	DeletePost(ctx context.Context, id int64) error

	// IncrementViewCount adds one view and returns the new count
	IncrementViewCount(ctx context.Context, id int64) (int64, error)

	// CreateComment stores a comment and assigns its ID
	CreateComment(ctx context.Context, comment *entities.Comment) error

	// GetComment retrieves a comment by ID
	GetComment(ctx context.Context, id int64) (*entities.Comment, error)

	// ListComments returns the comments on a post in creation order
	ListComments(ctx context.Context, postID int64) ([]*entities.Comment, error)

	// DeleteComment removes a comment and every reply beneath it
	DeleteComment(ctx context.Context, id int64) error
}
