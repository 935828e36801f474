package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	"github.com/rudzz/marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

var postColumns = []interface{}{
	"id", "title", "content", "author_id", "slug", "status", "view_count", "created_at", "updated_at",
}

var commentColumns = []interface{}{
	"id", "content", "author_id", "post_id", "parent_id", "created_at", "updated_at",
}

// BlogAdapter implements the BlogRepository interface
type BlogAdapter struct {
	client *postgres.Client
	now    func() time.Time
}

var _ repositories.BlogRepository = (*BlogAdapter)(nil)

// NewBlogAdapter creates a new blog adapter
func NewBlogAdapter(client *postgres.Client) *BlogAdapter {
	return &BlogAdapter{client: client, now: utcNow}
}

// CreatePost stores a post
func (a *BlogAdapter) CreatePost(ctx context.Context, post *entities.BlogPost) error {
	now := a.now()
	query, args, err := dialect.Insert("blog_posts").Prepared(true).Rows(goqu.Record{
		"title":      post.Title,
		"content":    post.Content,
		"author_id":  post.AuthorID,
		"slug":       post.Slug,
		"status":     string(post.Status),
		"view_count": 0,
		"created_at": now,
		"updated_at": now,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&post.ID); err != nil {
		return translateError(err, "failed to create post")
	}
	post.ViewCount = 0
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

// GetPostByID retrieves a post by ID
func (a *BlogAdapter) GetPostByID(ctx context.Context, id int64) (*entities.BlogPost, error) {
	return a.getPost(ctx, goqu.Ex{"id": id})
}

// GetPostBySlug retrieves a post by slug
func (a *BlogAdapter) GetPostBySlug(ctx context.Context, slug string) (*entities.BlogPost, error) {
	return a.getPost(ctx, goqu.Ex{"slug": slug})
}

func (a *BlogAdapter) getPost(ctx context.Context, where goqu.Ex) (*entities.BlogPost, error) {
	query, args, err := dialect.From("blog_posts").Prepared(true).
		Select(postColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	post := &entities.BlogPost{}
	if err := a.client.DB().GetContext(ctx, post, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("post not found")
		}
		return nil, translateError(err, "failed to get post")
	}
	return post, nil
}

// ListPublished returns published posts, newest first
func (a *BlogAdapter) ListPublished(ctx context.Context, limit, offset int) ([]*entities.BlogPost, error) {
	ds := dialect.From("blog_posts").Prepared(true).
		Select(postColumns...).
		Where(goqu.Ex{"status": string(entities.PostStatusPublished)}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return a.selectPosts(ctx, pageOf(ds, limit, offset))
}

// ListByAuthor returns every post by the author, newest first
func (a *BlogAdapter) ListByAuthor(ctx context.Context, authorID int64) ([]*entities.BlogPost, error) {
	ds := dialect.From("blog_posts").Prepared(true).
		Select(postColumns...).
		Where(goqu.Ex{"author_id": authorID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return a.selectPosts(ctx, ds)
}

func (a *BlogAdapter) selectPosts(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.BlogPost, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	posts := []*entities.BlogPost{}
	if err := a.client.DB().SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, translateError(err, "failed to list posts")
	}
	return posts, nil
}

// UpdatePost updates title, content, slug and status
func (a *BlogAdapter) UpdatePost(ctx context.Context, post *entities.BlogPost) error {
	post.UpdatedAt = a.now()
	query, args, err := dialect.Update("blog_posts").Prepared(true).Set(goqu.Record{
		"title":      post.Title,
		"content":    post.Content,
		"slug":       post.Slug,
		"status":     string(post.Status),
		"updated_at": post.UpdatedAt,
	}).Where(goqu.Ex{"id": post.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execOne(ctx, query, args, "failed to update post", fmt.Sprintf("post %d not found", post.ID))
}

// DeletePost removes a post; comments go with it through ON DELETE CASCADE
func (a *BlogAdapter) DeletePost(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete("blog_posts").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	return a.execOne(ctx, query, args, "failed to delete post", fmt.Sprintf("post %d not found", id))
}

// IncrementViewCount adds one view and returns the new count
func (a *BlogAdapter) IncrementViewCount(ctx context.Context, id int64) (int64, error) {
	query, args, err := dialect.Update("blog_posts").Prepared(true).
		Set(goqu.Record{"view_count": goqu.L("view_count + 1")}).
		Where(goqu.Ex{"id": id}).
		Returning("view_count").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	var count int64
	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.NewNotFoundError(fmt.Sprintf("post %d not found", id))
		}
		return 0, translateError(err, "failed to count view")
	}
	return count, nil
}

// CreateComment stores a comment. A reply's parent must sit on the same post.
func (a *BlogAdapter) CreateComment(ctx context.Context, comment *entities.Comment) error {
	if comment.ParentID != nil {
		parent, err := a.GetComment(ctx, *comment.ParentID)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}
		if parent == nil || parent.PostID != comment.PostID {
			return apperrors.NewValidationError("parent comment does not belong to this post")
		}
	}

	now := a.now()
	var parentID sql.NullInt64
	if comment.ParentID != nil {
		parentID = sql.NullInt64{Int64: *comment.ParentID, Valid: true}
	}
	query, args, err := dialect.Insert("comments").Prepared(true).Rows(goqu.Record{
		"content":    comment.Content,
		"author_id":  comment.AuthorID,
		"post_id":    comment.PostID,
		"parent_id":  parentID,
		"created_at": now,
		"updated_at": now,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowxContext(ctx, query, args...).Scan(&comment.ID); err != nil {
		return translateError(err, "failed to create comment")
	}
	comment.CreatedAt = now
	comment.UpdatedAt = now
	return nil
}

// GetComment retrieves a comment by ID
func (a *BlogAdapter) GetComment(ctx context.Context, id int64) (*entities.Comment, error) {
	query, args, err := dialect.From("comments").Prepared(true).
		Select(commentColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	comment := &entities.Comment{}
	if err := a.client.DB().GetContext(ctx, comment, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("comment %d not found", id))
		}
		return nil, translateError(err, "failed to get comment")
	}
	return comment, nil
}

// ListComments returns the comments on a post in creation order
func (a *BlogAdapter) ListComments(ctx context.Context, postID int64) ([]*entities.Comment, error) {
	query, args, err := dialect.From("comments").Prepared(true).
		Select(commentColumns...).
		Where(goqu.Ex{"post_id": postID}).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	comments := []*entities.Comment{}
	if err := a.client.DB().SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, translateError(err, "failed to list comments")
	}
	return comments, nil
}

// DeleteComment removes a comment; replies go with it through ON DELETE CASCADE
func (a *BlogAdapter) DeleteComment(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete("comments").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	return a.execOne(ctx, query, args, "failed to delete comment", fmt.Sprintf("comment %d not found", id))
}

func (a *BlogAdapter) execOne(ctx context.Context, query string, args []interface{}, failure, notFound string) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, failure)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	return affectedOne(rows, notFound)
}
