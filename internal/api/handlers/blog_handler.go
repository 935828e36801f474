package handlers

import (
	"net/http"
	"strconv"

	"github.com/rudzz/marketplace/internal/application/services"
)

// BlogHandler handles blog posts and their comments
type BlogHandler struct {
	service *services.BlogService
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(service *services.BlogService) *BlogHandler {
	return &BlogHandler{service: service}
}

type createPostRequest struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"max=100000"`
	Slug    string `json:"slug" validate:"max=200"`
	Status  string `json:"status" validate:"omitempty,oneof=draft published"`
}

type updatePostRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content" validate:"omitempty,max=100000"`
	Slug    *string `json:"slug" validate:"omitempty,max=200"`
	Status  *string `json:"status" validate:"omitempty,oneof=draft published"`
}

type createCommentRequest struct {
	Content  string `json:"content" validate:"max=5000"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,min=1"`
}

// ListPosts handles GET /api/blog/posts
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	posts, err := h.service.ListPublished(r.Context(), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"posts":  posts,
		"count":  len(posts),
		"limit":  limit,
		"offset": offset,
	})
}

// ListMyPosts handles GET /api/blog/posts/mine
func (h *BlogHandler) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	posts, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPost handles GET /api/blog/posts/{id}
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	post, err := h.service.GetByID(r.Context(), viewer(r), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, post)
}

// GetPostBySlug handles GET /api/blog/by-slug/{slug}
func (h *BlogHandler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetBySlug(r.Context(), viewer(r), r.PathValue("slug"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/blog/posts
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.Create(r.Context(), actor, services.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Slug:    req.Slug,
		Status:  req.Status,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/blog/posts/{id}
func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.Update(r.Context(), actor, id, services.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Slug:    req.Slug,
		Status:  req.Status,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/blog/posts/{id}
func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListComments handles GET /api/blog/posts/{id}/comments. Replies are nested
// unless tree=false is given.
func (h *BlogHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tree := true
	if raw := r.URL.Query().Get("tree"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "tree must be true or false")
			return
		}
		tree = parsed
	}

	if tree {
		nodes, err := h.service.CommentTree(r.Context(), viewer(r), postID)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"comments": nodes,
			"count":    len(nodes),
		})
		return
	}

	comments, err := h.service.ListComments(r.Context(), viewer(r), postID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"count":    len(comments),
	})
}

// CreateComment handles POST /api/blog/posts/{id}/comments
func (h *BlogHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.service.AddComment(r.Context(), actor, postID, req.Content, req.ParentID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/{id}
func (h *BlogHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteComment(r.Context(), actor, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
