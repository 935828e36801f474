// Package memory implements the repositories on process memory. It backs
// STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
)

// Store holds every table behind one lock so that multi-row mutations
// (review plus provider aggregate, cascades) are atomic.
type Store struct {
	mu sync.RWMutex

	nextID map[string]int64
	now    func() time.Time

	users     map[int64]*entities.User
	providers map[int64]*entities.Provider
	reviews   map[int64]*entities.Review
	messages  map[int64]*entities.Message
	posts     map[int64]*entities.BlogPost
	comments  map[int64]*entities.Comment
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nextID:    make(map[string]int64),
		now:       time.Now,
		users:     make(map[int64]*entities.User),
		providers: make(map[int64]*entities.Provider),
		reviews:   make(map[int64]*entities.Review),
		messages:  make(map[int64]*entities.Message),
		posts:     make(map[int64]*entities.BlogPost),
		comments:  make(map[int64]*entities.Comment),
	}
}

// Users returns the user repository view
func (s *Store) Users() *UserAdapter { return &UserAdapter{s: s} }

// Providers returns the provider repository view
func (s *Store) Providers() *ProviderAdapter { return &ProviderAdapter{s: s} }

// Reviews returns the review repository view
func (s *Store) Reviews() *ReviewAdapter { return &ReviewAdapter{s: s} }

// Messages returns the message repository view
func (s *Store) Messages() *MessageAdapter { return &MessageAdapter{s: s} }

// Blog returns the blog repository view
func (s *Store) Blog() *BlogAdapter { return &BlogAdapter{s: s} }

// Ping always succeeds
func (s *Store) Ping() error { return nil }

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyUser(u *entities.User) *entities.User {
	c := *u
	if u.Email != nil {
		v := *u.Email
		c.Email = &v
	}
	if u.Phone != nil {
		v := *u.Phone
		c.Phone = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

func copyProvider(p *entities.Provider) *entities.Provider {
	c := *p
	c.Services = append([]string(nil), p.Services...)
	return &c
}

func copyReview(r *entities.Review) *entities.Review {
	c := *r
	return &c
}

func copyMessage(m *entities.Message) *entities.Message {
	c := *m
	if m.ReadAt != nil {
		v := *m.ReadAt
		c.ReadAt = &v
	}
	return &c
}

func copyPost(p *entities.BlogPost) *entities.BlogPost {
	c := *p
	return &c
}

func copyComment(cm *entities.Comment) *entities.Comment {
	c := *cm
	if cm.ParentID != nil {
		v := *cm.ParentID
		c.ParentID = &v
	}
	return &c
}

// deleteReviewLocked withdraws a review from its provider and removes it
func (s *Store) deleteReviewLocked(r *entities.Review) error {
	if p, ok := s.providers[r.ProviderID]; ok {
		if err := p.ApplyReviewDeleted(r.Rating); err != nil {
			return err
		}
		p.UpdatedAt = s.timestamp()
	}
	delete(s.reviews, r.ID)
	return nil
}

// deleteProviderLocked removes a listing and its reviews
func (s *Store) deleteProviderLocked(id int64) {
	for rid, r := range s.reviews {
		if r.ProviderID == id {
			delete(s.reviews, rid)
		}
	}
	delete(s.providers, id)
}

// deletePostLocked removes a post and its comments
func (s *Store) deletePostLocked(id int64) {
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.posts, id)
}

// deleteCommentLocked removes a comment and every reply beneath it
func (s *Store) deleteCommentLocked(id int64) {
	pending := []int64{id}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := s.comments[current]; !ok {
			continue
		}
		delete(s.comments, current)
		for cid, c := range s.comments {
			if c.ParentID != nil && *c.ParentID == current {
				pending = append(pending, cid)
			}
		}
	}
}
