package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/repositories"
	apperrors "github.com/rudzz/marketplace/pkg/errors"
)

// UserAdapter implements repositories.UserRepository
type UserAdapter struct {
	s *Store
}

var _ repositories.UserRepository = (*UserAdapter)(nil)

func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if err := a.checkUniqueLocked(user, 0); err != nil {
		return err
	}
	now := a.s.timestamp()
	user.ID = a.s.id("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	a.s.users[user.ID] = copyUser(user)
	return nil
}

func (a *UserAdapter) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	u, ok := a.s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	return copyUser(u), nil
}

func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	for _, u := range a.s.users {
		if u.Email != nil && *u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (a *UserAdapter) GetByPhone(ctx context.Context, phone string) (*entities.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	for _, u := range a.s.users {
		if u.Phone != nil && *u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (a *UserAdapter) List(ctx context.Context, limit, offset int) ([]*entities.User, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	users := make([]*entities.User, 0, len(a.s.users))
	for _, u := range a.s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, limit, offset), nil
}

func (a *UserAdapter) Update(ctx context.Context, user *entities.User) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	existing, ok := a.s.users[user.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", user.ID))
	}
	if err := a.checkUniqueLocked(user, user.ID); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = a.s.timestamp()
	a.s.users[user.ID] = copyUser(user)
	return nil
}

func (a *UserAdapter) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	u, ok := a.s.users[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}
	u.LastLogin = &at
	return nil
}

func (a *UserAdapter) Delete(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.users[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", id))
	}

	// withdrawals are applied to copies and committed once all succeed
	adjusted := make(map[int64]*entities.Provider)
	var withdrawn []int64
	for rid, r := range a.s.reviews {
		if r.CustomerID != id {
			continue
		}
		withdrawn = append(withdrawn, rid)
		p, ok := adjusted[r.ProviderID]
		if !ok {
			current, exists := a.s.providers[r.ProviderID]
			if !exists {
				continue
			}
			p = copyProvider(current)
			adjusted[r.ProviderID] = p
		}
		if err := p.ApplyReviewDeleted(r.Rating); err != nil {
			return err
		}
	}
	now := a.s.timestamp()
	for pid, p := range adjusted {
		p.UpdatedAt = now
		a.s.providers[pid] = p
	}
	for _, rid := range withdrawn {
		delete(a.s.reviews, rid)
	}
	for pid, p := range a.s.providers {
		if p.UserID == id {
			a.s.deleteProviderLocked(pid)
		}
	}
	for mid, m := range a.s.messages {
		if m.IsParticipant(id) {
			delete(a.s.messages, mid)
		}
	}
	for cid, c := range a.s.comments {
		if c.AuthorID == id {
			a.s.deleteCommentLocked(cid)
		}
	}
	for pid, p := range a.s.posts {
		if p.AuthorID == id {
			a.s.deletePostLocked(pid)
		}
	}
	delete(a.s.users, id)
	return nil
}

func (a *UserAdapter) checkUniqueLocked(user *entities.User, selfID int64) error {
	for _, u := range a.s.users {
		if u.ID == selfID {
			continue
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return apperrors.NewConflictError("email already registered")
		}
		if user.Phone != nil && u.Phone != nil && *u.Phone == *user.Phone {
			return apperrors.NewConflictError("phone already registered")
		}
	}
	return nil
}
