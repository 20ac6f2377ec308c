package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/estately/internal/models"
)

// MemoryStore keeps users and listings in process. It backs DB_DRIVER=memory
// and the test suites.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	listings map[string]models.Listing
	now      func() time.Time

	// cascadeHook runs between the user and listing deletes of a cascade on
	// staged copies; a non-nil error aborts the cascade with nothing applied.
	cascadeHook func(userID string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[string]models.User{},
		listings: map[string]models.Listing{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func cloneListing(l models.Listing) models.Listing {
	l.ImageURLs = append([]string(nil), l.ImageURLs...)
	if l.DiscountPrice != nil {
		d := *l.DiscountPrice
		l.DiscountPrice = &d
	}
	return l
}

// uniqueLocked reports whether username and email are free for id.
func (s *MemoryStore) uniqueLocked(id, username, email string) bool {
	for _, u := range s.users {
		if u.ID == id {
			continue
		}
		if u.Username == username || u.Email == email {
			return false
		}
	}
	return true
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := s.users[u.ID]; ok || !s.uniqueLocked(u.ID, u.Username, u.Email) {
		return ErrDuplicate
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if !s.uniqueLocked(u.ID, u.Username, u.Email) {
		return ErrDuplicate
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) DeleteUserCascade(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil, ErrNotFound
	}

	users := make(map[string]models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	delete(users, id)

	if s.cascadeHook != nil {
		if err := s.cascadeHook(id); err != nil {
			return nil, err
		}
	}

	var urls []string
	listings := make(map[string]models.Listing, len(s.listings))
	for k, v := range s.listings {
		if v.UserRef == id {
			urls = append(urls, v.ImageURLs...)
			continue
		}
		listings[k] = v
	}

	s.users, s.listings = users, listings
	return urls, nil
}

func (s *MemoryStore) CreateListing(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if _, ok := s.listings[l.ID]; ok {
		return ErrDuplicate
	}
	now := s.now()
	l.CreatedAt, l.UpdatedAt = now, now
	s.listings[l.ID] = cloneListing(*l)
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, id string) (models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	return cloneListing(l), nil
}

func (s *MemoryStore) UpdateListing(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	l.UserRef = cur.UserRef
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = s.now()
	s.listings[l.ID] = cloneListing(*l)
	return nil
}

func (s *MemoryStore) DeleteListing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, userRef string) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Listing{}
	for _, l := range s.listings {
		if l.UserRef == userRef {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SearchListings(_ context.Context, f SearchFilter) ([]models.Listing, int64, error) {
	s.mu.RLock()
	var matched []models.Listing
	for _, l := range s.listings {
		if f.Matches(l) {
			matched = append(matched, cloneListing(l))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return f.Less(matched[i], matched[j]) })
	total := int64(len(matched))

	page := []models.Listing{}
	if f.StartIndex < len(matched) {
		end := len(matched)
		if f.Limit > 0 && f.StartIndex+f.Limit < end {
			end = f.StartIndex + f.Limit
		}
		page = append(page, matched[f.StartIndex:end]...)
	}
	return page, total, nil
}
