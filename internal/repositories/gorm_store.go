package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rohits-web03/estately/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close(ctx context.Context) error { return closeGorm(ctx, s.db) }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// ids are uuid columns; anything else cannot exist and must not reach Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if !validID(id) {
		return u, ErrNotFound
	}
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return u, translate(err)
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, translate(err)
}

func (s *GormStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// updated_at must be selected explicitly or gorm leaves it untouched.
func updateUserQuery(tx *gorm.DB, u *models.User) *gorm.DB {
	return tx.Model(&models.User{ID: u.ID}).
		Select("username", "email", "password_hash", "photo_url", "updated_at").
		Updates(u)
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	res := updateUserQuery(s.db.WithContext(ctx), u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	// Reload so the caller sees the timestamps the database stored.
	return translate(s.db.WithContext(ctx).Take(u, "id = ?", u.ID).Error)
}

func (s *GormStore) DeleteUserCascade(ctx context.Context, id string) ([]string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var urls []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listings []models.Listing
		if err := tx.Select("image_urls").Where("user_ref = ?", id).Find(&listings).Error; err != nil {
			return fmt.Errorf("load listings: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("user_ref = ?", id).Delete(&models.Listing{}).Error; err != nil {
			return fmt.Errorf("delete listings: %w", err)
		}
		for _, l := range listings {
			urls = append(urls, l.ImageURLs...)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return urls, nil
}

func (s *GormStore) CreateListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return translate(s.db.WithContext(ctx).Create(l).Error)
}

func (s *GormStore) GetListing(ctx context.Context, id string) (models.Listing, error) {
	var l models.Listing
	if !validID(id) {
		return l, ErrNotFound
	}
	err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return l, translate(err)
}

// user_ref is immutable and therefore omitted.
func updateListingQuery(tx *gorm.DB, l *models.Listing) *gorm.DB {
	return tx.Model(&models.Listing{ID: l.ID}).
		Select("title", "description", "address", "type", "parking", "furnished", "offer",
			"bedrooms", "bathrooms", "regular_price", "discount_price", "image_urls", "updated_at").
		Updates(l)
}

func (s *GormStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	res := updateListingQuery(s.db.WithContext(ctx), l)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return translate(s.db.WithContext(ctx).Take(l, "id = ?", l.ID).Error)
}

func (s *GormStore) DeleteListing(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Delete(&models.Listing{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, userRef string) ([]models.Listing, error) {
	listings := []models.Listing{}
	if !validID(userRef) {
		return listings, nil
	}
	err := s.db.WithContext(ctx).Where("user_ref = ?", userRef).Order("updated_at DESC").Find(&listings).Error
	return listings, err
}

var sortColumns = map[SortField]string{
	SortCreatedAt:    "created_at",
	SortRegularPrice: "regular_price",
}

func (s *GormStore) SearchListings(ctx context.Context, f SearchFilter) ([]models.Listing, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Listing{}).Where("type IN ?", f.Types)
	if f.SearchTerm != "" {
		q = q.Where("title ILIKE ?", "%"+escapeLike(f.SearchTerm)+"%")
	}
	if f.Parking {
		q = q.Where("parking = ?", true)
	}
	if f.Furnished {
		q = q.Where("furnished = ?", true)
	}
	if f.Offer {
		q = q.Where("offer = ?", true)
	}
	q = q.Where("((discount_price IS NOT NULL AND discount_price BETWEEN ? AND ?) OR (discount_price IS NULL AND regular_price BETWEEN ? AND ?))",
		f.MinPrice, f.MaxPrice, f.MinPrice, f.MaxPrice)
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns[SortCreatedAt]
	}
	listings := []models.Listing{}
	err := q.
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.Desc}).
		Order("id").
		Limit(f.Limit).
		Offset(f.StartIndex).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}
