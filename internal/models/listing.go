package models

import (
	"time"
)

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

const (
	MinListingImages = 1
	MaxListingImages = 6
)

type Listing struct {
	ID            string      `json:"id" gorm:"type:uuid;primaryKey" bson:"_id"`
	Title         string      `json:"title" gorm:"not null" bson:"title"`
	Description   string      `json:"description" gorm:"type:text;not null" bson:"description"`
	Address       string      `json:"address" gorm:"not null" bson:"address"`
	Type          ListingType `json:"type" gorm:"type:varchar(4);index;not null" bson:"type"`
	Parking       bool        `json:"parking" bson:"parking"`
	Furnished     bool        `json:"furnished" bson:"furnished"`
	Offer         bool        `json:"offer" bson:"offer"`
	Bedrooms      int         `json:"bedrooms" gorm:"not null" bson:"bedrooms"`
	Bathrooms     int         `json:"bathrooms" gorm:"not null" bson:"bathrooms"`
	RegularPrice  int64       `json:"regularPrice" gorm:"index;not null" bson:"regularPrice"`
	DiscountPrice *int64      `json:"discountPrice" bson:"discountPrice"`
	ImageURLs     []string    `json:"imageUrls" gorm:"type:jsonb;serializer:json;not null" bson:"imageUrls"`
	UserRef       string      `json:"userRef" gorm:"type:uuid;index;not null" bson:"userRef"`
	CreatedAt     time.Time   `json:"createdAt" gorm:"autoCreateTime;index" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" gorm:"autoUpdateTime" bson:"updatedAt"`
}

// EffectivePrice is the price a buyer pays: the discount when one is set.
func (l Listing) EffectivePrice() int64 {
	if l.DiscountPrice != nil {
		return *l.DiscountPrice
	}
	return l.RegularPrice
}
