package models

import (
	"time"
)

const DefaultPhotoURL = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

type User struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey" bson:"_id"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null" bson:"username"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	PasswordHash string    `json:"-" gorm:"not null" bson:"passwordHash"`
	PhotoURL     string    `json:"photoURL" gorm:"not null" bson:"photoURL"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime" bson:"updatedAt"`
}
