package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleOperator }

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPublished || s == StatusRejected
}

type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"      json:"username"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null" json:"role"`
	IsActive     bool      `gorm:"not null"                  json:"isActive"`
	// sha256 of the one live refresh token; empty when logged out.
	RefreshTokenHash string    `gorm:"not null;default:''" json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Blog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"         json:"id"`
	Title        string     `gorm:"not null"                     json:"title"`
	TitleHindi   string     `gorm:"not null;default:''"          json:"titleHindi"`
	Excerpt      string     `gorm:"not null;default:''"          json:"excerpt"`
	ExcerptHindi string     `gorm:"not null;default:''"          json:"excerptHindi"`
	Content      string     `gorm:"type:text;not null;default:''" json:"content"`
	ContentHindi string     `gorm:"type:text;not null;default:''" json:"contentHindi"`
	ImageURL     string     `gorm:"not null;default:''"          json:"imageUrl"`
	Slug         string     `gorm:"uniqueIndex;not null"         json:"slug"`
	Status       Status     `gorm:"type:varchar(16);index;not null" json:"status"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index"              json:"categoryId,omitempty"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid;index;not null"     json:"createdBy"`

	ReviewedBy      *uuid.UUID `gorm:"type:uuid"           json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason string     `gorm:"not null;default:''" json:"rejectionReason,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Blog) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Localized returns a copy whose primary fields carry the Hindi text where
// it exists, falling back to English field by field.
func (b Blog) Localized(lang string) Blog {
	if lang != "hi" {
		return b
	}
	if b.TitleHindi != "" {
		b.Title = b.TitleHindi
	}
	if b.ExcerptHindi != "" {
		b.Excerpt = b.ExcerptHindi
	}
	if b.ContentHindi != "" {
		b.Content = b.ContentHindi
	}
	return b
}

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name      string    `gorm:"not null"              json:"name"`
	NameHindi string    `gorm:"not null;default:''"   json:"nameHindi"`
	Slug      string    `gorm:"uniqueIndex;not null"  json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Subscriber struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Subscriber) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&Account{}, &Category{}, &Blog{}, &Subscriber{}}
}
