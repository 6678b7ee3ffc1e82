package transport

// Unknown JSON fields are ignored by the binder; only the fields below ever
// reach a model.

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// Role is what the client intends to log in as. The stored role wins.
	Role string `json:"role" validate:"omitempty,oneof=admin operator"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

type UpdateCredentialsRequest struct {
	CurrentPassword string  `json:"currentPassword" validate:"required"`
	NewUsername     *string `json:"newUsername"     validate:"omitempty,min=3,max=64"`
	NewPassword     *string `json:"newPassword"     validate:"omitempty,min=6,max=72"`
}

type CreateOperatorRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type CreateBlogRequest struct {
	Title        string  `json:"title"        validate:"required,max=300"`
	TitleHindi   string  `json:"titleHindi"   validate:"max=300"`
	Excerpt      string  `json:"excerpt"      validate:"max=1000"`
	ExcerptHindi string  `json:"excerptHindi" validate:"max=1000"`
	Content      string  `json:"content"`
	ContentHindi string  `json:"contentHindi"`
	ImageURL     string  `json:"imageUrl"     validate:"omitempty,url"`
	CategoryID   *string `json:"categoryId"   validate:"omitempty,uuid"`
	Status       *string `json:"status"       validate:"omitempty,oneof=pending published rejected"`
}

type UpdateBlogRequest struct {
	Title        *string `json:"title"        validate:"omitempty,max=300"`
	TitleHindi   *string `json:"titleHindi"   validate:"omitempty,max=300"`
	Excerpt      *string `json:"excerpt"      validate:"omitempty,max=1000"`
	ExcerptHindi *string `json:"excerptHindi" validate:"omitempty,max=1000"`
	Content      *string `json:"content"`
	ContentHindi *string `json:"contentHindi"`
	ImageURL     *string `json:"imageUrl"     validate:"omitempty,url"`
	CategoryID   *string `json:"categoryId"   validate:"omitempty,uuid"`
	Status       *string `json:"status"       validate:"omitempty,oneof=pending published rejected"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CategoryRequest struct {
	Name      string `json:"name"      validate:"required,max=100"`
	NameHindi string `json:"nameHindi" validate:"max=100"`
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	offset := (page - 1) * size
	return Page[T]{
		Data: items,
		Meta: PageMeta{
			Page:       page,
			Size:       size,
			Total:      total,
			TotalPages: (total + int64(size) - 1) / int64(size),
			HasPrev:    page > 1,
			HasNext:    int64(offset+size) < total,
		},
	}
}
