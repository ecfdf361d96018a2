package models

// Category groups titles (film, book, music ...).
type Category struct {
	ID   int64  `json:"-"`
	Name string `json:"name" validate:"required,max=50"`
	Slug string `json:"slug" validate:"omitempty,max=50"`
}

// Genre has the same shape as Category and lives in its own table.
type Genre = Category

// Title is a reviewable work.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Description string    `json:"description,omitempty"`
	Category    *Category `json:"category"`
	Rating      *float64  `json:"rating"`
	PosterKey   string    `json:"-"`
}

// CategoryRef names a category by its display name.
type CategoryRef struct {
	Name string `json:"name" validate:"required"`
}

// TitleInput is the JSON body for creating a title.
type TitleInput struct {
	Name        string       `json:"name"        validate:"required,max=50"`
	Year        int          `json:"year"        validate:"required,gte=0,lte=32767"`
	Description string       `json:"description" validate:"max=500"`
	Category    *CategoryRef `json:"category"    validate:"required"`
}

// TitlePatch is the JSON body for PUT /api/v1/titles/{id}.
type TitlePatch struct {
	Name        *string      `json:"name"        validate:"omitempty,max=50"`
	Year        *int         `json:"year"        validate:"omitempty,gte=0,lte=32767"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
	Category    *CategoryRef `json:"category"`
}
