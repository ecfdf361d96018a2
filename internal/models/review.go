package models

import "time"

// Review is a scored opinion about a title.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"title_id"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// ReviewInput is the JSON body for creating or editing a review.
type ReviewInput struct {
	Text  string `json:"text"  validate:"required"`
	Score int    `json:"score" validate:"required,gte=1,lte=10"`
}

// Comment is a reply to a review.
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"review_id"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

// CommentInput is the JSON body for creating or editing a comment.
type CommentInput struct {
	Text string `json:"text" validate:"required"`
}
