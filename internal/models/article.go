// Package models defines the domain types for Ansuz.
package models

import "time"

// QAPair is a question/answer entry embedded in an article's frontmatter
// for structured FAQ display.
type QAPair struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Article represents one Markdown source file after frontmatter extraction.
// Optional frontmatter fields (keywords, image, faq) default to their zero
// values when absent, so callers never deal with untyped maps.
type Article struct {
	Path        string    `json:"path"`
	Title       string    `yaml:"title" json:"title"`
	Date        time.Time `yaml:"date" json:"date"`
	Draft       bool      `yaml:"draft" json:"draft"`
	URL         string    `yaml:"url" json:"url"`
	Tags        []string  `yaml:"tags" json:"tags,omitempty"`
	Description string    `yaml:"description" json:"description"`
	Keywords    []string  `yaml:"keywords" json:"keywords,omitempty"`
	Image       string    `yaml:"image" json:"image,omitempty"`
	FAQ         []QAPair  `yaml:"faq" json:"faq,omitempty"`
	Body        string    `json:"body"`
	Checksum    string    `json:"checksum"`
}

// ArticleMetadata is a lightweight representation returned by list operations.
type ArticleMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
