package models

import "time"

// Event is an association event, publicly listed.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Date        time.Time `db:"date" json:"date"`
	Location    string    `db:"location" json:"location"`
	ImagePath   *string   `db:"image_path" json:"image_path,omitempty"`
	OrganizerID *string   `db:"organizer_id" json:"organizer_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Project is a showcased association project, publicly listed.
type Project struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ImagePath   *string   `db:"image_path" json:"image_path,omitempty"`
	GithubLink  *string   `db:"github_link" json:"github_link,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Contributor user IDs, loaded from the join table.
	Contributors []string `db:"-" json:"contributors,omitempty"`
}
