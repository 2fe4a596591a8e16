package domain

import (
	"time"

	"github.com/google/uuid"
)

type Bookmark struct {
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	ProjectID uuid.UUID `db:"project_id" json:"projectId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// BookmarkListItem is a bookmark joined with the project it points to.
type BookmarkListItem struct {
	Bookmark
	ProjectTitle  string        `db:"project_title" json:"projectTitle"`
	ProjectStatus ProjectStatus `db:"project_status" json:"projectStatus"`
	ProjectNature ProjectNature `db:"project_nature" json:"projectNature"`
	ProjectState  string        `db:"project_state" json:"projectState"`
}
