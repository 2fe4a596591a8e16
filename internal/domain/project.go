package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Project struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description *string        `db:"description" json:"description,omitempty"`
	Status      ProjectStatus  `db:"status" json:"status"`
	File        *string        `db:"file" json:"file,omitempty"`
	CreatorID   uuid.UUID      `db:"creator_id" json:"creator"`
	From        time.Time      `db:"from_date" json:"from"`
	To          *time.Time     `db:"to_date" json:"to,omitempty"`
	Nature      ProjectNature  `db:"nature" json:"nature"`
	State       string         `db:"state" json:"state"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Salary      float64        `db:"salary" json:"salary"`
	Questions   pq.StringArray `db:"questions" json:"questions"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

func (p *Project) IsCreator(userID uuid.UUID) bool {
	return p.CreatorID == userID
}

func (p *Project) HasQuestion(q string) bool {
	for _, v := range p.Questions {
		if v == q {
			return true
		}
	}
	return false
}

// ProjectFields is the writable part of a project. On update nil fields keep
// their stored value.
type ProjectFields struct {
	Title       *string
	Description *string
	From        *time.Time
	To          *time.Time
	Nature      *ProjectNature
	State       *string
	Tags        []string
	Salary      *float64
	Questions   []string
}

// ProjectDetail is returned to the creator of a project and embeds the
// applications it received.
type ProjectDetail struct {
	Project
	Applications []Application `json:"applications,omitempty"`
}
