package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Answers maps a project question to the applicant's answer.
type Answers map[string]string

func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (a *Answers) Scan(value any) error {
	if value == nil {
		*a = Answers{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("expected []byte for answers, got %T", value)
	}
	out := Answers{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*a = out
	return nil
}

type Application struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	ApplicantID uuid.UUID         `db:"applicant_id" json:"applicant"`
	ProjectID   uuid.UUID         `db:"project_id" json:"project"`
	Status      ApplicationStatus `db:"status" json:"status"`
	Answers     Answers           `db:"answers" json:"answers"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
