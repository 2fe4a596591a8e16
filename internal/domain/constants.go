package domain

// GermanStates lists the locations accepted for users and projects.
var GermanStates = []string{
	"Bayern",
	"Berlin",
	"Niedersachsen",
	"Baden-Württemberg",
	"Rheinland-Pfalz",
	"Sachsen",
	"Thüringen",
	"Hessen",
	"Nordrhein-Westfalen",
	"Sachsen-Anhalt",
	"Brandenburg",
	"Mecklenburg-Vorpommern",
	"Hamburg",
	"Schleswig-Holstein",
	"Saarland",
	"Bremen",
}

func IsGermanState(v string) bool {
	for _, s := range GermanStates {
		if s == v {
			return true
		}
	}
	return false
}

type ProjectStatus string

const (
	ProjectStatusOpen      ProjectStatus = "open"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusClosed    ProjectStatus = "closed"
	ProjectStatusDeleted   ProjectStatus = "deleted"
)

var ProjectStatuses = []ProjectStatus{
	ProjectStatusOpen,
	ProjectStatusActive,
	ProjectStatusCompleted,
	ProjectStatusClosed,
	ProjectStatusDeleted,
}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type ProjectNature string

const (
	ProjectNatureInternship    ProjectNature = "internship"
	ProjectNatureThesis        ProjectNature = "thesis"
	ProjectNaturePartTime      ProjectNature = "parttime"
	ProjectNatureVoluntary     ProjectNature = "voluntary"
	ProjectNatureQuickQuestion ProjectNature = "quick-question"
)

var ProjectNatures = []ProjectNature{
	ProjectNatureInternship,
	ProjectNatureThesis,
	ProjectNaturePartTime,
	ProjectNatureVoluntary,
	ProjectNatureQuickQuestion,
}

func (n ProjectNature) Valid() bool {
	for _, v := range ProjectNatures {
		if v == n {
			return true
		}
	}
	return false
}

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusAccepted,
	ApplicationStatusRejected,
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}
