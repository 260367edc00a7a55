package consumer

import "edumatch-notifications/internal/models"

const (
	defaultTitle = "Update from EduMatch"
	defaultBody  = "You have a new notification."

	scholarshipTitle    = "Scholarship update"
	newApplicationTitle = "New application"
	newApplicationBody  = "A new application needs review."
	newScholarshipTitle = "New scholarship pending review"
	newScholarshipBody  = "A new scholarship is waiting for approval."
	newMatchTitle       = "New opportunity matches your profile!"
	applicationTitle    = "Application update"
)

// Classified is the content a notification is materialized with.
type Classified struct {
	Type        string
	Title       string
	Body        string
	ReferenceID string
}

type rule struct {
	name  string
	match func(e *models.NotificationEvent) bool
	apply func(e *models.NotificationEvent) Classified
}

func hasType(types ...string) func(e *models.NotificationEvent) bool {
	return func(e *models.NotificationEvent) bool {
		if !e.Type.Valid {
			return false
		}
		for _, t := range types {
			if e.Type.Value == t {
				return true
			}
		}
		return false
	}
}

// rules run in order; the first match wins. Explicit producer types come
// before the shape-based rules.
var rules = []rule{
	{
		name:  "scholarship-status",
		match: hasType(models.TypeScholarshipApproved, models.TypeScholarshipRejected),
		apply: func(e *models.NotificationEvent) Classified {
			return Classified{
				Type:        e.Type.Value,
				Title:       e.Title.Or(scholarshipTitle),
				Body:        e.Body.Or(defaultBody),
				ReferenceID: e.OpportunityID.Value,
			}
		},
	},
	{
		name:  "new-application-admin",
		match: hasType(models.TypeNewApplicationAdmin),
		apply: func(e *models.NotificationEvent) Classified {
			return Classified{
				Type:        models.TypeNewApplicationAdmin,
				Title:       e.Title.Or(newApplicationTitle),
				Body:        e.Body.Or(newApplicationBody),
				ReferenceID: e.ApplicationID.Or(e.ReferenceID.Value),
			}
		},
	},
	{
		name:  "new-scholarship-admin",
		match: hasType(models.TypeNewScholarshipAdmin),
		apply: func(e *models.NotificationEvent) Classified {
			return Classified{
				Type:        models.TypeNewScholarshipAdmin,
				Title:       e.Title.Or(newScholarshipTitle),
				Body:        e.Body.Or(newScholarshipBody),
				ReferenceID: e.OpportunityID.Or(e.ReferenceID.Value),
			}
		},
	},
	{
		name:  "application-status",
		match: func(e *models.NotificationEvent) bool { return e.ApplicationID.Valid },
		apply: func(e *models.NotificationEvent) Classified {
			title := applicationTitle
			if e.Status.Valid {
				title += ": " + e.Status.Value
			}
			return Classified{
				Type:        models.TypeApplicationStatus,
				Title:       title,
				Body:        e.Body.Or(defaultBody),
				ReferenceID: e.ApplicationID.Value,
			}
		},
	},
	{
		name:  "new-match",
		match: func(e *models.NotificationEvent) bool { return e.OpportunityID.Valid },
		apply: func(e *models.NotificationEvent) Classified {
			return Classified{
				Type:        models.TypeNewMatch,
				Title:       newMatchTitle,
				Body:        e.Body.Or(defaultBody),
				ReferenceID: e.OpportunityID.Value,
			}
		},
	},
	{
		name:  "general",
		match: func(*models.NotificationEvent) bool { return true },
		apply: func(e *models.NotificationEvent) Classified {
			return Classified{
				Type:        e.Type.Or(models.TypeGeneral),
				Title:       e.Title.Or(defaultTitle),
				Body:        e.Body.Or(defaultBody),
				ReferenceID: e.ReferenceID.Value,
			}
		},
	},
}

// Classify derives type, title, body and reference of an event. It never
// fails and never returns a blank title or body.
func Classify(e *models.NotificationEvent) Classified {
	c, _ := classify(e)
	return c
}

func classify(e *models.NotificationEvent) (Classified, string) {
	for _, r := range rules {
		if r.match(e) {
			return r.apply(e), r.name
		}
	}
	// unreachable: the last rule matches everything
	return Classified{Type: models.TypeGeneral, Title: defaultTitle, Body: defaultBody}, "general"
}
