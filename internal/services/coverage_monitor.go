package services

import (
	"math"
	"time"

	"food-dispatch-service/internal/domain"
)

// DefaultSLAHours is the age after which an open task counts as at risk.
const DefaultSLAHours = 4.0

// FindSLARisks returns every non-completed task strictly older than
// slaHours at now, in input order. A zero threshold flags every open task
// with any age; a negative or NaN threshold uses DefaultSLAHours.
func FindSLARisks(tasks []domain.Task, slaHours float64, now time.Time) []domain.Risk {
	if slaHours < 0 || math.IsNaN(slaHours) {
		slaHours = DefaultSLAHours
	}

	risks := []domain.Risk{}
	for _, t := range tasks {
		if t.Status == domain.TaskCompleted {
			continue
		}
		hoursOld := now.Sub(t.CreatedAt).Hours()
		if hoursOld > slaHours {
			risks = append(risks, domain.Risk{TaskID: t.ID, HoursOverdue: hoursOld - slaHours})
		}
	}
	return risks
}
