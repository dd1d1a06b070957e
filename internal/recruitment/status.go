// internal/recruitment/status.go
package recruitment

import "hris-cloud/internal/models"

// transitions lists every move an applicant may make. processing is left only
// by the scorer; hired is entered only through a hire.
var transitions = map[models.ApplicantStatus][]models.ApplicantStatus{
	models.StatusProcessing:        {models.StatusScreened, models.StatusRejected},
	models.StatusScreened:          {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:          {models.StatusInterviewApproved, models.StatusRejected},
	models.StatusInterviewApproved: {models.StatusHired, models.StatusRejected},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to models.ApplicantStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no move leaves s.
func IsTerminal(s models.ApplicantStatus) bool {
	return len(transitions[s]) == 0
}

// canDecide is the subset of transitions an HR user drives by hand.
func canDecide(from, to models.ApplicantStatus) bool {
	if from == models.StatusProcessing || to == models.StatusHired {
		return false
	}
	return CanTransition(from, to)
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s models.ApplicantStatus) bool {
	switch s {
	case models.StatusProcessing, models.StatusScreened, models.StatusApproved,
		models.StatusInterviewApproved, models.StatusHired, models.StatusRejected:
		return true
	}
	return false
}
