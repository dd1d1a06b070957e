// internal/recruitment/lifecycle.go
package recruitment

import (
	"context"
	"errors"
	"fmt"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/models"
	"hris-cloud/internal/store"
)

const (
	msgConvertWrongStatus = "Only approved applicants can be converted to employees"
	msgVerifyWrongStatus  = "Only interview-approved applicants can be verified"

	MsgConverted = "Candidate successfully hired"
	MsgVerified  = "Candidate verified and hired"
)

// HireResult is returned by Convert and Verify.
type HireResult struct {
	Status     string           `json:"status"`
	Message    string           `json:"message"`
	EmployeeID string           `json:"employee_id"`
	Employee   *models.Employee `json:"employee,omitempty"`
}

// Decide applies an HR decision to an applicant. Approvals and rejections
// email the candidate; a failed email does not undo the decision.
func (s *Service) Decide(ctx context.Context, ownerID, applicantID string, to models.ApplicantStatus) (*models.Applicant, error) {
	if !ValidStatus(to) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown status '%s'", to))
	}

	applicant, project, err := s.ownedApplicant(ctx, applicantID, ownerID)
	if err != nil {
		return nil, err
	}

	from := applicant.Status
	if !canDecide(from, to) {
		return nil, apperrors.NewInvalidStatusTransitionError(string(from), string(to))
	}

	if err := s.repo.UpdateApplicantStatus(ctx, applicantID, from, to); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			// Someone else moved the applicant since we read it.
			return nil, apperrors.NewInvalidStatusTransitionError(string(from), string(to))
		}
		return nil, err
	}
	applicant.Status = to

	s.logger.Info("applicant status changed", map[string]interface{}{
		"applicantId": applicantID,
		"from":        from,
		"to":          to,
	})

	if s.mailer != nil && (to == models.StatusApproved || to == models.StatusRejected) {
		out := s.mailer.Send(ctx, models.DecisionNotification{
			ApplicantID:   applicant.ID,
			CandidateName: applicant.Name,
			Email:         applicant.Email,
			ProjectName:   project.Name,
			Status:        to,
		})
		if out != nil && out.Status != "sent" {
			s.logger.Warn("decision email not delivered", map[string]interface{}{
				"applicantId": applicantID,
				"status":      out.Status,
			})
		}
	}

	s.publish(ctx, applicant, to)
	s.audit(ctx, "applicant.status_changed", "applicant", applicantID, ownerID, map[string]interface{}{
		"from": from,
		"to":   to,
	})
	return applicant, nil
}

// Convert hires an approved applicant with default employee fields.
func (s *Service) Convert(ctx context.Context, ownerID, applicantID string) (*HireResult, error) {
	employee, err := s.hire(ctx, ownerID, applicantID, models.StatusApproved, models.DefaultHire(s.now()), msgConvertWrongStatus)
	if err != nil {
		return nil, err
	}
	return &HireResult{Status: "success", Message: MsgConverted, EmployeeID: employee.ID, Employee: employee}, nil
}

// Verify hires an interview-approved applicant with the employee fields HR
// filled in.
func (s *Service) Verify(ctx context.Context, ownerID, applicantID string, req models.HireRequest) (*HireResult, error) {
	employee, err := s.hire(ctx, ownerID, applicantID, models.StatusInterviewApproved, req, msgVerifyWrongStatus)
	if err != nil {
		return nil, err
	}
	return &HireResult{Status: "success", Message: MsgVerified, EmployeeID: employee.ID, Employee: employee}, nil
}

func (s *Service) hire(ctx context.Context, ownerID, applicantID string, required models.ApplicantStatus, req models.HireRequest, wrongStatus string) (*models.Employee, error) {
	applicant, _, err := s.ownedApplicant(ctx, applicantID, ownerID)
	if err != nil {
		return nil, err
	}
	if applicant.Status != required {
		return nil, wrongStatusError(wrongStatus, applicant.Status)
	}

	employee, err := s.repo.HireApplicant(ctx, applicantID, required, req)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStatusConflict):
		return nil, wrongStatusError(wrongStatus, "")
	case errors.Is(err, store.ErrDuplicateEmployee):
		return nil, apperrors.NewDuplicateEmployeeError(applicant.Email)
	case errors.Is(err, store.ErrNotFound):
		return nil, apperrors.NewResourceNotFoundError("Applicant", applicantID)
	default:
		return nil, err
	}

	applicant.Status = models.StatusHired
	s.logger.Info("applicant hired", map[string]interface{}{
		"applicantId": applicantID,
		"employeeId":  employee.ID,
	})
	s.publish(ctx, applicant, models.StatusHired)
	s.audit(ctx, "applicant.hired", "applicant", applicantID, ownerID, map[string]interface{}{
		"employee_id": employee.ID,
		"from":        required,
	})
	return employee, nil
}

func wrongStatusError(message string, current models.ApplicantStatus) *apperrors.StandardError {
	details := "applicant status changed concurrently"
	if current != "" {
		details = fmt.Sprintf("applicant is '%s'", current)
	}
	return apperrors.NewValidationError(apperrors.ErrCodeInvalidStatusTransition, message, details, "")
}
