// internal/store/employees.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hris-cloud/internal/models"
)

const (
	employeeColumns = `id, name, email, role, department, leave_remaining, status,
join_date, created_at, updated_at`

	insertEmployee = `INSERT INTO employees (id, name, email, role, department, leave_remaining,
status, join_date, created_at, updated_at, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10)
RETURNING ` + employeeColumns

	selectEmployeeEmailTaken = `SELECT EXISTS (
SELECT 1 FROM employees WHERE lower(email) = lower($1) AND deleted_at = $2)`

	selectEmployees = `SELECT ` + employeeColumns + ` FROM employees
WHERE deleted_at = $1 ORDER BY name`

	selectEmployee = `SELECT ` + employeeColumns + ` FROM employees
WHERE id = $1 AND deleted_at = $2`

	updateEmployee = `UPDATE employees SET
name = COALESCE($3, name),
email = COALESCE($4, email),
role = COALESCE($5, role),
department = COALESCE($6, department),
leave_remaining = COALESCE($7, leave_remaining),
status = COALESCE($8, status),
join_date = COALESCE($9::date, join_date),
updated_at = $10
WHERE id = $1 AND deleted_at = $2
RETURNING ` + employeeColumns

	softDeleteEmployee = `UPDATE employees SET deleted_at = $3, updated_at = $3
WHERE id = $1 AND deleted_at = $2`

	lockApplicant = `SELECT name, email, status FROM applicants
WHERE id = $1 AND deleted_at = $2 FOR UPDATE`

	markApplicantHired = `UPDATE applicants SET status = $2 WHERE id = $1`
)

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	var e models.Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.Department, &e.LeaveRemaining,
		&e.Status, &e.JoinDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) insertEmployee(ctx context.Context, q execQuerier, e *models.Employee) (*models.Employee, error) {
	var taken bool
	if err := q.QueryRowContext(ctx, selectEmployeeEmailTaken, e.Email, live).Scan(&taken); err != nil {
		return nil, queryFailed("check employee email", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmployee, e.Email)
	}

	row := q.QueryRowContext(ctx, insertEmployee,
		s.newID(), e.Name, e.Email, e.Role, e.Department, e.LeaveRemaining,
		e.Status, e.JoinDate, s.now(), live)
	created, err := scanEmployee(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmployee, e.Email)
		}
		return nil, queryFailed("insert employee", err)
	}
	return created, nil
}

// CreateEmployee adds an employee by hand. Missing optional fields take the
// defaults a new hire gets.
func (s *Store) CreateEmployee(ctx context.Context, in models.EmployeeCreate) (*models.Employee, error) {
	e := &models.Employee{
		Name:           in.Name,
		Email:          in.Email,
		Role:           in.Role,
		Department:     in.Department,
		LeaveRemaining: 12,
		Status:         models.EmployeeActive,
		JoinDate:       models.NewDate(s.now()),
	}
	if in.LeaveRemaining != nil {
		e.LeaveRemaining = *in.LeaveRemaining
	}
	if in.Status != "" {
		e.Status = in.Status
	}
	if in.JoinDate != nil {
		e.JoinDate = *in.JoinDate
	}
	return s.insertEmployee(ctx, s.db, e)
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, selectEmployees, live)
	if err != nil {
		return nil, queryFailed("list employees", err)
	}
	defer rows.Close()

	employees := make([]models.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, queryFailed("scan employee", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, selectEmployee, id, live))
	if err != nil {
		return nil, wrapNotFound(queryFailed("select employee", err), "employee "+id)
	}
	return e, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error) {
	var joinDate interface{}
	if upd.JoinDate != nil {
		joinDate = upd.JoinDate.String()
	}
	var status interface{}
	if upd.Status != nil {
		status = string(*upd.Status)
	}

	row := s.db.QueryRowContext(ctx, updateEmployee, id, live,
		upd.Name, upd.Email, upd.Role, upd.Department, upd.LeaveRemaining, status, joinDate, s.now())
	e, err := scanEmployee(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmployee, *upd.Email)
		}
		return nil, wrapNotFound(queryFailed("update employee", err), "employee "+id)
	}
	return e, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, softDeleteEmployee, id, live, s.now())
	if err != nil {
		return queryFailed("delete employee", err)
	}
	return wrapNotFound(checkAffected(res, "delete employee"), "employee "+id)
}

// HireApplicant converts an applicant in the required status into an
// employee and marks the applicant hired, in one transaction. The applicant
// row is locked so two concurrent hires cannot both succeed.
func (s *Store) HireApplicant(ctx context.Context, applicantID string, required models.ApplicantStatus, hire models.HireRequest) (*models.Employee, error) {
	var created *models.Employee
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			name, email string
			status      models.ApplicantStatus
		)
		err := tx.QueryRowContext(ctx, lockApplicant, applicantID, live).Scan(&name, &email, &status)
		if err != nil {
			return wrapNotFound(queryFailed("lock applicant", err), "applicant "+applicantID)
		}
		if status != required {
			return fmt.Errorf("%w: applicant is %s", ErrStatusConflict, status)
		}

		joinDate := models.NewDate(s.now())
		if hire.JoinDate != nil {
			joinDate = *hire.JoinDate
		}
		created, err = s.insertEmployee(ctx, tx, &models.Employee{
			Name:           name,
			Email:          email,
			Role:           hire.Role,
			Department:     hire.Department,
			LeaveRemaining: hire.LeaveRemaining,
			Status:         models.EmployeeActive,
			JoinDate:       joinDate,
		})
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, markApplicantHired, applicantID, models.StatusHired); err != nil {
			return queryFailed("mark applicant hired", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// IsDuplicateEmployee reports whether err came from the email uniqueness rule.
func IsDuplicateEmployee(err error) bool {
	return errors.Is(err, ErrDuplicateEmployee)
}
