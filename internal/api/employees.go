// internal/api/employees.go
package api

import (
	"net/http"

	"hris-cloud/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) createEmployee(c *gin.Context) {
	var req models.EmployeeCreate
	if !s.bindJSON(c, &req) {
		return
	}
	employee, err := s.deps.Employees.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (s *Server) listEmployees(c *gin.Context) {
	employees, err := s.deps.Employees.ListEmployees(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (s *Server) getEmployee(c *gin.Context) {
	employee, err := s.deps.Employees.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (s *Server) updateEmployee(c *gin.Context) {
	var upd models.EmployeeUpdate
	if !s.bindJSON(c, &upd) {
		return
	}
	employee, err := s.deps.Employees.UpdateEmployee(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (s *Server) deleteEmployee(c *gin.Context) {
	if err := s.deps.Employees.DeleteEmployee(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success("Employee archived"))
}
