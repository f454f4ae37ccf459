package repository

import (
	"fmt"

	"tenxdev/internal/database"
	"tenxdev/internal/models"
)

// RequestRepository handles database operations for code-generation history
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateRequest records one code-generation call for a user
func (r *RequestRepository) CreateRequest(userID int64, prompt, response string) (int64, error) {
	query := `
		INSERT INTO requests (user_id, prompt, response)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, userID, prompt, response)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return id, nil
}

// CountByUser returns how many requests a user has made
func (r *RequestRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM requests WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// GetAllRequests returns the full request history, newest first
func (r *RequestRepository) GetAllRequests() ([]models.Request, error) {
	query := `
		SELECT id, user_id, prompt, response, created_at
		FROM requests
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var req models.Request
		if err := rows.Scan(&req.ID, &req.UserID, &req.Prompt, &req.Response, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// GetUserReports returns every user with their request volume, for the
// admin database view.
func (r *RequestRepository) GetUserReports() ([]models.UserReport, error) {
	query := `
		SELECT users.id, users.email, users.username, users.is_admin, COUNT(requests.id)
		FROM users
		LEFT JOIN requests ON users.id = requests.user_id
		GROUP BY users.id, users.email, users.username, users.is_admin
		ORDER BY users.id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query user reports: %w", err)
	}
	defer rows.Close()

	var reports []models.UserReport
	for rows.Next() {
		var rep models.UserReport
		if err := rows.Scan(&rep.ID, &rep.Email, &rep.Username, &rep.IsAdmin, &rep.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan user report: %w", err)
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}
