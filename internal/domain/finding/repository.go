package finding

import "context"

// Repository defines the interface for report persistence
type Repository interface {
	// Save persists a report
	Save(ctx context.Context, report *Report) error

	// FindByID retrieves a report by its ID
	FindByID(ctx context.Context, id string) (*Report, error)

	// FindAll retrieves all reports, newest first
	FindAll(ctx context.Context) ([]*Report, error)

	// FindByTool retrieves reports for one tool, newest first
	FindByTool(ctx context.Context, tool string) ([]*Report, error)

	// Delete removes a report by its ID
	Delete(ctx context.Context, id string) error
}
