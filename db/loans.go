package db

import (
	"context"
	"fmt"
	"time"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
)

// CreateLoan records a loan request for a piece of equipment.
func (db *DB) CreateLoan(ctx context.Context, equipmentId, borrowerId int64, startDate, endDate time.Time) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("loans")
	ib.Cols("equipment_id", "borrower_id", "start_date", "end_date")
	ib.Values(equipmentId, borrowerId, startDate, endDate)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// UpdateLoanStatus moves a loan to a new lifecycle status and returns the
// updated view.
func (db *DB) UpdateLoanStatus(ctx context.Context, loanId int64, status string) (*models.LoanView, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	res, err := db.db.ExecContext(ctx,
		"UPDATE loans SET status = $1 WHERE id = $2", status, loanId)
	if err != nil {
		return nil, fmt.Errorf("update error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update error: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return db.GetLoan(ctx, loanId)
}

// GetLoan returns a single loan with equipment and borrower identity.
func (db *DB) GetLoan(ctx context.Context, loanId int64) (*models.LoanView, error) {
	loans, err := db.queryLoans(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(sb.Equal("loans.id", loanId))
	})
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, ErrNotFound
	}
	return &loans[0], nil
}

// ListLoansByBorrower returns the user's loan requests, newest first.
func (db *DB) ListLoansByBorrower(ctx context.Context, borrowerId int64) ([]models.LoanView, error) {
	return db.queryLoans(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(sb.Equal("loans.borrower_id", borrowerId))
		sb.OrderBy("loans.created_at").Desc()
	})
}

func (db *DB) queryLoans(ctx context.Context, apply func(*sqlbuilder.SelectBuilder)) ([]models.LoanView, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"loans.id", "loans.equipment_id", "equipment.name",
		"loans.start_date", "loans.end_date", "loans.status", "loans.created_at",
		"users.id", "users.first_name", "users.last_name",
	)
	sb.From("loans")
	sb.Join("equipment", "equipment.id = loans.equipment_id")
	sb.Join("users", "users.id = loans.borrower_id")
	apply(sb)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var loans []models.LoanView
	for rows.Next() {
		var loan models.LoanView
		if err := rows.Scan(
			&loan.Id, &loan.EquipmentId, &loan.EquipmentName,
			&loan.StartDate, &loan.EndDate, &loan.Status, &loan.CreatedAt,
			&loan.Borrower.Id, &loan.Borrower.FirstName, &loan.Borrower.LastName,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		loans = append(loans, loan)
	}

	return loans, rows.Err()
}
