package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is what the API logs about a failed request. None of it is
// written to the response body.
type Diagnostics struct {
	Message string
	Code    Code
	// Chain lists the concrete error types from outermost to root cause.
	Chain []string
	Store *StoreDetail
}

// StoreDetail is the Postgres error behind a failure, from either driver.
type StoreDetail struct {
	Driver     string
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Diagnose unwraps err into loggable diagnostics.
func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	d := Diagnostics{Message: err.Error(), Code: CodeInternal}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	d.Store = storeDetail(err)
	return d
}

// Fields flattens d for logger.WithFields. Store keys are only present when
// a Postgres error was found.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if s := d.Store; s != nil {
		fields["pg_driver"] = s.Driver
		fields["pg_code"] = s.SQLState
		fields["pg_message"] = s.Message
		if s.Constraint != "" {
			fields["pg_constraint"] = s.Constraint
		}
		if s.Table != "" {
			fields["pg_table"] = s.Table
		}
		if s.Column != "" {
			fields["pg_column"] = s.Column
		}
		if s.Detail != "" {
			fields["pg_detail"] = s.Detail
		}
	}
	return fields
}

func storeDetail(err error) *StoreDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &StoreDetail{
			Driver:     "pgx",
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &StoreDetail{
			Driver:     "pq",
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
