package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided the violation must reference it.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchesStoreCode(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error, constraintName string) bool {
	return matchesStoreCode(err, pgForeignKeyViolation, constraintName, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func matchesStoreCode(err error, code, constraintName string, fallbacks ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == code && constraintMatches(pgxErr.ConstraintName, pgxErr.Message, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code && constraintMatches(pqErr.Constraint, pqErr.Message, constraintName)
	}

	// sqlite and wrapped driver errors only expose text. sqlite names the
	// column (negocios.slug) rather than the constraint (negocios_slug_key).
	msg := err.Error()
	for _, fb := range fallbacks {
		if strings.Contains(msg, fb) {
			return constraintName == "" ||
				strings.Contains(msg, constraintName) ||
				strings.Contains(msg, columnRef(constraintName))
		}
	}
	return false
}

// columnRef turns a "<table>_<column>_key" constraint name into the
// "<table>.<column>" form sqlite reports.
func columnRef(constraintName string) string {
	trimmed := strings.TrimSuffix(constraintName, "_key")
	return strings.Replace(trimmed, "_", ".", 1)
}

func constraintMatches(actual, message, want string) bool {
	if want == "" {
		return true
	}
	return actual == want || strings.Contains(message, want)
}
