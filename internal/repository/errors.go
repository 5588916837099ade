package repository

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgForeignKeyViolation = "23503"

// mapWriteError turns foreign key violations on appointment writes into the
// domain's not-found errors. Anything else is returned unchanged.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgForeignKeyViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "service"):
		return catalog.ErrServiceNotFound
	case strings.Contains(pgErr.ConstraintName, "pet"):
		return pet.ErrPetNotFound
	}
	return err
}

func isPostgres(name string) bool {
	return name == "postgres"
}
