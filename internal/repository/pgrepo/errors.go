package pgrepo

import (
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode = "23505"
	// numericOverflowCode сумма или итоговый баланс не помещаются в NUMERIC(18, 2).
	numericOverflowCode = "22003"
)

// busyCodes коды postgres, после которых операцию имеет смысл повторить позже.
var busyCodes = map[string]struct{}{
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled
	"40P01": {}, // deadlock_detected
	"40001": {}, // serialization_failure
}

// convertErr приводит ошибку драйвера к ошибкам домена и дописывает контекст операции:
//   - pgx.ErrNoRows становится domain.ErrRecordNotFound;
//   - нарушение уникальности становится domain.DuplicateKeyError с именем ограничения;
//   - переполнение NUMERIC становится domain.ErrInvalidAmount;
//   - коды из busyCodes становятся domain.ErrBusy;
//   - остальное оборачивается в domain.ErrStoreFailure с исходным текстом.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}
	op := "[repository/" + fmt.Sprintf(format, formatArgs...) + "]"

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", op, domain.ErrRecordNotFound)
	}

	kind := domain.ErrStoreFailure
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%s %w", op, domain.NewDuplicateKeyError(pgErr.ConstraintName))
		case numericOverflowCode:
			return fmt.Errorf("%s %w: %s", op, domain.ErrInvalidAmount, err.Error())
		}
		if _, busy := busyCodes[pgErr.Code]; busy {
			kind = domain.ErrBusy
		}
	}
	return fmt.Errorf("%s %w: %s", op, kind, err.Error())
}
