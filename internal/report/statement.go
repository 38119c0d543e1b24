// Package report формирует выписки по счету.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/fsdevblog/groph-bank/internal/domain"
)

var statementHeader = []string{"date", "type", "amount", "target_account"}

// CSVStatementWriter пишет выписки в CSV-файлы внутри каталога dir.
type CSVStatementWriter struct {
	dir string
	now func() time.Time
}

func NewCSVStatementWriter(dir string) *CSVStatementWriter {
	return &CSVStatementWriter{dir: dir, now: time.Now}
}

// WriteStatement создает файл <номер счета>_<время>_<случайный суффикс>.csv с правами 0600 и возвращает путь
// к нему. При ошибке записи файл удаляется.
func (w *CSVStatementWriter) WriteStatement(
	account domain.Account,
	transactions []domain.Transaction,
) (path string, err error) {
	if mkErr := os.MkdirAll(w.dir, 0o750); mkErr != nil { //nolint:mnd
		return "", fmt.Errorf("create statements dir: %w", mkErr)
	}

	pattern := fmt.Sprintf("%s_%s_*.csv", account.AccountNumber, w.now().UTC().Format("20060102T150405"))
	file, createErr := os.CreateTemp(w.dir, pattern)
	if createErr != nil {
		return "", fmt.Errorf("create statement file: %w", createErr)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close statement file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(file.Name())
			path = ""
		}
	}()

	if writeErr := writeRecords(csv.NewWriter(file), transactions); writeErr != nil {
		return "", writeErr
	}
	return file.Name(), nil
}

func writeRecords(cw *csv.Writer, transactions []domain.Transaction) error {
	if err := cw.Write(statementHeader); err != nil {
		return fmt.Errorf("write statement header: %w", err)
	}
	for _, tr := range transactions {
		target := ""
		if tr.TargetAccount != nil {
			target = *tr.TargetAccount
		}
		record := []string{
			tr.CreatedAt.UTC().Format(time.RFC3339),
			string(tr.Type),
			tr.Amount.StringFixed(domain.MoneyPlaces),
			target,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write statement record %d: %w", tr.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush statement: %w", err)
	}
	return nil
}
