// Package sl содержит вспомогательные функции для формирования
// структурированных атрибутов slog.
package sl

import "log/slog"

// Err возвращает атрибут с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to sync profile", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op возвращает атрибут с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
