package logging

import (
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers only import this package
type Attr = slog.Attr

// Common attribute keys
const (
	FieldEventType = "event_type"
	FieldPath      = "path"
	FieldDest      = "destination"
	FieldStatus    = "status"
)

func String(key string, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Path(value string) Attr { return slog.String(FieldPath, value) }

func Event(value string) Attr { return slog.String(FieldEventType, value) }

// Error renders err under the "error" key
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}
