package oplog

import (
	"context"
	"time"
)

type Repository interface {
	Append(ctx context.Context, e Entry) error
	// ListBetween devuelve las entradas cuya fecha calendario de TS está
	// en [from, to], ordenadas por TS ascendente.
	ListBetween(ctx context.Context, from, to time.Time) ([]Entry, error)
}

// Recorder es lo que usan los demás módulos para registrar operaciones.
type Recorder interface {
	Record(ctx context.Context, typ EventType, message, petID string) (Entry, error)
}
