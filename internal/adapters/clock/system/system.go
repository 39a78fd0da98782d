package system

import (
	"strings"
	"time"

	"clinic-records/internal/ports/clock"

	"github.com/google/uuid"
)

// Clock usa la hora local del proceso.
type Clock struct{}

func (Clock) Now() time.Time   { return time.Now() }
func (Clock) Today() time.Time { return clock.DateOf(time.Now()) }

// Random deriva los tokens de UUIDv4 (hex en mayúsculas).
type Random struct{}

func (Random) RandomAlphanumeric(n int) string {
	if n <= 0 {
		return ""
	}
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return strings.ToUpper(sb.String()[:n])
}
