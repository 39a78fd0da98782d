package clock

import "time"

// Clock da la fecha/hora actual. Today devuelve la fecha calendario
// (medianoche UTC) del instante local actual.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// RandomID genera tokens alfanuméricos (códigos de cita, etc).
type RandomID interface {
	RandomAlphanumeric(n int) string
}

// DateOf reduce t a su fecha calendario en su propia zona, expresada
// como medianoche UTC. Así dos fechas se comparan con Equal/Before/After
// sin depender de la zona.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InRange: d ∈ [from, to], todas fechas calendario.
func InRange(d, from, to time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(from)) && !d.After(DateOf(to))
}

const DateLayout = "2006-01-02"

// ParseDate parsea YYYY-MM-DD como fecha calendario.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// Fixed es un Clock congelado para tests.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time   { return f.At }
func (f Fixed) Today() time.Time { return DateOf(f.At) }
