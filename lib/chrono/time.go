package chrono

import (
	"time"

	_ "time/tzdata"
)

var frankfurt *time.Location

func init() {
	var err error
	frankfurt, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
}

// Frankfurt returns the location Euribor and the ECB publish in.
func Frankfurt() *time.Location {
	return frankfurt
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Europe/Berlin.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(frankfurt)
}

// FixedTime always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(frankfurt)
}
