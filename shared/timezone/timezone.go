package timezone

import (
	"benzback/config"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimezone = "UTC"

var appLocation atomic.Pointer[time.Location]

func init() {
	SetLocation(Load(config.Get().App.Timezone))
}

// Load resolves an IANA zone name, falling back to UTC when it is empty or unknown.
func Load(name string) *time.Location {
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")

		name = defaultTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Failed to load timezone, falling back to UTC")

		return time.UTC
	}

	log.Info().Str("timezone", name).Msg("Application timezone initialized")

	return loc
}

// SetLocation replaces the application timezone. A nil location means UTC.
func SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}

	appLocation.Store(loc)
}

func GetLocation() *time.Location {
	if loc := appLocation.Load(); loc != nil {
		return loc
	}

	return time.UTC
}

func Now() time.Time {
	return time.Now().In(GetLocation())
}

func ToAppTime(t time.Time) time.Time {
	return t.In(GetLocation())
}

// Parse reads value in the application timezone when the layout carries no offset.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, GetLocation()) //nolint:wrapcheck
}

func Format(t time.Time, layout string) string {
	return ToAppTime(t).Format(layout)
}

// StartOfDay is midnight of t's calendar day in the application timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToAppTime(t)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// SameOrAfterDay reports whether t falls on day's calendar day or later.
func SameOrAfterDay(t, day time.Time) bool {
	return !StartOfDay(t).Before(StartOfDay(day))
}
