package collector

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// serviceDayCalendar classifies the service schedule in effect on a given
// day. CTA runs a Sunday-style schedule on observed holidays.
type serviceDayCalendar struct {
	calendar *cal.BusinessCalendar
}

// makeServiceDayCalendar builds serviceDayCalendar with the holidays the
// agency observes.
// TODO:: should be customizable by transit agency rather than being hardcoded as it is now.
func makeServiceDayCalendar() *serviceDayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &serviceDayCalendar{calendar: calendar}
}

// serviceDay returns weekday, saturday, sunday or holiday for at
func (s *serviceDayCalendar) serviceDay(at time.Time) string {
	_, observed, _ := s.calendar.IsHoliday(at)
	if observed {
		return "holiday"
	}
	switch at.Weekday() {
	case time.Saturday:
		return "saturday"
	case time.Sunday:
		return "sunday"
	}
	return "weekday"
}
