package alerts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	errx "github.com/tripgenie/agent-server/internal/core/error"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

const (
	// criticalWindSpeed is in m/s.
	criticalWindSpeed = 15.0
	// forecasts from one day after to five days before the trip start count
	windowAfterStartDays  = -1.0
	windowBeforeStartDays = 5.0
	// warnings only notify this close to the trip
	warningNoticeDays = 7.0
)

var (
	severeConditions  = []string{"Thunderstorm", "Snow", "Extreme", "Tornado", "Squall"}
	warningConditions = []string{"Rain", "Drizzle", "Fog", "Haze"}
)

// Forecast is one 3-hour entry of the provider's forecast list.
type Forecast struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (f Forecast) At() time.Time {
	return time.Unix(f.Dt, 0).UTC()
}

type forecastResponse struct {
	Message any        `json:"message"`
	List    []Forecast `json:"list"`
}

// WeatherAlert is the first forecast entry severe enough to report.
type WeatherAlert struct {
	Severity   Severity  `json:"severity"`
	Condition  string    `json:"condition"`
	Temp       float64   `json:"temp"`
	WindSpeed  float64   `json:"windSpeed"`
	ForecastAt time.Time `json:"forecastAt"`
}

// Assessment is the outcome of checking a trip against its forecast.
type Assessment struct {
	Destination   string        `json:"destination"`
	StartDate     string        `json:"startDate"`
	DaysUntilTrip float64       `json:"daysUntilTrip"`
	Alert         *WeatherAlert `json:"alert"`
	ShouldNotify  bool          `json:"shouldNotify"`
	ShouldReplan  bool          `json:"shouldReplan"`
}

// ParseForecast decodes the provider's forecast body. A body without a list
// (e.g. city not found) is a lookup error carrying the provider message.
func ParseForecast(raw string) ([]Forecast, error) {
	var resp forecastResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, errx.Provider("openweather", fmt.Errorf("decode forecast: %w", err))
	}
	if resp.List == nil {
		return nil, errx.Lookup(fmt.Sprintf("forecast unavailable: %v", resp.Message))
	}
	return resp.List, nil
}

// ParseTripDate accepts YYYY-MM-DD or RFC 3339 timestamps.
func ParseTripDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errx.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// RelevantForecasts keeps entries within [-1, 5] days before the trip start.
func RelevantForecasts(list []Forecast, tripStart time.Time) []Forecast {
	out := make([]Forecast, 0, len(list))
	for _, f := range list {
		diff := daysBetween(f.At(), tripStart)
		if diff >= windowAfterStartDays && diff <= windowBeforeStartDays {
			out = append(out, f)
		}
	}
	return out
}

// AssessSeverity returns an alert for the first critical or warning entry,
// in forecast order, or nil when nothing qualifies.
func AssessSeverity(list []Forecast) *WeatherAlert {
	for _, f := range list {
		if len(f.Weather) == 0 {
			continue
		}
		main := f.Weather[0].Main
		alert := &WeatherAlert{
			Condition:  f.Weather[0].Description,
			Temp:       f.Main.Temp,
			WindSpeed:  f.Wind.Speed,
			ForecastAt: f.At(),
		}
		if containsAny(main, severeConditions) || f.Wind.Speed > criticalWindSpeed {
			alert.Severity = SeverityCritical
			return alert
		}
		if containsAny(main, warningConditions) {
			alert.Severity = SeverityWarning
			return alert
		}
	}
	return nil
}

// ShouldNotify: always for critical, for warnings only within a week of the trip.
func ShouldNotify(alert *WeatherAlert, daysUntilTrip float64) bool {
	if alert == nil {
		return false
	}
	switch alert.Severity {
	case SeverityCritical:
		return true
	case SeverityWarning:
		return daysUntilTrip <= warningNoticeDays
	}
	return false
}

// ShouldReplan is true only for critical alerts.
func ShouldReplan(alert *WeatherAlert) bool {
	return alert != nil && alert.Severity == SeverityCritical
}

// Assess runs the full rule chain over a raw forecast body.
func Assess(destination, startDate, rawForecast string, now time.Time) (*Assessment, error) {
	tripStart, err := ParseTripDate(startDate)
	if err != nil {
		return nil, err
	}
	list, err := ParseForecast(rawForecast)
	if err != nil {
		return nil, err
	}

	days := daysBetween(now, tripStart)
	alert := AssessSeverity(RelevantForecasts(list, tripStart))
	return &Assessment{
		Destination:   destination,
		StartDate:     startDate,
		DaysUntilTrip: days,
		Alert:         alert,
		ShouldNotify:  ShouldNotify(alert, days),
		ShouldReplan:  ShouldReplan(alert),
	}, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
