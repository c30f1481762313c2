package weather

import (
	"math"
	"time"
)

// MaxForecastDays is the number of daily entries Aggregate returns at most.
const MaxForecastDays = 5

// Aggregate groups raw forecast intervals by calendar day in loc and returns
// at most MaxForecastDays daily entries in first-seen order.
//
// The first interval of a day seeds the entry's condition, humidity and wind.
// Later intervals of the same day only widen the temperature range.
func Aggregate(raw *RawForecast, loc *time.Location) ([]DailyForecast, error) {
	if raw == nil || raw.List == nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "forecast payload has no interval list"}
	}
	if loc == nil {
		loc = time.Local
	}

	type dayKey struct {
		year  int
		month time.Month
		day   int
	}

	index := make(map[dayKey]int)
	days := make([]DailyForecast, 0, MaxForecastDays)

	for _, item := range raw.List {
		t := item.Time.In(loc)
		k := dayKey{t.Year(), t.Month(), t.Day()}

		i, seen := index[k]
		if !seen {
			index[k] = len(days)
			days = append(days, DailyForecast{
				Date:      time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc),
				Temp:      TempRange{Min: item.TempMin, Max: item.TempMax},
				Condition: item.Condition,
				Humidity:  item.Humidity,
				WindSpeed: item.WindSpeed,
			})
			continue
		}

		days[i].Temp.Min = math.Min(days[i].Temp.Min, item.TempMin)
		days[i].Temp.Max = math.Max(days[i].Temp.Max, item.TempMax)
	}

	if len(days) > MaxForecastDays {
		days = days[:MaxForecastDays]
	}
	return days, nil
}
