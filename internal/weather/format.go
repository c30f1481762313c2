package weather

import (
	"fmt"
	"math"
	"time"
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// FormatTemperature renders a rounded temperature with the unit's symbol.
func FormatTemperature(temp float64, unit Unit) string {
	symbol := "°C"
	if unit == UnitImperial {
		symbol = "°F"
	}
	return fmt.Sprintf("%d%s", int(math.Round(temp)), symbol)
}

// FormatWindSpeed renders wind speed in m/s (metric) or mph (imperial).
func FormatWindSpeed(speed float64, unit Unit) string {
	suffix := "m/s"
	if unit == UnitImperial {
		suffix = "mph"
	}
	return fmt.Sprintf("%d %s", int(math.Round(speed)), suffix)
}

// FormatVisibility renders a visibility in metres as km or miles.
func FormatVisibility(metres int, unit Unit) string {
	if unit == UnitImperial {
		return fmt.Sprintf("%.1f mi", float64(metres)*0.000621371)
	}
	return fmt.Sprintf("%.1f km", float64(metres)/1000)
}

// WindDirection maps degrees onto a 16-point compass label.
func WindDirection(deg float64) string {
	i := int(math.Round(deg/22.5)) % 16
	if i < 0 {
		i += 16
	}
	return compassPoints[i]
}

// IsDayTime reports whether at falls between sunrise and sunset inclusive.
func IsDayTime(sunrise, sunset, at time.Time) bool {
	return !at.Before(sunrise) && !at.After(sunset)
}

// Display is a snapshot rendered for presentation in one unit.
type Display struct {
	Temperature   string `json:"temperature"`
	FeelsLike     string `json:"feels_like"`
	Wind          string `json:"wind"`
	WindDirection string `json:"wind_direction"`
	Visibility    string `json:"visibility"`
	IsDay         bool   `json:"is_day"`
}

// Present renders s in unit as seen at now.
func Present(s Snapshot, unit Unit, now time.Time) Display {
	return Display{
		Temperature:   FormatTemperature(s.Temperature, unit),
		FeelsLike:     FormatTemperature(s.FeelsLike, unit),
		Wind:          FormatWindSpeed(s.WindSpeed, unit),
		WindDirection: WindDirection(s.WindDeg),
		Visibility:    FormatVisibility(s.Visibility, unit),
		IsDay:         IsDayTime(s.Sunrise, s.Sunset, now),
	}
}
