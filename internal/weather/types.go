package weather

import (
	"strconv"
	"strings"
	"time"
)

// Unit is the measurement system the weather API is queried in.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// Toggle flips metric and imperial.
func (u Unit) Toggle() Unit {
	if u == UnitImperial {
		return UnitMetric
	}
	return UnitImperial
}

// ParseUnit maps a config value onto a Unit, defaulting to metric.
func ParseUnit(s string) Unit {
	if strings.EqualFold(strings.TrimSpace(s), string(UnitImperial)) {
		return UnitImperial
	}
	return UnitMetric
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition is the provider's weather condition code and text.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Snapshot is a point-in-time reading for one location. It is replaced
// wholesale on refresh and never patched.
type Snapshot struct {
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	TempMin     float64   `json:"temp_min"`
	TempMax     float64   `json:"temp_max"`
	Condition   Condition `json:"condition"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	WindDeg     float64   `json:"wind_deg"`
	Pressure    int       `json:"pressure"`
	Visibility  int       `json:"visibility"`
	Coord       Coord     `json:"coord"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
}

// ForecastInterval is one 3-hour record of the raw forecast payload.
type ForecastInterval struct {
	Time      time.Time `json:"time"`
	Temp      float64   `json:"temp"`
	TempMin   float64   `json:"temp_min"`
	TempMax   float64   `json:"temp_max"`
	Humidity  int       `json:"humidity"`
	WindSpeed float64   `json:"wind_speed"`
	Condition Condition `json:"condition"`
}

// RawForecast is the forecast payload as returned by the data source.
// A nil List means the provider response did not carry an interval list.
type RawForecast struct {
	City    string             `json:"city"`
	Country string             `json:"country"`
	Coord   Coord              `json:"coord"`
	List    []ForecastInterval `json:"list"`
}

// TempRange is the min/max temperature of one forecast day.
type TempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DailyForecast is one aggregated forecast day.
type DailyForecast struct {
	Date      time.Time `json:"date"`
	Temp      TempRange `json:"temp"`
	Condition Condition `json:"condition"`
	Humidity  int       `json:"humidity"`
	WindSpeed float64   `json:"wind_speed"`
}

// CitySuggestion is one geocoding match used for autocomplete.
type CitySuggestion struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c Coord) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 4, 64)
}
