// Package simulate generates plausible sensor fleets and readings for
// feeding a sensorlog store. Values follow bounded random walks per metric
// so consecutive readings from a sensor look like a real signal rather than
// white noise, and a configurable fraction of readings carry injected
// anomalies.
package simulate

import (
	"fmt"
	"math/rand"
	"time"
)

// SensorType identifies the metric profile a sensor emits.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorPressure    SensorType = "pressure"
	SensorVibration   SensorType = "vibration"
	SensorVoltage     SensorType = "voltage"
	SensorMulti       SensorType = "multi"
)

var sensorTypes = []SensorType{
	SensorTemperature, SensorHumidity, SensorPressure,
	SensorVibration, SensorVoltage, SensorMulti,
}

var manufacturers = []struct {
	name   string
	models []string
}{
	{"Siemens", []string{"SM-100", "SM-230", "SM-450"}},
	{"Honeywell", []string{"HW-7A", "HW-12C"}},
	{"Bosch", []string{"BME-280", "BMP-390"}},
	{"Omron", []string{"D6T-1A", "E3X-HD"}},
	{"Schneider", []string{"SE-EM64", "SE-TH110"}},
}

var deploymentTypes = []string{"indoor", "outdoor", "underground", "rooftop"}

var locations = []string{
	"factory-floor-a", "factory-floor-b", "warehouse-1", "warehouse-2",
	"cold-storage", "loading-dock", "boiler-room", "server-room",
	"pump-station", "substation-east",
}

var timezones = []string{
	"UTC", "America/New_York", "Europe/Berlin", "Asia/Tokyo",
	"Australia/Sydney",
}

// Sensor is a simulated device identity. Its metadata fields are fixed at
// creation and repeated on every reading the sensor emits.
type Sensor struct {
	ID               string
	Type             SensorType
	SerialNumber     string
	FirmwareVersion  string
	Model            string
	Manufacturer     string
	Location         string
	Latitude         float64
	Longitude        float64
	Timezone         string
	ManufactureDate  string
	DeploymentType   string
	InstallationDate string
	HeightMeters     float64
	Orientation      float64
	InstanceID       string
}

// FleetConfig controls fleet generation.
type FleetConfig struct {
	// NumSensors is the fleet size.
	NumSensors int

	// Seed seeds the random source. Zero means derive from the clock.
	Seed int64

	// BaseLatitude and BaseLongitude anchor the fleet geographically;
	// individual sensors are fuzzed around this point.
	BaseLatitude  float64
	BaseLongitude float64

	// GeoSpreadDegrees is the maximum coordinate offset applied to each
	// sensor in either axis.
	GeoSpreadDegrees float64
}

// DefaultFleetConfig returns a fleet anchored near Rotterdam harbor with
// 20 sensors.
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		NumSensors:       20,
		BaseLatitude:     51.9244,
		BaseLongitude:    4.4777,
		GeoSpreadDegrees: 0.05,
	}
}

// NewFleet builds a deterministic fleet from the config. The same seed
// always yields the same sensors.
func NewFleet(cfg FleetConfig) []Sensor {
	if cfg.NumSensors <= 0 {
		cfg.NumSensors = DefaultFleetConfig().NumSensors
	}
	if cfg.GeoSpreadDegrees == 0 {
		cfg.GeoSpreadDegrees = DefaultFleetConfig().GeoSpreadDegrees
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	sensors := make([]Sensor, 0, cfg.NumSensors)
	for i := 0; i < cfg.NumSensors; i++ {
		mfr := manufacturers[rng.Intn(len(manufacturers))]
		typ := sensorTypes[rng.Intn(len(sensorTypes))]
		manufactured := time.Date(2018+rng.Intn(6), time.Month(1+rng.Intn(12)),
			1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		installed := manufactured.AddDate(0, 1+rng.Intn(18), rng.Intn(28))

		sensors = append(sensors, Sensor{
			ID:               fmt.Sprintf("sensor_%03d", i+1),
			Type:             typ,
			SerialNumber:     fmt.Sprintf("SN-%08d", rng.Intn(100000000)),
			FirmwareVersion:  fmt.Sprintf("%d.%d.%d", 1+rng.Intn(3), rng.Intn(10), rng.Intn(20)),
			Model:            mfr.models[rng.Intn(len(mfr.models))],
			Manufacturer:     mfr.name,
			Location:         locations[rng.Intn(len(locations))],
			Latitude:         cfg.BaseLatitude + (rng.Float64()*2-1)*cfg.GeoSpreadDegrees,
			Longitude:        cfg.BaseLongitude + (rng.Float64()*2-1)*cfg.GeoSpreadDegrees,
			Timezone:         timezones[rng.Intn(len(timezones))],
			ManufactureDate:  manufactured.Format("2006-01-02"),
			DeploymentType:   deploymentTypes[rng.Intn(len(deploymentTypes))],
			InstallationDate: installed.Format("2006-01-02"),
			HeightMeters:     0.5 + rng.Float64()*29.5,
			Orientation:      rng.Float64() * 360,
			InstanceID:       fmt.Sprintf("inst-%04x", rng.Intn(0x10000)),
		})
	}
	return sensors
}
