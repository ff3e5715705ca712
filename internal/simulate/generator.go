package simulate

import (
	"math/rand"
	"time"

	"github.com/sensorgrid/sensorlog"
)

// AnomalyKind names an injected anomaly pattern.
type AnomalyKind string

const (
	// AnomalySpike multiplies the current value far outside its band.
	AnomalySpike AnomalyKind = "spike"
	// AnomalyDrift offsets the walk baseline for subsequent readings.
	AnomalyDrift AnomalyKind = "drift"
	// AnomalyDropout emits a reading with the measurement missing and an
	// error status code.
	AnomalyDropout AnomalyKind = "dropout"
	// AnomalyNoise adds high-variance jitter to every metric.
	AnomalyNoise AnomalyKind = "noise"
)

var anomalyKinds = []AnomalyKind{AnomalySpike, AnomalyDrift, AnomalyDropout, AnomalyNoise}

// metricBand bounds a random walk: values stay within [min, max] and move
// by at most step per reading.
type metricBand struct {
	min, max, step float64
}

var bands = map[string]metricBand{
	"temperature": {min: -10, max: 45, step: 0.6},
	"humidity":    {min: 10, max: 95, step: 1.5},
	"pressure":    {min: 980, max: 1040, step: 0.8},
	"vibration":   {min: 0, max: 5, step: 0.15},
	"voltage":     {min: 3.0, max: 3.6, step: 0.02},
}

// walkState carries one sensor's per-metric walk position and any active
// drift offset.
type walkState struct {
	values map[string]float64
	drift  float64
}

// GeneratorConfig controls reading generation.
type GeneratorConfig struct {
	// AnomalyRate is the probability in [0, 1] that a reading carries an
	// injected anomaly.
	AnomalyRate float64

	// Seed seeds the random source. Zero means derive from the clock.
	Seed int64
}

// DefaultGeneratorConfig injects anomalies into 2% of readings.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{AnomalyRate: 0.02}
}

// Generator produces readings for a fleet. It is not safe for concurrent
// use; run one generator per goroutine.
type Generator struct {
	cfg     GeneratorConfig
	sensors []Sensor
	state   map[string]*walkState
	rng     *rand.Rand
}

// NewGenerator creates a generator over the given fleet.
func NewGenerator(sensors []Sensor, cfg GeneratorConfig) *Generator {
	if cfg.AnomalyRate < 0 {
		cfg.AnomalyRate = 0
	}
	if cfg.AnomalyRate > 1 {
		cfg.AnomalyRate = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Generator{
		cfg:     cfg,
		sensors: sensors,
		state:   make(map[string]*walkState, len(sensors)),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for _, s := range sensors {
		st := &walkState{values: make(map[string]float64, len(bands))}
		for name, b := range bands {
			st.values[name] = b.min + g.rng.Float64()*(b.max-b.min)
		}
		g.state[s.ID] = st
	}
	return g
}

// Sensors returns the fleet the generator was built over.
func (g *Generator) Sensors() []Sensor { return g.sensors }

// Batch produces one reading per sensor, all stamped at now.
func (g *Generator) Batch(now time.Time) []sensorlog.Reading {
	out := make([]sensorlog.Reading, 0, len(g.sensors))
	for i := range g.sensors {
		out = append(out, g.Next(&g.sensors[i], now))
	}
	return out
}

// Next produces the sensor's next reading. Walk state advances so repeated
// calls trace a continuous signal.
func (g *Generator) Next(s *Sensor, now time.Time) sensorlog.Reading {
	st := g.state[s.ID]
	r := sensorlog.Reading{
		Timestamp:          now.UTC().Format(time.RFC3339Nano),
		SensorID:           s.ID,
		StatusCode:         sensorlog.Int(200),
		FirmwareVersion:    sensorlog.Str(s.FirmwareVersion),
		Model:              sensorlog.Str(s.Model),
		Manufacturer:       sensorlog.Str(s.Manufacturer),
		Location:           sensorlog.Str(s.Location),
		Latitude:           sensorlog.Float(s.Latitude),
		Longitude:          sensorlog.Float(s.Longitude),
		OriginalTimezone:   sensorlog.Str(s.Timezone),
		SerialNumber:       sensorlog.Str(s.SerialNumber),
		ManufactureDate:    sensorlog.Str(s.ManufactureDate),
		DeploymentType:     sensorlog.Str(s.DeploymentType),
		InstallationDate:   sensorlog.Str(s.InstallationDate),
		HeightMeters:       sensorlog.Float(s.HeightMeters),
		OrientationDegrees: sensorlog.Float(s.Orientation),
		InstanceID:         sensorlog.Str(s.InstanceID),
		SensorType:         sensorlog.Str(string(s.Type)),
	}

	var kind AnomalyKind
	if g.rng.Float64() < g.cfg.AnomalyRate {
		kind = anomalyKinds[g.rng.Intn(len(anomalyKinds))]
		r.AnomalyFlag = true
		r.AnomalyType = sensorlog.Str(string(kind))
	}

	if kind == AnomalyDropout {
		// Device reported in but the measurement path failed.
		r.StatusCode = sensorlog.Int(503)
		return r
	}
	if kind == AnomalyDrift {
		st.drift += (g.rng.Float64()*2 - 1) * 5
	}

	g.fillMetrics(&r, s.Type, st, kind)
	return r
}

func (g *Generator) fillMetrics(r *sensorlog.Reading, typ SensorType, st *walkState, kind AnomalyKind) {
	emit := func(name string) *float64 {
		v := g.step(name, st)
		if kind == AnomalySpike {
			b := bands[name]
			v = b.max + (b.max-b.min)*(0.5+g.rng.Float64())
		}
		if kind == AnomalyNoise {
			b := bands[name]
			v += (g.rng.Float64()*2 - 1) * b.step * 10
		}
		return sensorlog.Float(v)
	}

	switch typ {
	case SensorTemperature:
		r.Temperature = emit("temperature")
	case SensorHumidity:
		r.Humidity = emit("humidity")
	case SensorPressure:
		r.Pressure = emit("pressure")
	case SensorVibration:
		r.Vibration = emit("vibration")
	case SensorVoltage:
		r.Voltage = emit("voltage")
	case SensorMulti:
		r.Temperature = emit("temperature")
		r.Humidity = emit("humidity")
		r.Pressure = emit("pressure")
		r.Vibration = emit("vibration")
		r.Voltage = emit("voltage")
	}
}

// step advances one metric's bounded random walk and returns the new value.
func (g *Generator) step(name string, st *walkState) float64 {
	b := bands[name]
	v := st.values[name] + (g.rng.Float64()*2-1)*b.step
	if v < b.min {
		v = b.min
	}
	if v > b.max {
		v = b.max
	}
	st.values[name] = v
	return v + st.drift
}
