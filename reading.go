package sensorlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Reading represents a single sensor observation. Timestamp and SensorID are
// required; every other field is optional and maps to NULL when nil.
// A Reading is immutable once constructed: it is only ever inserted, never
// updated.
type Reading struct {
	// Timestamp is the observation time in ISO-8601 / RFC 3339 format.
	Timestamp string `json:"timestamp"`
	// SensorID identifies the emitting sensor.
	SensorID string `json:"sensor_id"`

	// Measurement fields.
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Vibration   *float64 `json:"vibration,omitempty"`
	Voltage     *float64 `json:"voltage,omitempty"`
	StatusCode  *int64   `json:"status_code,omitempty"`

	// AnomalyFlag marks the reading as anomalous; AnomalyType names the
	// injected anomaly pattern when set.
	AnomalyFlag bool    `json:"anomaly_flag"`
	AnomalyType *string `json:"anomaly_type,omitempty"`

	// Static identity and deployment metadata.
	FirmwareVersion    *string  `json:"firmware_version,omitempty"`
	Model              *string  `json:"model,omitempty"`
	Manufacturer       *string  `json:"manufacturer,omitempty"`
	Location           *string  `json:"location,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	OriginalTimezone   *string  `json:"original_timezone,omitempty"`
	SerialNumber       *string  `json:"serial_number,omitempty"`
	ManufactureDate    *string  `json:"manufacture_date,omitempty"`
	DeploymentType     *string  `json:"deployment_type,omitempty"`
	InstallationDate   *string  `json:"installation_date,omitempty"`
	HeightMeters       *float64 `json:"height_meters,omitempty"`
	OrientationDegrees *float64 `json:"orientation_degrees,omitempty"`
	InstanceID         *string  `json:"instance_id,omitempty"`
	SensorType         *string  `json:"sensor_type,omitempty"`
}

// StoredReading is a Reading as read back from the store, carrying the
// auto-assigned row id.
type StoredReading struct {
	ID int64 `json:"id"`
	Reading
}

// Float returns a pointer to v, for populating optional Reading fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for populating optional Reading fields.
func Int(v int64) *int64 { return &v }

// Str returns a pointer to v, for populating optional Reading fields.
func Str(v string) *string { return &v }

// Validate checks the required fields. Optional fields cannot be invalid by
// construction — the fixed field set is the schema.
func (r Reading) Validate() error {
	if r.SensorID == "" {
		return fmt.Errorf("%w: sensor_id is required", ErrInvalidReading)
	}
	if r.Timestamp == "" {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidReading)
	}
	if _, err := time.Parse(time.RFC3339Nano, r.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q is not ISO-8601: %v", ErrInvalidReading, r.Timestamp, err)
	}
	return nil
}

// insertColumns is the column list for bulk inserts, in schema order
// (excluding the auto-increment id).
var insertColumns = []string{
	"timestamp", "sensor_id",
	"temperature", "humidity", "pressure", "vibration", "voltage",
	"status_code", "anomaly_flag", "anomaly_type",
	"firmware_version", "model", "manufacturer", "location",
	"latitude", "longitude", "original_timezone",
	"serial_number", "manufacture_date", "deployment_type",
	"installation_date", "height_meters", "orientation_degrees",
	"instance_id", "sensor_type",
}

// insertSQL builds the parameterized INSERT statement for sensor_readings.
func insertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertColumns)), ", ")
	return fmt.Sprintf("INSERT INTO sensor_readings (%s) VALUES (%s)",
		strings.Join(insertColumns, ", "), placeholders)
}

// insertArgs returns the reading's values in insertColumns order. Nil
// pointers become NULL.
func (r Reading) insertArgs() []any {
	flag := 0
	if r.AnomalyFlag {
		flag = 1
	}
	return []any{
		r.Timestamp, r.SensorID,
		r.Temperature, r.Humidity, r.Pressure, r.Vibration, r.Voltage,
		r.StatusCode, flag, r.AnomalyType,
		r.FirmwareVersion, r.Model, r.Manufacturer, r.Location,
		r.Latitude, r.Longitude, r.OriginalTimezone,
		r.SerialNumber, r.ManufactureDate, r.DeploymentType,
		r.InstallationDate, r.HeightMeters, r.OrientationDegrees,
		r.InstanceID, r.SensorType,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStoredReading scans one sensor_readings row selected with selectColumns.
func scanStoredReading(sc rowScanner) (StoredReading, error) {
	var (
		out                           StoredReading
		temp, hum, pres, vib, volt    sql.NullFloat64
		status                        sql.NullInt64
		flag                          int64
		atype, fw, model, manuf, loc  sql.NullString
		lat, lon                      sql.NullFloat64
		tz, serial, mdate, dep, idate sql.NullString
		height, orient                sql.NullFloat64
		inst, stype                   sql.NullString
	)
	err := sc.Scan(
		&out.ID, &out.Timestamp, &out.SensorID,
		&temp, &hum, &pres, &vib, &volt,
		&status, &flag, &atype,
		&fw, &model, &manuf, &loc,
		&lat, &lon, &tz,
		&serial, &mdate, &dep,
		&idate, &height, &orient,
		&inst, &stype,
	)
	if err != nil {
		return StoredReading{}, err
	}
	out.AnomalyFlag = flag != 0
	out.Temperature = nullFloat(temp)
	out.Humidity = nullFloat(hum)
	out.Pressure = nullFloat(pres)
	out.Vibration = nullFloat(vib)
	out.Voltage = nullFloat(volt)
	out.StatusCode = nullInt(status)
	out.AnomalyType = nullStr(atype)
	out.FirmwareVersion = nullStr(fw)
	out.Model = nullStr(model)
	out.Manufacturer = nullStr(manuf)
	out.Location = nullStr(loc)
	out.Latitude = nullFloat(lat)
	out.Longitude = nullFloat(lon)
	out.OriginalTimezone = nullStr(tz)
	out.SerialNumber = nullStr(serial)
	out.ManufactureDate = nullStr(mdate)
	out.DeploymentType = nullStr(dep)
	out.InstallationDate = nullStr(idate)
	out.HeightMeters = nullFloat(height)
	out.OrientationDegrees = nullFloat(orient)
	out.InstanceID = nullStr(inst)
	out.SensorType = nullStr(stype)
	return out, nil
}

// selectColumns is the column list scanStoredReading expects, id first.
func selectColumns() string {
	return "id, " + strings.Join(insertColumns, ", ")
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
