package sensorlog

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReadingValidate(t *testing.T) {
	valid := Reading{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SensorID:  "sensor_001",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("minimal reading should validate: %v", err)
	}

	cases := []struct {
		name string
		r    Reading
	}{
		{"empty", Reading{}},
		{"no sensor", Reading{Timestamp: "2026-08-01T12:00:00Z"}},
		{"no timestamp", Reading{SensorID: "sensor_001"}},
		{"garbage timestamp", Reading{SensorID: "sensor_001", Timestamp: "last tuesday"}},
		{"date only", Reading{SensorID: "sensor_001", Timestamp: "2026-08-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.r.Validate(); !errors.Is(err, ErrInvalidReading) {
				t.Errorf("expected ErrInvalidReading, got %v", err)
			}
		})
	}
}

func TestInsertSQLShape(t *testing.T) {
	sql := insertSQL()
	if !strings.HasPrefix(sql, "INSERT INTO sensor_readings (") {
		t.Errorf("unexpected statement prefix: %s", sql)
	}
	if got := strings.Count(sql, "?"); got != len(insertColumns) {
		t.Errorf("expected %d placeholders, got %d", len(insertColumns), got)
	}
}

func TestInsertArgsMatchColumns(t *testing.T) {
	r := Reading{
		Timestamp:   "2026-08-01T12:00:00Z",
		SensorID:    "sensor_001",
		AnomalyFlag: true,
	}
	args := r.insertArgs()
	if len(args) != len(insertColumns) {
		t.Fatalf("expected %d args, got %d", len(insertColumns), len(args))
	}
	if args[0] != "2026-08-01T12:00:00Z" || args[1] != "sensor_001" {
		t.Errorf("required fields out of order: %v %v", args[0], args[1])
	}
	// anomaly_flag is column 9 and stored as an integer.
	if args[8] != 1 {
		t.Errorf("anomaly flag should store as 1, got %v", args[8])
	}
	if got := (Reading{}).insertArgs()[8]; got != 0 {
		t.Errorf("unflagged reading should store 0, got %v", got)
	}
}

func TestHelperPointers(t *testing.T) {
	if *Float(1.5) != 1.5 {
		t.Error("Float helper")
	}
	if *Int(7) != 7 {
		t.Error("Int helper")
	}
	if *Str("x") != "x" {
		t.Error("Str helper")
	}
}
