package ingest

import (
	"strings"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"34.700 N", 34.7, false},
		{"72.700 W", -72.7, false},
		{"23.5 S", -23.5, false},
		{"146.977E", 146.977, false},
		{"  0.000 N  ", 0, false},
		{"34.700", 0, true},
		{"N", 0, true},
		{"", 0, true},
		{"garbage", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCoordinate(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCoordinate(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCoordinate(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCoordinate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	p := NewStationParser(nil)

	tests := []struct {
		stationID string
		want      string
	}{
		{"41001", "atlantic"},
		{"42001", "gulf"},
		{"44013", "atlantic"},
		{"45007", "great_lakes"},
		{"46042", "pacific"},
		{"51001", "pacific"},
		{"52200", "pacific"},
		{"99999", "other"},
		{"32012", "other"},
	}

	for _, tt := range tests {
		if got := p.Classify(tt.stationID); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.stationID, got, tt.want)
		}
	}
}

func TestStationParser_Parse(t *testing.T) {
	p := NewStationParser(nil)

	input := strings.Join([]string{
		"# STATION_ID | OWNER | LOCATION | NOTE",
		"|---------|---------|---------|",
		"41001 | LLNR 815 | 34.700 N | 72.700 W | extra | columns",
		"42001 | MID GULF | 25.897 N | 89.668 W",
		"SANF1 | Sand Key | 24.456 N | 81.877 W",
		"46042 | Monterey",
		"51001 | NW Hawaii | bogus | 162.0 W",
		"",
	}, "\n")

	stations := p.Parse([]byte(input))
	if len(stations) != 2 {
		t.Fatalf("len(stations) = %d, want 2", len(stations))
	}

	first := stations[0]
	if first.StationID != "41001" {
		t.Errorf("StationID = %q, want 41001", first.StationID)
	}
	if first.Name != "LLNR 815" {
		t.Errorf("Name = %q, want 'LLNR 815'", first.Name)
	}
	if first.Latitude != 34.7 {
		t.Errorf("Latitude = %v, want 34.7", first.Latitude)
	}
	if first.Longitude != -72.7 {
		t.Errorf("Longitude = %v, want -72.7", first.Longitude)
	}
	if first.Region != "atlantic" {
		t.Errorf("Region = %q, want atlantic", first.Region)
	}
	if first.StationType != "buoy" {
		t.Errorf("StationType = %q, want buoy", first.StationType)
	}
	if !first.Active {
		t.Error("Active = false, want true")
	}

	if stations[1].Region != "gulf" {
		t.Errorf("Region = %q, want gulf", stations[1].Region)
	}
}

func TestStationParser_Parse_TruncatesName(t *testing.T) {
	p := NewStationParser(nil)

	longName := strings.Repeat("x", 300)
	input := "41001 | " + longName + " | 34.700 N | 72.700 W"

	stations := p.Parse([]byte(input))
	if len(stations) != 1 {
		t.Fatalf("len(stations) = %d, want 1", len(stations))
	}
	if len(stations[0].Name) != maxStationNameLen {
		t.Errorf("len(Name) = %d, want %d", len(stations[0].Name), maxStationNameLen)
	}
}

func TestStationParser_Parse_CustomRegions(t *testing.T) {
	p := NewStationParser(RegionMap{"41": "west_atlantic"})

	if got := p.Classify("41001"); got != "west_atlantic" {
		t.Errorf("Classify(41001) = %q, want west_atlantic", got)
	}
	if got := p.Classify("46042"); got != "other" {
		t.Errorf("Classify(46042) = %q, want other", got)
	}
}
