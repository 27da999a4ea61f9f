package profile

import "testing"

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"", MetricTemperature, false},
		{"temperature", MetricTemperature, false},
		{"salinity", MetricSalinity, false},
		{"oxygen", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMetric(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPoints(t *testing.T) {
	s := Series{
		{Depth: 0, Temperature: 19.1, Salinity: 35.02},
		{Depth: 5, Temperature: 18.9, Salinity: 35.04},
	}

	temps := s.Points(MetricTemperature)
	if temps[1].X != 18.9 || temps[1].Y != 5 {
		t.Errorf("temperature point = %+v, want {18.9 5}", temps[1])
	}
	sals := s.Points(MetricSalinity)
	if sals[0].X != 35.02 || sals[0].Y != 0 {
		t.Errorf("salinity point = %+v, want {35.02 0}", sals[0])
	}
}

func TestLayerAt(t *testing.T) {
	tests := []struct {
		depth int
		want  Layer
	}{
		{0, LayerMixed},
		{199, LayerMixed},
		{200, LayerThermocline},
		{999, LayerThermocline},
		{1000, LayerDeep},
		{2000, LayerDeep},
	}
	for _, tt := range tests {
		if got := LayerAt(tt.depth); got != tt.want {
			t.Errorf("LayerAt(%d) = %s, want %s", tt.depth, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	rows := Generate(NewRequest("4902345", "2024-01-15", 2000))
	sum, err := Summarize(rows)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if sum.Rows != 401 || sum.Step != 5 {
		t.Errorf("Rows/Step = %d/%d, want 401/5", sum.Rows, sum.Step)
	}
	if sum.Temperature.Max < rows[0].Temperature {
		t.Errorf("max temperature %v below surface %v", sum.Temperature.Max, rows[0].Temperature)
	}
	if sum.Temperature.Min > sum.Temperature.Mean || sum.Temperature.Mean > sum.Temperature.Max {
		t.Errorf("temperature stats out of order: %+v", sum.Temperature)
	}
	if sum.Salinity.Unit != "PSU" || sum.Temperature.Unit != "°C" {
		t.Errorf("units = %q/%q", sum.Temperature.Unit, sum.Salinity.Unit)
	}
	if sum.Layers[LayerMixed] != 40 || sum.Layers[LayerThermocline] != 160 || sum.Layers[LayerDeep] != 201 {
		t.Errorf("layers = %v, want mixed=40 thermocline=160 deep=201", sum.Layers)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum, err := Summarize(nil)
	if err != nil {
		t.Fatalf("Summarize(nil): %v", err)
	}
	if sum.Rows != 0 {
		t.Errorf("Rows = %d, want 0", sum.Rows)
	}
}
