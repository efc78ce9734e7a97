package ml

import (
	"reflect"
	"testing"

	"aegismesh/pkg/telemetry"
)

func TestVectorize(t *testing.T) {
	tests := []struct {
		name  string
		event telemetry.Event
		want  []float64
	}{
		{
			name:  "ssh probe",
			event: telemetry.Event{Service: "ssh", Payload: "root"},
			want:  []float64{1, 0, 4, 0},
		},
		{
			name:  "admin path",
			event: telemetry.Event{Service: "http", Path: "/Admin/login", Payload: "password123"},
			want:  []float64{0, 1, 11, 0},
		},
		{
			name:  "weird characters",
			event: telemetry.Event{Service: "http", Path: "/", Payload: "<script>"},
			want:  []float64{0, 0, 8, 2},
		},
		{
			name:  "telnet is not ssh",
			event: telemetry.Event{Service: "telnet", Payload: ""},
			want:  []float64{0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Vectorize(tt.event)
			if len(got) != NumFeatures {
				t.Fatalf("Vectorize() returned %d features, want %d", len(got), NumFeatures)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Vectorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorizeDeterministic(t *testing.T) {
	ev := telemetry.Event{Service: "ssh", Path: "/admin", Payload: "a$b|c"}
	first := Vectorize(ev)
	for i := 0; i < 10; i++ {
		if got := Vectorize(ev); !reflect.DeepEqual(got, first) {
			t.Fatalf("Vectorize() not deterministic: %v vs %v", got, first)
		}
	}
}
