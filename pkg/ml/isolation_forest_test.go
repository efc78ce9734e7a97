package ml

import (
	"math/rand"
	"testing"
)

func clusteredData(n int) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	data := make([][]float64, n)
	for i := range data {
		// Dense cluster of ordinary HTTP traffic: no ssh, no admin path,
		// payload length around 20, no weird characters.
		data[i] = []float64{0, 0, 15 + rng.Float64()*10, 0}
	}
	return data
}

func TestIsolationForestFit(t *testing.T) {
	tests := []struct {
		name      string
		data      [][]float64
		expectErr bool
	}{
		{name: "no data", data: nil, expectErr: true},
		{name: "empty vectors", data: [][]float64{{}}, expectErr: true},
		{name: "valid", data: clusteredData(100), expectErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest := NewIsolationForest(50, 64, 0.02, 42)
			err := forest.Fit(tt.data)
			if (err != nil) != tt.expectErr {
				t.Errorf("Fit() error = %v, expectErr %v", err, tt.expectErr)
			}
			if !tt.expectErr && !forest.Fitted() {
				t.Error("forest should be fitted after successful Fit()")
			}
		})
	}
}

func TestIsolationForestDecisionValueUnfitted(t *testing.T) {
	forest := NewIsolationForest(50, 64, 0.02, 42)
	if _, err := forest.DecisionValue([]float64{0, 0, 20, 0}); err == nil {
		t.Error("DecisionValue() on unfitted forest should fail")
	}
}

func TestIsolationForestSeparatesOutliers(t *testing.T) {
	forest := NewIsolationForest(100, 128, 0.02, 42)
	if err := forest.Fit(clusteredData(300)); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}

	normal, err := forest.DecisionValue([]float64{0, 0, 20, 0})
	if err != nil {
		t.Fatalf("DecisionValue(normal) failed: %v", err)
	}
	outlier, err := forest.DecisionValue([]float64{1, 1, 500, 12})
	if err != nil {
		t.Fatalf("DecisionValue(outlier) failed: %v", err)
	}

	if outlier >= normal {
		t.Errorf("outlier decision %f should be below normal decision %f", outlier, normal)
	}
}

func TestIsolationForestReproducibleFit(t *testing.T) {
	data := clusteredData(200)
	probe := []float64{0, 0, 21, 0}

	a := NewIsolationForest(50, 64, 0.02, 42)
	b := NewIsolationForest(50, 64, 0.02, 42)
	if err := a.Fit(data); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}
	if err := b.Fit(data); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}

	da, _ := a.DecisionValue(probe)
	db, _ := b.DecisionValue(probe)
	if da != db {
		t.Errorf("same seed and data produced different decisions: %f vs %f", da, db)
	}
}
