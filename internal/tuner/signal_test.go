package tuner

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name      string
		signal    int
		snr       int
		wantSSDb  float64
		wantSNRDb float64
	}{
		{name: "strong", signal: 86, snr: 19, wantSSDb: -47.0, wantSNRDb: 5.9},
		{name: "top bucket edge", signal: 80, snr: 10, wantSSDb: -50.0, wantSNRDb: 3.1},
		{name: "top of scale", signal: 100, snr: 100, wantSSDb: -40.0, wantSNRDb: 31.0},
		{name: "good", signal: 70, snr: 33, wantSSDb: -57.5, wantSNRDb: 10.2},
		{name: "good edge", signal: 60, snr: 1, wantSSDb: -65.0, wantSNRDb: 0.3},
		{name: "fair", signal: 41, snr: 7, wantSSDb: -74.5, wantSNRDb: 2.2},
		{name: "fair edge", signal: 20, snr: 0, wantSSDb: -85.0, wantSNRDb: 0},
		{name: "weak", signal: 10, snr: 3, wantSSDb: -92.5, wantSNRDb: 0.9},
		{name: "no signal", signal: 0, snr: 0, wantSSDb: -100.0, wantSNRDb: 0},
		{name: "negative snr", signal: 5, snr: -4, wantSSDb: -96.3, wantSNRDb: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.signal, tt.snr)
			if got.SSDb != tt.wantSSDb {
				t.Errorf("SSDb = %v, want %v", got.SSDb, tt.wantSSDb)
			}
			if got.SNRDb != tt.wantSNRDb {
				t.Errorf("SNRDb = %v, want %v", got.SNRDb, tt.wantSNRDb)
			}
		})
	}
}

func TestEstimate_Bands(t *testing.T) {
	for raw := 0; raw <= 100; raw++ {
		got := Estimate(raw, 0).SSDb
		var lo, hi float64
		switch {
		case raw >= 80:
			lo, hi = -50, -40
		case raw >= 60:
			lo, hi = -65, -50
		case raw >= 20:
			lo, hi = -85, -65
		default:
			lo, hi = -100, -85
		}
		if got < lo || got > hi {
			t.Errorf("Estimate(%d) = %v, want within [%v, %v]", raw, got, lo, hi)
		}
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	prev := Estimate(0, 0).SSDb
	for raw := 1; raw <= 100; raw++ {
		cur := Estimate(raw, 0).SSDb
		if cur < prev {
			t.Errorf("Estimate(%d) = %v is below Estimate(%d) = %v", raw, cur, raw-1, prev)
		}
		prev = cur
	}
}
