package tuner

import "math"

// SignalEstimate is the estimated signal level derived from raw debug counters.
type SignalEstimate struct {
	SSDb  float64 `json:"ssDb"`  // dBm
	SNRDb float64 `json:"snrDb"` // dB
}

// snrScale converts the raw SNR counter to dB.
const snrScale = 0.31

// Estimate maps the raw debug counters onto approximate dBm and dB values.
//
// The mapping is a piecewise-linear heuristic that has not been calibrated
// against a reference meter. Treat the output as a relative indicator:
//
//	raw >= 80   -50 .. -40 dBm
//	raw >= 60   -65 .. -50 dBm
//	raw >= 20   -85 .. -65 dBm
//	otherwise  -100 .. -85 dBm
//
// Both values are rounded to one decimal place.
func Estimate(signalRaw, snrRaw int) SignalEstimate {
	raw := float64(signalRaw)

	var ss float64
	switch {
	case signalRaw >= 80:
		ss = -50 + (raw-80)*0.5
	case signalRaw >= 60:
		ss = -65 + (raw-60)*0.75
	case signalRaw >= 20:
		ss = -85 + (raw-20)*0.5
	default:
		ss = -100 + raw*0.75
	}

	var snr float64
	if snrRaw > 0 {
		snr = float64(snrRaw) * snrScale
	}

	return SignalEstimate{SSDb: round1(ss), SNRDb: round1(snr)}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
