package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// MeasurementTunerSignal holds one point per tuner per poll.
const MeasurementTunerSignal = "tuner_signal"

// ObserveStatus records st as a tuner_signal point. It implements
// monitor.StatusObserver.
func (c *Client) ObserveStatus(deviceID string, idx int, st *tuner.Status) {
	c.WriteTunerSignal(deviceID, idx, st, c.now())
}

// WriteTunerSignal writes one tuner_signal point tagged with device and tuner.
//
// Fields are lock (always) plus whichever of ss, snq, seq, bps, pps, ss_db
// and snr_db the status carries. A nil status writes nothing.
//
//	client.WriteTunerSignal("1040ABCD", 0, status, time.Now())
func (c *Client) WriteTunerSignal(deviceID string, idx int, st *tuner.Status, ts time.Time) {
	if st == nil || !c.IsConnected() {
		return
	}

	point := tunerSignalPoint(deviceID, idx, st, ts)
	c.writer.WritePoint(point)
}

func tunerSignalPoint(deviceID string, idx int, st *tuner.Status, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"lock": st.Lock,
	}
	addInt := func(key string, v *int) {
		if v != nil {
			fields[key] = *v
		}
	}
	addInt("ss", st.SS)
	addInt("snq", st.SNQ)
	addInt("seq", st.SEQ)
	addInt("bps", st.BPS)
	addInt("pps", st.PPS)
	if st.SSDb != nil {
		fields["ss_db"] = *st.SSDb
	}
	if st.SNRDb != nil {
		fields["snr_db"] = *st.SNRDb
	}

	tags := map[string]string{
		"device": deviceID,
		"tuner":  strconv.Itoa(idx),
	}
	if st.Channel != "" {
		tags["channel"] = st.Channel
	}
	return write.NewPoint(MeasurementTunerSignal, tags, fields, ts)
}
