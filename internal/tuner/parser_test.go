package tuner

import (
	"os"
	"path/filepath"
	"testing"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("reading fixture %s: %v", name, err)
	}
	return string(data)
}

func intp(v int) *int { return &v }

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Status
	}{
		{
			name: "locked",
			line: "ch=8 lock=atsc8 ss=71 snq=83 seq=100 bps=19393000 pps=1670",
			want: Status{
				Channel: "8", Lock: true,
				SS: intp(71), SNQ: intp(83), SEQ: intp(100), BPS: intp(19393000), PPS: intp(1670),
			},
		},
		{
			name: "idle literal",
			line: "none",
			want: Status{Channel: ChannelNone},
		},
		{
			name: "idle key value form",
			line: "ch=none lock=none ss=0 snq=0 seq=0 bps=0 pps=0",
			want: Status{
				Channel: ChannelNone, Lock: false,
				SS: intp(0), SNQ: intp(0), SEQ: intp(0), BPS: intp(0), PPS: intp(0),
			},
		},
		{
			name: "tuned but lock none is unlocked",
			line: "ch=auto:8 lock=none ss=45",
			want: Status{Channel: "auto:8", Lock: false, SS: intp(45)},
		},
		{
			name: "any other lock value is locked",
			line: "ch=auto:8 lock=8vsb",
			want: Status{Channel: "auto:8", Lock: true},
		},
		{
			name: "absent keys stay nil",
			line: "ch=auto:28 lock=atsc3",
			want: Status{Channel: "auto:28", Lock: true},
		},
		{
			name: "zero signal is not absent",
			line: "ch=auto:9 ss=0",
			want: Status{Channel: "auto:9", SS: intp(0)},
		},
		{
			name: "unparseable number omitted",
			line: "ch=8 lock=8vsb ss=abc snq=50",
			want: Status{Channel: "8", Lock: true, SNQ: intp(50)},
		},
		{
			name: "leading blank lines",
			line: "\n\n  ch=10 lock=8vsb ss=60\n",
			want: Status{Channel: "10", Lock: true, SS: intp(60)},
		},
		{
			name: "empty",
			line: "",
			want: Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStatusLine(tt.line)
			if got.Channel != tt.want.Channel {
				t.Errorf("Channel = %q, want %q", got.Channel, tt.want.Channel)
			}
			if got.Lock != tt.want.Lock {
				t.Errorf("Lock = %v, want %v", got.Lock, tt.want.Lock)
			}
			if !eqIntPtr(got.SS, tt.want.SS) || !eqIntPtr(got.SNQ, tt.want.SNQ) || !eqIntPtr(got.SEQ, tt.want.SEQ) {
				t.Errorf("ss/snq/seq = %v/%v/%v, want %v/%v/%v", got.SS, got.SNQ, got.SEQ, tt.want.SS, tt.want.SNQ, tt.want.SEQ)
			}
			if !eqIntPtr(got.BPS, tt.want.BPS) || !eqIntPtr(got.PPS, tt.want.PPS) {
				t.Errorf("bps/pps = %v/%v, want %v/%v", got.BPS, got.PPS, tt.want.BPS, tt.want.PPS)
			}
			if got.SSDb != nil || got.SNRDb != nil || got.DebugRaw != nil {
				t.Error("status line parse must not set debug-derived fields")
			}
		})
	}
}

func TestParseDebug(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   DebugReading
		wantOK bool
	}{
		{
			name:   "fixture",
			input:  readFixture(t, "debug.txt"),
			want:   DebugReading{Signal: 86, SNR: 19, Third: -4211, Raw: "dbg=86-19/-4211"},
			wantOK: true,
		},
		{
			name:   "positive third value",
			input:  "tun: dbg=45-0/12",
			want:   DebugReading{Signal: 45, SNR: 0, Third: 12, Raw: "dbg=45-0/12"},
			wantOK: true,
		},
		{name: "missing", input: "tun: ch=none lock=none", wantOK: false},
		{name: "malformed", input: "dbg=86/19", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDebug(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDebug() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseDebug() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePlpTable(t *testing.T) {
	table := ParsePlpTable(readFixture(t, "plpinfo.txt"))

	if len(table) != 2 {
		t.Fatalf("len(table) = %d, want 2", len(table))
	}

	plp0 := table[0]
	if plp0.SFI == nil || *plp0.SFI != 0 {
		t.Errorf("plp0.SFI = %v, want 0", plp0.SFI)
	}
	if plp0.Modulation == nil || *plp0.Modulation != "qam256" {
		t.Errorf("plp0.Modulation = %v, want qam256", plp0.Modulation)
	}
	if plp0.CodeRate == nil || *plp0.CodeRate != "10/15" {
		t.Errorf("plp0.CodeRate = %v, want 10/15", plp0.CodeRate)
	}
	if plp0.TimeInterleaving == nil || *plp0.TimeInterleaving != "cti" {
		t.Errorf("plp0.TimeInterleaving = %v, want cti", plp0.TimeInterleaving)
	}
	if plp0.LLS == nil || !*plp0.LLS {
		t.Errorf("plp0.LLS = %v, want true", plp0.LLS)
	}
	if plp0.Lock == nil || !*plp0.Lock {
		t.Errorf("plp0.Lock = %v, want true", plp0.Lock)
	}

	plp1 := table[1]
	if plp1.TimeInterleaving != nil {
		t.Errorf("plp1.TimeInterleaving = %v, want nil (absent)", *plp1.TimeInterleaving)
	}
	if plp1.Lock == nil || *plp1.Lock {
		t.Errorf("plp1.Lock = %v, want false", plp1.Lock)
	}
}

func TestParsePlpTable_Empty(t *testing.T) {
	if got := ParsePlpTable("none\n"); len(got) != 0 {
		t.Errorf("ParsePlpTable() = %v, want empty", got)
	}
}

func TestParseL1Table(t *testing.T) {
	info := ParseL1Table(readFixture(t, "debug.txt"))

	tests := map[string]string{
		"ch":   "auto:28",
		"lock": "atsc3",
		"dbg":  "86-19/-4211",
		"bps":  "0", // last occurrence wins
		"pps":  "0",
		"te":   "0",
	}
	for key, want := range tests {
		if got := info[key]; got != want {
			t.Errorf("info[%q] = %q, want %q", key, got, want)
		}
	}
	if _, ok := info["tun:"]; ok {
		t.Error("tokens without '=' must be ignored")
	}
}

func TestParsePrograms(t *testing.T) {
	programs := ParsePrograms(readFixture(t, "streaminfo.txt"))

	if len(programs) != 3 {
		t.Fatalf("len(programs) = %d, want 3", len(programs))
	}

	want := []ProgramEntry{
		{ProgramNum: 3, VirtualChannel: "7.1", Name: "KOMO-HD", Callsign: "KOMO-HD"},
		{ProgramNum: 4, VirtualChannel: "7.2", Name: "KOMO-SD", Callsign: "KOMO-SD", Status: "encrypted", Encrypted: true},
		{ProgramNum: 5, VirtualChannel: "7.3", Name: "Comet", Callsign: "Comet"},
	}
	for i := range want {
		if programs[i] != want[i] {
			t.Errorf("programs[%d] = %+v, want %+v", i, programs[i], want[i])
		}
	}
}

func TestParsePrograms_ATSC3(t *testing.T) {
	programs := ParsePrograms(readFixture(t, "streaminfo_atsc3.txt"))

	if len(programs) != 3 {
		t.Fatalf("len(programs) = %d, want 3", len(programs))
	}
	if !programs[0].ATSC3 || programs[0].Encrypted {
		t.Errorf("service line should be atsc3 and clear: %+v", programs[0])
	}
	if programs[1].Name != "KING HD" || programs[1].Callsign != "KING" {
		t.Errorf("programs[1] name/callsign = %q/%q", programs[1].Name, programs[1].Callsign)
	}
	if !programs[1].ATSC3 || !programs[1].Encrypted {
		t.Errorf("suffix flags not applied: %+v", programs[1])
	}
	if programs[2].ATSC3 || programs[2].Status != "no data" {
		t.Errorf("programs[2] = %+v, want plain program with status", programs[2])
	}
}

func TestParsePrograms_Edge(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "empty", input: "", want: 0},
		{name: "only noise", input: "tsid=0x0001\nnone\n", want: 0},
		{name: "control program", input: "1: 0 (control)", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrograms(tt.input)
			if got == nil {
				t.Fatal("ParsePrograms() returned nil, want non-nil slice")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseScanOutput(t *testing.T) {
	results := ParseScanOutput(readFixture(t, "scan.txt"))

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 locked channels", len(results))
	}

	ch3 := results[0]
	if ch3.Frequency != 63000000 || ch3.Channel != "us-bcast:3" || ch3.Modulation != "8vsb" {
		t.Errorf("results[0] = %+v", ch3)
	}
	if !eqIntPtr(ch3.SS, intp(100)) || !eqIntPtr(ch3.SNQ, intp(92)) || !eqIntPtr(ch3.SEQ, intp(100)) {
		t.Errorf("results[0] signal = %v/%v/%v", ch3.SS, ch3.SNQ, ch3.SEQ)
	}
	if len(ch3.Programs) != 2 {
		t.Fatalf("results[0] programs = %d, want 2", len(ch3.Programs))
	}
	if ch3.Programs[0] != (ScanProgram{ProgramNum: 3, VirtualChannel: "7.1", Name: "KOMO-HD"}) {
		t.Errorf("results[0].Programs[0] = %+v", ch3.Programs[0])
	}

	ch28 := results[1]
	if ch28.Modulation != "atsc3" || len(ch28.Programs) != 1 {
		t.Errorf("results[1] = %+v, want atsc3 with one program", ch28)
	}
	for _, r := range results {
		for _, p := range r.Programs {
			if p.Name == "STALE" {
				t.Error("program after an unlocked channel must not attach to an earlier channel")
			}
		}
	}
}

func TestParseScanOutput_LockMustFollowScanning(t *testing.T) {
	input := "SCANNING: 57000000 (us-bcast:2)\nTSID: 0x0001\nLOCK: 8vsb (ss=90 snq=90 seq=100)\n"
	if got := ParseScanOutput(input); len(got) != 0 {
		t.Errorf("ParseScanOutput() = %+v, want no results", got)
	}
}
