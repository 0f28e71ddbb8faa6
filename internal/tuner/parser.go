package tuner

import (
	"regexp"
	"strconv"
	"strings"
)

// The vendor tool has no published grammar. Everything that knows its text
// format lives in this file so format drift stays contained here.

var (
	debugPattern = regexp.MustCompile(`dbg=(-?\d+)-(\d+)/(-?\d+)`)
	plpPattern   = regexp.MustCompile(`^(\d+):\s*(.*)$`)

	// program=3: 7.1 KOMO-HD (encrypted) / service=5: 4.1 KING-3
	programPattern = regexp.MustCompile(`^(program|service)=(\d+):\s*(\S+)\s*(.*)$`)
	// 3: 7.1 KOMO-HD, the format printed by older firmware
	bareProgramPattern = regexp.MustCompile(`^(\d+):\s*(\S+)\s*(.*)$`)
	suffixPattern      = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)$`)

	scanningPattern    = regexp.MustCompile(`^SCANNING:\s*(\d+)\s*\(([^)]*)\)`)
	scanLockPattern    = regexp.MustCompile(`^LOCK:\s*(\S+)(?:\s*\(([^)]*)\))?`)
	scanProgramPattern = regexp.MustCompile(`^PROGRAM\s+(\d+):\s*(\S+)\s*(.*)$`)
)

// ParseStatusLine parses the output of a /tunerN/status query, e.g.
//
//	ch=auto:8 lock=8vsb ss=71 snq=83 seq=100 bps=19393000 pps=1670
//
// The literal "none" means the tuner is idle. Keys missing from the line stay
// nil in the result. Only the first non-empty line is considered.
func ParseStatusLine(text string) Status {
	line := firstLine(text)
	if line == ChannelNone {
		return Status{Channel: ChannelNone}
	}

	var st Status
	for _, tok := range strings.Fields(line) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch key {
		case "ch":
			st.Channel = val
		case "lock":
			// lock=none is how an idle tuner reports no lock
			st.Lock = val != "" && val != ChannelNone
		case "ss":
			st.SS = parseIntPtr(val)
		case "snq":
			st.SNQ = parseIntPtr(val)
		case "seq":
			st.SEQ = parseIntPtr(val)
		case "bps":
			st.BPS = parseIntPtr(val)
		case "pps":
			st.PPS = parseIntPtr(val)
		}
	}
	return st
}

// ParseDebug finds the dbg=<signal>-<snr>/<third> counters in debug output.
// It reports false when the pattern is absent.
func ParseDebug(text string) (DebugReading, bool) {
	m := debugPattern.FindStringSubmatch(text)
	if m == nil {
		return DebugReading{}, false
	}
	signal, err1 := strconv.Atoi(m[1])
	snr, err2 := strconv.Atoi(m[2])
	third, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return DebugReading{}, false
	}
	return DebugReading{Signal: signal, SNR: snr, Third: third, Raw: m[0]}, true
}

// ParsePlpTable parses /tunerN/plpinfo output. Each line looks like
//
//	0: sfi=0 mod=qam256 cod=10/15 layer=core ti=cti lls=1 lock=1
//
// Lines without a leading "<id>:" are skipped.
func ParsePlpTable(text string) map[int]PlpEntry {
	table := make(map[int]PlpEntry)
	for _, line := range strings.Split(text, "\n") {
		m := plpPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		var entry PlpEntry
		for _, tok := range strings.Fields(m[2]) {
			key, val, ok := strings.Cut(tok, "=")
			if !ok {
				continue
			}
			switch key {
			case "sfi":
				entry.SFI = parseIntPtr(val)
			case "mod":
				entry.Modulation = stringPtr(val)
			case "cod":
				entry.CodeRate = stringPtr(val)
			case "layer":
				entry.Layer = stringPtr(val)
			case "ti":
				entry.TimeInterleaving = stringPtr(val)
			case "lls":
				entry.LLS = boolPtr(val == "1")
			case "lock":
				entry.Lock = boolPtr(val == "1")
			}
		}
		table[id] = entry
	}
	return table
}

// ParseL1Table collects every key=value token across all lines.
// A repeated key keeps its last value.
func ParseL1Table(text string) L1Info {
	info := make(L1Info)
	for _, line := range strings.Split(text, "\n") {
		for _, tok := range strings.Fields(line) {
			key, val, ok := strings.Cut(tok, "=")
			if !ok || key == "" {
				continue
			}
			info[key] = val
		}
	}
	return info
}

// ParsePrograms parses /tunerN/streaminfo output into program entries.
//
// Lines that are neither "program=<n>: ...", "service=<n>: ..." nor the
// bare "<n>: ..." form (tsid=, blank lines and so on) are dropped.
func ParsePrograms(text string) []ProgramEntry {
	programs := make([]ProgramEntry, 0)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		var (
			numStr, vch, rest string
			service           bool
		)
		if m := programPattern.FindStringSubmatch(line); m != nil {
			service = m[1] == "service"
			numStr, vch, rest = m[2], m[3], m[4]
		} else if m := bareProgramPattern.FindStringSubmatch(line); m != nil {
			numStr, vch, rest = m[1], m[2], m[3]
		} else {
			continue
		}

		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}

		name, status := splitSuffix(rest)
		// "3: 0 (control)" puts the suffix straight after the channel
		if strings.HasPrefix(vch, "(") {
			name, status = "", strings.Trim(vch, "()")
			vch = ""
		}

		lower := strings.ToLower(status)
		programs = append(programs, ProgramEntry{
			ProgramNum:     num,
			VirtualChannel: vch,
			Name:           name,
			Callsign:       callsign(name),
			Status:         status,
			Encrypted:      strings.Contains(lower, "encrypted"),
			ATSC3:          service || strings.Contains(lower, "atsc3"),
		})
	}
	return programs
}

// ParseScanOutput parses the streaming output of a channel scan:
//
//	SCANNING: 57000000 (us-bcast:2)
//	LOCK: 8vsb (ss=100 snq=100 seq=100)
//	PROGRAM 3: 2.1 KTVK
//
// A channel is reported only when its SCANNING line is immediately followed
// by a LOCK line with a real modulation. PROGRAM lines belong to the last
// reported channel until the next SCANNING line.
func ParseScanOutput(text string) []ChannelScanResult {
	results := make([]ChannelScanResult, 0)

	var (
		pending     *ChannelScanResult
		current     = -1
		afterSwitch bool
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := scanningPattern.FindStringSubmatch(line); m != nil {
			freq, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				pending, current, afterSwitch = nil, -1, false
				continue
			}
			pending = &ChannelScanResult{Frequency: freq, Channel: m[2], Programs: []ScanProgram{}}
			current = -1
			afterSwitch = true
			continue
		}

		if m := scanLockPattern.FindStringSubmatch(line); m != nil {
			if afterSwitch && pending != nil && m[1] != ChannelNone {
				pending.Modulation = m[1]
				kv := ParseL1Table(m[2])
				pending.SS = parseIntPtr(kv["ss"])
				pending.SNQ = parseIntPtr(kv["snq"])
				pending.SEQ = parseIntPtr(kv["seq"])
				results = append(results, *pending)
				current = len(results) - 1
			}
			pending, afterSwitch = nil, false
			continue
		}

		afterSwitch = false

		if m := scanProgramPattern.FindStringSubmatch(line); m != nil && current >= 0 {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			results[current].Programs = append(results[current].Programs, ScanProgram{
				ProgramNum:     num,
				VirtualChannel: m[2],
				Name:           strings.TrimSpace(m[3]),
			})
		}
	}

	return results
}

// splitSuffix separates a trailing "(...)" from a program name.
func splitSuffix(s string) (name, suffix string) {
	s = strings.TrimSpace(s)
	if m := suffixPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return s, ""
}

// callsign returns the station callsign, the first word of the program name.
func callsign(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func stringPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
