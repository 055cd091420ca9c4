package cc

import "fmt"

const (
	binarySwitchCommandSet    byte = 0x01
	binarySwitchCommandGet    byte = 0x02
	binarySwitchCommandReport byte = 0x03
)

func init() {
	register(CommandClassBinarySwitch, binarySwitchCommandSet, parseBinarySwitchSet)
	register(CommandClassBinarySwitch, binarySwitchCommandGet, parseBinarySwitchGet)
	register(CommandClassBinarySwitch, binarySwitchCommandReport, parseBinarySwitchReport)
}

const (
	binarySwitchPropertyCurrentValue uint32 = 0x00
	binarySwitchPropertyTargetValue  uint32 = 0x01
	binarySwitchPropertyDuration     uint32 = 0x02
)

type BinarySwitchSet struct {
	TargetValue BinarySet
	Duration    *DurationSet
}

func (BinarySwitchSet) CommandClassID() CommandClassID { return CommandClassBinarySwitch }
func (BinarySwitchSet) CommandByte() (byte, bool)       { return binarySwitchCommandSet, true }
func (s BinarySwitchSet) Serialize() []byte {
	out := []byte{s.TargetValue.Encode()}
	if s.Duration != nil {
		out = append(out, s.Duration.Encode())
	}
	return out
}
func (BinarySwitchSet) ExpectsResponse() bool { return false }
func (BinarySwitchSet) TestResponse(CC) bool  { return false }

func parseBinarySwitchSet(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("cc: BinarySwitchSet: truncated payload")
	}
	v, err := ParseBinarySet(payload[0])
	if err != nil {
		return nil, fmt.Errorf("cc: BinarySwitchSet: %w", err)
	}
	set := BinarySwitchSet{TargetValue: v}
	if len(payload) >= 2 {
		d := ParseDurationSet(payload[1])
		set.Duration = &d
	}
	return set, nil
}

type BinarySwitchGet struct{}

func (BinarySwitchGet) CommandClassID() CommandClassID { return CommandClassBinarySwitch }
func (BinarySwitchGet) CommandByte() (byte, bool)       { return binarySwitchCommandGet, true }
func (BinarySwitchGet) Serialize() []byte               { return nil }
func (BinarySwitchGet) ExpectsResponse() bool           { return true }
func (BinarySwitchGet) TestResponse(response CC) bool {
	_, ok := response.(BinarySwitchReport)
	return ok
}

func parseBinarySwitchGet([]byte, *ParsingContext) (CC, error) {
	return BinarySwitchGet{}, nil
}

type BinarySwitchReport struct {
	CurrentValue BinaryReport
	TargetValue  *BinaryReport
	Duration     *DurationReport
}

func (BinarySwitchReport) CommandClassID() CommandClassID { return CommandClassBinarySwitch }
func (BinarySwitchReport) CommandByte() (byte, bool)       { return binarySwitchCommandReport, true }
func (r BinarySwitchReport) Serialize() []byte {
	out := []byte{r.CurrentValue.Encode()}
	if r.TargetValue != nil {
		out = append(out, r.TargetValue.Encode())
		if r.Duration != nil {
			out = append(out, r.Duration.Encode())
		} else {
			out = append(out, DurationReport{}.Encode())
		}
	}
	return out
}

func (r BinarySwitchReport) ToValues() []CacheEntry {
	entries := []CacheEntry{{Property: binarySwitchPropertyCurrentValue, Value: r.CurrentValue}}
	if r.TargetValue != nil {
		entries = append(entries, CacheEntry{Property: binarySwitchPropertyTargetValue, Value: *r.TargetValue})
	}
	if r.Duration != nil {
		entries = append(entries, CacheEntry{Property: binarySwitchPropertyDuration, Value: *r.Duration})
	}
	return entries
}

func parseBinarySwitchReport(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("cc: BinarySwitchReport: truncated payload")
	}
	current, err := ParseBinaryReport(payload[0])
	if err != nil {
		return nil, fmt.Errorf("cc: BinarySwitchReport: %w", err)
	}
	report := BinarySwitchReport{CurrentValue: current}
	if len(payload) >= 3 {
		target, err := ParseBinaryReport(payload[1])
		if err != nil {
			return nil, fmt.Errorf("cc: BinarySwitchReport: %w", err)
		}
		duration, err := ParseDurationReport(payload[2])
		if err != nil {
			return nil, fmt.Errorf("cc: BinarySwitchReport: %w", err)
		}
		report.TargetValue = &target
		report.Duration = &duration
	}
	return report, nil
}
