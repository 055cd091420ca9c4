package cc

import "fmt"

const (
	basicCommandSet    byte = 0x01
	basicCommandGet    byte = 0x02
	basicCommandReport byte = 0x03
)

func init() {
	register(CommandClassBasic, basicCommandSet, parseBasicSet)
	register(CommandClassBasic, basicCommandGet, parseBasicGet)
	register(CommandClassBasic, basicCommandReport, parseBasicReport)
}

// property ids used when this CC contributes cache entries, matching
// original_source's BasicCCProperties.
const (
	basicPropertyCurrentValue uint32 = 0x00
	basicPropertyTargetValue  uint32 = 0x01
	basicPropertyDuration     uint32 = 0x02
)

type BasicSet struct {
	TargetValue LevelSet
}

func (BasicSet) CommandClassID() CommandClassID { return CommandClassBasic }
func (BasicSet) CommandByte() (byte, bool)       { return basicCommandSet, true }
func (s BasicSet) Serialize() []byte             { return []byte{s.TargetValue.Encode()} }
func (BasicSet) ExpectsResponse() bool           { return false }
func (BasicSet) TestResponse(CC) bool            { return false }

func parseBasicSet(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("cc: BasicSet: truncated payload")
	}
	v, err := ParseLevelSet(payload[0])
	if err != nil {
		return nil, fmt.Errorf("cc: BasicSet: %w", err)
	}
	return BasicSet{TargetValue: v}, nil
}

type BasicGet struct{}

func (BasicGet) CommandClassID() CommandClassID { return CommandClassBasic }
func (BasicGet) CommandByte() (byte, bool)       { return basicCommandGet, true }
func (BasicGet) Serialize() []byte               { return nil }
func (BasicGet) ExpectsResponse() bool           { return true }
func (BasicGet) TestResponse(response CC) bool {
	_, ok := response.(BasicReport)
	return ok
}

func parseBasicGet([]byte, *ParsingContext) (CC, error) {
	return BasicGet{}, nil
}

type BasicReport struct {
	CurrentValue LevelReport
	TargetValue  *LevelReport
	Duration     *DurationReport
}

func (BasicReport) CommandClassID() CommandClassID { return CommandClassBasic }
func (BasicReport) CommandByte() (byte, bool)       { return basicCommandReport, true }
func (r BasicReport) Serialize() []byte {
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

func (r BasicReport) ToValues() []CacheEntry {
	entries := []CacheEntry{{Property: basicPropertyCurrentValue, Value: r.CurrentValue}}
	if r.TargetValue != nil {
		entries = append(entries, CacheEntry{Property: basicPropertyTargetValue, Value: *r.TargetValue})
	}
	if r.Duration != nil {
		entries = append(entries, CacheEntry{Property: basicPropertyDuration, Value: *r.Duration})
	}
	return entries
}

func parseBasicReport(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("cc: BasicReport: truncated payload")
	}
	current, err := ParseLevelReport(payload[0])
	if err != nil {
		return nil, fmt.Errorf("cc: BasicReport: %w", err)
	}
	report := BasicReport{CurrentValue: current}
	if len(payload) >= 3 {
		target, err := ParseLevelReport(payload[1])
		if err != nil {
			return nil, fmt.Errorf("cc: BasicReport: %w", err)
		}
		duration, err := ParseDurationReport(payload[2])
		if err != nil {
			return nil, fmt.Errorf("cc: BasicReport: %w", err)
		}
		report.TargetValue = &target
		report.Duration = &duration
	}
	return report, nil
}
