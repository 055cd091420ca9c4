package cc

import "fmt"

const (
	versionCommandGet    byte = 0x11
	versionCommandReport byte = 0x12
)

func init() {
	register(CommandClassVersion, versionCommandGet, parseVersionGet)
	register(CommandClassVersion, versionCommandReport, parseVersionReport)
}

type VersionGet struct{}

func (VersionGet) CommandClassID() CommandClassID { return CommandClassVersion }
func (VersionGet) CommandByte() (byte, bool)       { return versionCommandGet, true }
func (VersionGet) Serialize() []byte               { return nil }
func (VersionGet) ExpectsResponse() bool           { return true }
func (VersionGet) TestResponse(response CC) bool {
	_, ok := response.(VersionReport)
	return ok
}

func parseVersionGet([]byte, *ParsingContext) (CC, error) {
	return VersionGet{}, nil
}

// VersionReport is simplified relative to the full Z-Wave spec (which
// allows a variable-length tail of additional firmware target versions);
// only the always-present fields are modeled here.
type VersionReport struct {
	LibraryType           byte
	ProtocolVersionMajor  byte
	ProtocolVersionMinor  byte
	FirmwareVersionMajor  byte
	FirmwareVersionMinor  byte
	HardwareVersion       *byte
}

func (VersionReport) CommandClassID() CommandClassID { return CommandClassVersion }
func (VersionReport) CommandByte() (byte, bool)       { return versionCommandReport, true }
func (r VersionReport) Serialize() []byte {
	out := []byte{
		r.LibraryType,
		r.ProtocolVersionMajor, r.ProtocolVersionMinor,
		r.FirmwareVersionMajor, r.FirmwareVersionMinor,
	}
	if r.HardwareVersion != nil {
		out = append(out, *r.HardwareVersion, 0, 0)
	}
	return out
}

func parseVersionReport(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 5 {
		return nil, fmt.Errorf("cc: VersionReport: truncated payload")
	}
	report := VersionReport{
		LibraryType:          payload[0],
		ProtocolVersionMajor: payload[1],
		ProtocolVersionMinor: payload[2],
		FirmwareVersionMajor: payload[3],
		FirmwareVersionMinor: payload[4],
	}
	if len(payload) >= 6 {
		hw := payload[5]
		report.HardwareVersion = &hw
	}
	return report, nil
}
