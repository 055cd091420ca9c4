package cc

import "fmt"

const (
	manufacturerSpecificCommandGet    byte = 0x04
	manufacturerSpecificCommandReport byte = 0x05
)

func init() {
	register(CommandClassManufacturerSpecific, manufacturerSpecificCommandGet, parseManufacturerSpecificGet)
	register(CommandClassManufacturerSpecific, manufacturerSpecificCommandReport, parseManufacturerSpecificReport)
}

const (
	manufacturerSpecificPropertyManufacturerID uint32 = 0x00
	manufacturerSpecificPropertyProductType    uint32 = 0x01
	manufacturerSpecificPropertyProductID      uint32 = 0x02
)

type ManufacturerSpecificGet struct{}

func (ManufacturerSpecificGet) CommandClassID() CommandClassID {
	return CommandClassManufacturerSpecific
}
func (ManufacturerSpecificGet) CommandByte() (byte, bool) { return manufacturerSpecificCommandGet, true }
func (ManufacturerSpecificGet) Serialize() []byte         { return nil }
func (ManufacturerSpecificGet) ExpectsResponse() bool     { return true }
func (ManufacturerSpecificGet) TestResponse(response CC) bool {
	_, ok := response.(ManufacturerSpecificReport)
	return ok
}

func parseManufacturerSpecificGet([]byte, *ParsingContext) (CC, error) {
	return ManufacturerSpecificGet{}, nil
}

type ManufacturerSpecificReport struct {
	ManufacturerID uint16
	ProductType    uint16
	ProductID      uint16
}

func (ManufacturerSpecificReport) CommandClassID() CommandClassID {
	return CommandClassManufacturerSpecific
}
func (ManufacturerSpecificReport) CommandByte() (byte, bool) {
	return manufacturerSpecificCommandReport, true
}
func (r ManufacturerSpecificReport) Serialize() []byte {
	return []byte{
		byte(r.ManufacturerID >> 8), byte(r.ManufacturerID),
		byte(r.ProductType >> 8), byte(r.ProductType),
		byte(r.ProductID >> 8), byte(r.ProductID),
	}
}

func (r ManufacturerSpecificReport) ToValues() []CacheEntry {
	return []CacheEntry{
		{Property: manufacturerSpecificPropertyManufacturerID, Value: r.ManufacturerID},
		{Property: manufacturerSpecificPropertyProductType, Value: r.ProductType},
		{Property: manufacturerSpecificPropertyProductID, Value: r.ProductID},
	}
}

func parseManufacturerSpecificReport(payload []byte, _ *ParsingContext) (CC, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("cc: ManufacturerSpecificReport: truncated payload")
	}
	return ManufacturerSpecificReport{
		ManufacturerID: uint16(payload[0])<<8 | uint16(payload[1]),
		ProductType:    uint16(payload[2])<<8 | uint16(payload[3]),
		ProductID:      uint16(payload[4])<<8 | uint16(payload[5]),
	}, nil
}
