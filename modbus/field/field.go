// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package field decodes the data field of a Modbus PDU into typed values.
//
// Every decoder is a pure function of the data field (the bytes following
// the function code). A decoder either returns one of the concrete Field
// types below or an error matching ErrInvalidShape.
package field

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ffutop/modbus-sniffer/modbus"
)

// Field is one decoded data field layout.
type Field interface {
	// Name is the layout name, e.g. "AddressQuantity".
	Name() string
}

// Decoder decodes one data field layout.
type Decoder func(data []byte) (Field, error)

type AddressQuantity struct {
	Address  uint16 `json:"address"`
	Quantity uint16 `json:"quantity"`
}

type Booleans struct {
	Booleans []bool `json:"booleans"`
}

// Registers holds the register bytes reinterpreted once per selected width.
// Widths that were not selected are nil.
type Registers struct {
	Uint8   []uint8   `json:"uint8,omitempty"`
	Int8    []int8    `json:"int8,omitempty"`
	Uint16  []uint16  `json:"uint16,omitempty"`
	Int16   []int16   `json:"int16,omitempty"`
	Uint32  []uint32  `json:"uint32,omitempty"`
	Int32   []int32   `json:"int32,omitempty"`
	Float32 []float32 `json:"float32,omitempty"`
	Uint64  []uint64  `json:"uint64,omitempty"`
	Int64   []int64   `json:"int64,omitempty"`
	Float64 []float64 `json:"float64,omitempty"`
}

type AddressBoolean struct {
	Address uint16 `json:"address"`
	Boolean bool   `json:"boolean"`
}

type AddressRegister struct {
	Address  uint16 `json:"address"`
	Register uint16 `json:"register"`
}

type AddressQuantityBooleans struct {
	AddressQuantity
	Booleans Booleans `json:"booleans"`
}

type AddressQuantityRegisters struct {
	AddressQuantity
	Registers Registers `json:"registers"`
}

type Exception struct {
	Code        byte   `json:"exceptionCode"`
	Description string `json:"exceptionDescription"`
}

func (AddressQuantity) Name() string          { return "AddressQuantity" }
func (Booleans) Name() string                 { return "Booleans" }
func (Registers) Name() string                { return "Registers" }
func (AddressBoolean) Name() string           { return "AddressBoolean" }
func (AddressRegister) Name() string          { return "AddressRegister" }
func (AddressQuantityBooleans) Name() string  { return "AddressQuantityBooleans" }
func (AddressQuantityRegisters) Name() string { return "AddressQuantityRegisters" }
func (Exception) Name() string                { return "Exception" }

// DecodeAddressQuantity decodes exactly 4 bytes: address and quantity.
func DecodeAddressQuantity(data []byte) (AddressQuantity, error) {
	if len(data) != 4 {
		return AddressQuantity{}, &LengthError{Field: "AddressQuantity", Want: "4", Got: len(data)}
	}
	return AddressQuantity{
		Address:  binary.BigEndian.Uint16(data[0:2]),
		Quantity: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// DecodeBooleans decodes a byte count followed by that many bytes of packed
// booleans, most significant bit first.
func DecodeBooleans(data []byte) (Booleans, error) {
	if len(data) < 1 {
		return Booleans{}, &LengthError{Field: "Booleans", Want: ">= 1", Got: len(data)}
	}
	if int(data[0]) != len(data)-1 {
		return Booleans{}, &ByteCountError{Field: "Booleans", Declared: int(data[0]), Actual: len(data) - 1}
	}
	bits := make([]bool, 0, 8*(len(data)-1))
	for _, b := range data[1:] {
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			bits = append(bits, b&mask != 0)
		}
	}
	return Booleans{Booleans: bits}, nil
}

// DecodeRegisters decodes a byte count followed by that many bytes of
// big-endian register data, once for every width selected in widths.
func DecodeRegisters(data []byte, widths Widths) (Registers, error) {
	if len(data) < 1 {
		return Registers{}, &LengthError{Field: "Registers", Want: ">= 1", Got: len(data)}
	}
	n := int(data[0])
	if n != len(data)-1 {
		return Registers{}, &ByteCountError{Field: "Registers", Declared: n, Actual: len(data) - 1}
	}
	if n%2 != 0 {
		return Registers{}, &ParityError{Field: "Registers", ByteCount: n}
	}
	for _, wn := range widthNames {
		if widths.Has(wn.width) && n%wn.size != 0 {
			return Registers{}, &WidthError{Width: wn.width, ByteCount: n}
		}
	}

	raw := data[1:]
	var r Registers
	if widths.Has(Uint8) || widths.Has(Int8) {
		for _, v := range raw {
			if widths.Has(Uint8) {
				r.Uint8 = append(r.Uint8, v)
			}
			if widths.Has(Int8) {
				r.Int8 = append(r.Int8, int8(v))
			}
		}
	}
	if widths.Has(Uint16) || widths.Has(Int16) {
		for i := 0; i < n; i += 2 {
			v := binary.BigEndian.Uint16(raw[i:])
			if widths.Has(Uint16) {
				r.Uint16 = append(r.Uint16, v)
			}
			if widths.Has(Int16) {
				r.Int16 = append(r.Int16, int16(v))
			}
		}
	}
	if widths&(Uint32|Int32|Float32) != 0 {
		for i := 0; i < n; i += 4 {
			v := binary.BigEndian.Uint32(raw[i:])
			if widths.Has(Uint32) {
				r.Uint32 = append(r.Uint32, v)
			}
			if widths.Has(Int32) {
				r.Int32 = append(r.Int32, int32(v))
			}
			if widths.Has(Float32) {
				r.Float32 = append(r.Float32, math.Float32frombits(v))
			}
		}
	}
	if widths&(Uint64|Int64|Float64) != 0 {
		for i := 0; i < n; i += 8 {
			v := binary.BigEndian.Uint64(raw[i:])
			if widths.Has(Uint64) {
				r.Uint64 = append(r.Uint64, v)
			}
			if widths.Has(Int64) {
				r.Int64 = append(r.Int64, int64(v))
			}
			if widths.Has(Float64) {
				r.Float64 = append(r.Float64, math.Float64frombits(v))
			}
		}
	}
	return r, nil
}

// DecodeAddressBoolean decodes a single coil write. Both 0xFF00 and 0x00FF
// read as true.
func DecodeAddressBoolean(data []byte) (AddressBoolean, error) {
	if len(data) != 4 {
		return AddressBoolean{}, &LengthError{Field: "AddressBoolean", Want: "4", Got: len(data)}
	}
	f := AddressBoolean{Address: binary.BigEndian.Uint16(data[0:2])}
	switch v := binary.BigEndian.Uint16(data[2:4]); v {
	case 0x0000:
	case 0xFF00, 0x00FF:
		f.Boolean = true
	default:
		return AddressBoolean{}, &CoilValueError{Value: v}
	}
	return f, nil
}

// DecodeAddressRegister decodes a single register write.
func DecodeAddressRegister(data []byte) (AddressRegister, error) {
	if len(data) != 4 {
		return AddressRegister{}, &LengthError{Field: "AddressRegister", Want: "4", Got: len(data)}
	}
	return AddressRegister{
		Address:  binary.BigEndian.Uint16(data[0:2]),
		Register: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

func DecodeAddressQuantityBooleans(data []byte) (AddressQuantityBooleans, error) {
	if len(data) <= 4 {
		return AddressQuantityBooleans{}, &LengthError{Field: "AddressQuantityBooleans", Want: "> 4", Got: len(data)}
	}
	aq, err := DecodeAddressQuantity(data[:4])
	if err != nil {
		return AddressQuantityBooleans{}, err
	}
	bs, err := DecodeBooleans(data[4:])
	if err != nil {
		return AddressQuantityBooleans{}, err
	}
	return AddressQuantityBooleans{AddressQuantity: aq, Booleans: bs}, nil
}

func DecodeAddressQuantityRegisters(data []byte, widths Widths) (AddressQuantityRegisters, error) {
	if len(data) <= 4 {
		return AddressQuantityRegisters{}, &LengthError{Field: "AddressQuantityRegisters", Want: "> 4", Got: len(data)}
	}
	aq, err := DecodeAddressQuantity(data[:4])
	if err != nil {
		return AddressQuantityRegisters{}, err
	}
	regs, err := DecodeRegisters(data[4:], widths)
	if err != nil {
		return AddressQuantityRegisters{}, err
	}
	return AddressQuantityRegisters{AddressQuantity: aq, Registers: regs}, nil
}

var exceptionDescriptions = map[byte]string{
	modbus.ExceptionCodeIllegalFunction:                    "Illegal Function",
	modbus.ExceptionCodeIllegalDataAddress:                 "Illegal Data Address",
	modbus.ExceptionCodeIllegalDataValue:                   "Illegal Data Value",
	modbus.ExceptionCodeServerDeviceFailure:                "Server Device Failure",
	modbus.ExceptionCodeAcknowledge:                        "Acknowledge",
	modbus.ExceptionCodeServerDeviceBusy:                   "Server Device Busy",
	modbus.ExceptionCodeNegativeAcknowledge:                "Negative Acknowledge",
	modbus.ExceptionCodeMemoryParityError:                  "Memory Parity Error",
	modbus.ExceptionCodeGatewayPathUnavailable:             "Gateway Path Unavailable",
	modbus.ExceptionCodeGatewayTargetDeviceFailedToRespond: "Gateway Target Device Failed to Respond",
}

// DecodeException decodes the single exception code byte of an exception
// response.
func DecodeException(data []byte) (Exception, error) {
	if len(data) != 1 {
		return Exception{}, &LengthError{Field: "Exception", Want: "1", Got: len(data)}
	}
	desc, ok := exceptionDescriptions[data[0]]
	if !ok {
		desc = fmt.Sprintf("0x%02X => UNKNOWN EXCEPTION CODE", data[0])
	}
	return Exception{Code: data[0], Description: desc}, nil
}

// Decoders adapts the typed decoders to the Decoder signature.
var (
	AddressQuantityDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeAddressQuantity(data))
	}
	BooleansDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeBooleans(data))
	}
	AddressBooleanDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeAddressBoolean(data))
	}
	AddressRegisterDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeAddressRegister(data))
	}
	AddressQuantityBooleansDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeAddressQuantityBooleans(data))
	}
	ExceptionDecoder Decoder = func(data []byte) (Field, error) {
		return wrap(DecodeException(data))
	}
)

// RegistersDecoder returns a Registers decoder producing the given widths.
func RegistersDecoder(widths Widths) Decoder {
	return func(data []byte) (Field, error) {
		return wrap(DecodeRegisters(data, widths))
	}
}

// AddressQuantityRegistersDecoder returns an AddressQuantityRegisters
// decoder producing the given widths.
func AddressQuantityRegistersDecoder(widths Widths) Decoder {
	return func(data []byte) (Field, error) {
		return wrap(DecodeAddressQuantityRegisters(data, widths))
	}
}

// wrap keeps a failed decode from surfacing as a non-nil Field holding a
// zero value.
func wrap[T Field](f T, err error) (Field, error) {
	if err != nil {
		return nil, err
	}
	return f, nil
}
