// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package frame decodes delimited Modbus frames (slave address, function
// code and data field, checksum already stripped).
//
// The bytes on a serial line do not say whether the master or the slave
// sent them, so every frame is decoded twice: once as a master request and
// once as a slave response. The two readings are independent.
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/field"
)

var ErrShortFrame = errors.New("modbus: frame shorter than slave address and function code")

// Interpretation is one reading of the data field. Both members are nil when
// the function code defines no layout for the direction.
type Interpretation struct {
	Value field.Field
	Err   error
}

func (i Interpretation) Present() bool {
	return i.Value != nil
}

func (i Interpretation) Absent() bool {
	return i.Value == nil && i.Err == nil
}

func (i Interpretation) String() string {
	switch {
	case i.Value != nil:
		b, err := json.Marshal(i.Value)
		if err != nil {
			// NaN and Inf registers cannot be marshalled.
			return fmt.Sprintf("%s%+v", i.Value.Name(), i.Value)
		}
		return i.Value.Name() + string(b)
	case i.Err != nil:
		return "error(" + i.Err.Error() + ")"
	default:
		return "none"
	}
}

// State summarises the outcome of decoding a frame.
type State int

const (
	// StateInvalid is a frame reported as errored by the framer; its data
	// field is not decoded.
	StateInvalid State = iota
	// StateUnknown has no reading: the function code defines no layout, or
	// defines one for a single direction only and that one failed.
	StateUnknown
	// StateMismatch is a data field that fails both layouts of its function
	// code.
	StateMismatch
	// StateDecoded has at least one successful reading.
	StateDecoded
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateUnknown:
		return "unknown"
	case StateMismatch:
		return "mismatch"
	case StateDecoded:
		return "decoded"
	default:
		return "state(" + fmt.Sprint(int(s)) + ")"
	}
}

// Frame is a decoded Modbus frame.
type Frame struct {
	Kind         modbus.Kind
	SlaveAddress byte
	FunctionCode byte
	Description  string
	Data         []byte

	Request  Interpretation // as sent by the master
	Response Interpretation // as sent by the slave
}

// Decode splits data into slave address, function code and data field and
// decodes the data field in both directions. Errored frames are split but not
// decoded. Frames shorter than two bytes return ErrShortFrame.
func (r *Registry) Decode(data []byte, kind modbus.Kind) (*Frame, error) {
	if len(data) < 2 {
		return nil, ErrShortFrame
	}
	f := &Frame{
		Kind:         kind,
		SlaveAddress: data[0],
		FunctionCode: data[1],
		Description:  r.Description(data[1]),
		Data:         data[2:],
	}
	if kind == modbus.KindErrored {
		return f, nil
	}
	if fn := r.Lookup(f.FunctionCode); fn != nil {
		f.Request = interpret(fn.Request, f.Data)
		f.Response = interpret(fn.Response, f.Data)
	}
	return f, nil
}

// Decode decodes data with DefaultRegistry.
func Decode(data []byte, kind modbus.Kind) (*Frame, error) {
	return DefaultRegistry.Decode(data, kind)
}

func interpret(decode field.Decoder, data []byte) Interpretation {
	if decode == nil {
		return Interpretation{}
	}
	v, err := decode(data)
	if err != nil {
		return Interpretation{Err: err}
	}
	return Interpretation{Value: v}
}

func (f *Frame) State() State {
	switch {
	case f.Kind == modbus.KindErrored:
		return StateInvalid
	case f.Request.Present() || f.Response.Present():
		return StateDecoded
	case f.Request.Err != nil && f.Response.Err != nil:
		return StateMismatch
	default:
		return StateUnknown
	}
}

// Bytes returns the frame without checksum: slave address, function code
// and data field.
func (f *Frame) Bytes() []byte {
	return Compose(f.SlaveAddress, f.FunctionCode, f.Data)
}

// Summary renders the frame for an operator.
func (f *Frame) Summary() string {
	raw := strings.ToUpper(fmt.Sprintf("%x", f.Data))
	switch f.State() {
	case StateInvalid:
		return "Invalid frame: 0x" + strings.ToUpper(fmt.Sprintf("%x", f.Bytes()))
	case StateUnknown:
		return "No layout for the data field, raw data: 0x" + raw
	case StateMismatch:
		return fmt.Sprintf("Data field fits no layout of the function code: request=%s; response=%s; raw data: 0x%s",
			f.Request, f.Response, raw)
	default:
		return fmt.Sprintf("Valid frame: request=%s; response=%s", f.Request, f.Response)
	}
}

// Compose builds the bytes of a frame ready to be handed to a framer's Send.
func Compose(slaveAddress, functionCode byte, data []byte) []byte {
	b := make([]byte, 0, 2+len(data))
	b = append(b, slaveAddress, functionCode)
	return append(b, data...)
}
