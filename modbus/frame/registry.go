// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package frame

import (
	"fmt"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/field"
)

// Function describes one function code and the layouts of its data field in
// both directions. A nil decoder means the direction carries no structured
// data.
type Function struct {
	Code        byte
	Description string
	Request     field.Decoder // master to slave
	Response    field.Decoder // slave to master
}

// Registry maps every function code to its Function. It is immutable once
// built and safe for concurrent use.
type Registry struct {
	functions [256]*Function
	widths    field.Widths
}

var descriptions = map[byte]string{
	modbus.FuncCodeReadCoils:              "Read Coils",
	modbus.FuncCodeReadDiscreteInputs:     "Read Discrete Inputs",
	modbus.FuncCodeReadHoldingRegisters:   "Read Holding Registers",
	modbus.FuncCodeReadInputRegisters:     "Read Input Registers",
	modbus.FuncCodeWriteSingleCoil:        "Write Single Coil",
	modbus.FuncCodeWriteSingleRegister:    "Write Single Register",
	modbus.FuncCodeReadExceptionStatus:    "Read Exception Status",
	modbus.FuncCodeDiagnostics:            "Diagnostics",
	modbus.FuncCodeWriteMultipleCoils:     "Write Multiple Coils",
	modbus.FuncCodeWriteMultipleRegisters: "Write Multiple Registers",
	modbus.FuncCodeReportServerID:         "Report Server ID",
}

// DefaultRegistry decodes registers as uint16 and int16.
var DefaultRegistry = NewRegistry(field.DefaultWidths)

// NewRegistry builds the function table. widths selects the numeric
// interpretations of register data.
func NewRegistry(widths field.Widths) *Registry {
	r := &Registry{widths: widths}
	registers := field.RegistersDecoder(widths)

	codecs := map[byte][2]field.Decoder{
		modbus.FuncCodeReadCoils:              {field.AddressQuantityDecoder, field.BooleansDecoder},
		modbus.FuncCodeReadDiscreteInputs:     {field.AddressQuantityDecoder, field.BooleansDecoder},
		modbus.FuncCodeReadHoldingRegisters:   {field.AddressQuantityDecoder, registers},
		modbus.FuncCodeReadInputRegisters:     {field.AddressQuantityDecoder, registers},
		modbus.FuncCodeWriteSingleCoil:        {field.AddressBooleanDecoder, field.AddressBooleanDecoder},
		modbus.FuncCodeWriteSingleRegister:    {field.AddressRegisterDecoder, field.AddressRegisterDecoder},
		modbus.FuncCodeWriteMultipleCoils:     {field.AddressQuantityBooleansDecoder, field.AddressQuantityDecoder},
		modbus.FuncCodeWriteMultipleRegisters: {field.AddressQuantityRegistersDecoder(widths), field.AddressQuantityDecoder},
	}

	for code, desc := range descriptions {
		pair := codecs[code]
		r.functions[code] = &Function{
			Code:        code,
			Description: desc,
			Request:     pair[0],
			Response:    pair[1],
		}
		errCode := code | modbus.FuncCodeErrorFlag
		r.functions[errCode] = &Function{
			Code:        errCode,
			Description: desc + " (exception)",
			Response:    field.ExceptionDecoder,
		}
	}
	return r
}

// Lookup returns the Function registered for code, or nil.
func (r *Registry) Lookup(code byte) *Function {
	return r.functions[code]
}

// Widths returns the register widths the registry decodes.
func (r *Registry) Widths() field.Widths {
	return r.widths
}

// Description returns a human readable name for any function code.
func (r *Registry) Description(code byte) string {
	if fn := r.functions[code]; fn != nil {
		return fn.Description
	}
	if code&modbus.FuncCodeErrorFlag != 0 {
		return fmt.Sprintf("Unknown error 0x%02X", code)
	}
	return fmt.Sprintf("Unknown function 0x%02X", code)
}
