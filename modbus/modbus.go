// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the definitions shared by the framers and the decoders.
package modbus

// Function Codes
const (
	FuncCodeReadCoils              = 0x01
	FuncCodeReadDiscreteInputs     = 0x02
	FuncCodeReadHoldingRegisters   = 0x03
	FuncCodeReadInputRegisters     = 0x04
	FuncCodeWriteSingleCoil        = 0x05
	FuncCodeWriteSingleRegister    = 0x06
	FuncCodeReadExceptionStatus    = 0x07
	FuncCodeDiagnostics            = 0x08
	FuncCodeWriteMultipleCoils     = 0x0F
	FuncCodeWriteMultipleRegisters = 0x10
	FuncCodeReportServerID         = 0x11

	// FuncCodeErrorFlag is set in the function code of an exception response.
	FuncCodeErrorFlag = 0x80
)

// Exception Codes
const (
	ExceptionCodeIllegalFunction                    = 0x01
	ExceptionCodeIllegalDataAddress                 = 0x02
	ExceptionCodeIllegalDataValue                   = 0x03
	ExceptionCodeServerDeviceFailure                = 0x04
	ExceptionCodeAcknowledge                        = 0x05
	ExceptionCodeServerDeviceBusy                   = 0x06
	ExceptionCodeNegativeAcknowledge                = 0x07
	ExceptionCodeMemoryParityError                  = 0x08
	ExceptionCodeGatewayPathUnavailable             = 0x0A
	ExceptionCodeGatewayTargetDeviceFailedToRespond = 0x0B
)

// Kind classifies a reported byte segment.
type Kind int

const (
	// KindValid marks a checksum-valid frame with its checksum stripped.
	KindValid Kind = iota
	// KindErrored marks bytes that could not be framed: bad checksum,
	// unterminated frame, timeout flush or evicted noise.
	KindErrored
	// KindSent marks a frame composed locally and written to the line.
	KindSent
)

func (k Kind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindErrored:
		return "error"
	case KindSent:
		return "send"
	default:
		return "unknown"
	}
}

// Reporter receives the segments recovered from a byte stream, synchronously
// and in stream order. The slice is owned by the callee.
type Reporter func(data []byte, kind Kind)
