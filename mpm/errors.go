package mpm

import "github.com/photonbench/golight/scpi"

// errorCodes decodes replies to ERR? on the MPM-210 mainframe.  Negative
// codes are command decode problems; positive codes are internal faults
// between the mainframe and its modules.
var errorCodes = scpi.CodeTable{
	0:    "No error",
	-101: "Invalid character",
	-103: "Invalid separator",
	-104: "Data type error",
	-108: "Parameter not allowed",
	-109: "Missing parameter",
	-110: "Command header error",
	-113: "Undefined header",
	-221: "Setting conflict",
	-222: "Data out of range",
	-284: "Program currently running",
	-300: "Device specific error",
	-301: "Is not Measurement Module",
	-350: "Queue overflow",
	-351: "Queue empty",
	101:  "uPP Comm. Header Error",
	103:  "uPP Comm. Rsp No",
	104:  "uPP Comm. Module Mismatched",
	110:  "TCPIP Comm. Error",
	116:  "GPIB Tx not completed",
	117:  "GPIB Tx Timer Expired",
	120:  "MC Trig. Error",
	210:  "not exist SEM",
}

// DescribeError returns the description for an MPM error code, never empty
func DescribeError(code int) string {
	return errorCodes.Describe(code)
}
