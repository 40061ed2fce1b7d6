package pcu

import "github.com/photonbench/golight/scpi"

// errorCodes decodes replies to :SYST:ERR? on the PCU
var errorCodes = scpi.CodeTable{
	0:    "No error occurred during the operation.",
	-102: "The command contains an invalid syntax or unrecognized format.",
	-103: "A separator in the command is missing or incorrect.",
	-108: "The command contains an unexpected or unsupported parameter.",
	-109: "Required parameter(s) are missing from the command.",
	-113: "The command header is syntactically correct but not supported by the device.",
	-131: "A suffix in the command is invalid or incorrectly formatted.",
	-148: "Character data was received where it is not permitted.",
	-200: "The device is in a state that prevents execution of the command.",
	-222: "A parameter value is outside the permissible range.",
	-224: "A specific value expected by the command is invalid.",
	-410: "The query was interrupted due to an unexpected condition.",
}

// DescribeError returns the description for a PCU error code, never empty
func DescribeError(code int) string {
	return errorCodes.Describe(code)
}
