package tsl

import (
	"fmt"
	"strings"

	"github.com/photonbench/golight/scpi"
)

// commandCodes decodes replies to :SYST:ERR? on the TSL-570.  The codes
// follow the usual SCPI negative convention.
var commandCodes = scpi.CodeTable{
	0:    "No error",
	-102: "Syntax error",
	-103: "Invalid separator",
	-108: "Parameter not allowed",
	-109: "Missing parameter",
	-113: "Undefined header",
	-148: "Character data not allowed",
	-200: "Execution error",
	-222: "Data out of range",
	-410: "Query INTERRUPTED",
}

// alertDescriptions decodes replies to :SYST:ALER?, which name hardware
// faults rather than command problems.  The keys are as printed by the
// instrument, "No07" and so on.
var alertDescriptions = map[string]string{
	"No00": "Power supply Error1",
	"No02": "Power supply Error2",
	"No03": "Power supply Error3",
	"No04": "Power setting error (Unconfigurable power)",
	"No05": "Wavelength Error",
	"No06": "Attenuator Error",
	"No07": "Interlock detection",
	"No20": "Temperature control Error1",
	"No21": "Temperature control Error2",
	"No22": "Temperature control Error3",
	"No23": "Temperature control Error4",
	"No24": "Sensor Error1",
	"No25": "Shutter Error",
	"No26": "Sensor Error2",
	"No27": "Connection Error",
	"No30": "Exhaust Fan Error",
}

// DescribeAlert returns the human readable meaning of an alert code such as
// "No07".  The return is never empty; unrecognized codes get the same
// sentinel the numeric tables use.
func DescribeAlert(code string) string {
	if desc, ok := alertDescriptions[strings.TrimSpace(code)]; ok {
		return desc
	}
	return scpi.UnknownCode
}

// Alert is a hardware fault reported by the laser
type Alert struct {
	Code string
}

func (a Alert) Error() string {
	return fmt.Sprintf("laser alert %s: %s", a.Code, DescribeAlert(a.Code))
}
