package registry

import "github.com/anicoll/baratron-integration/internal/pkg/model"

// Logical field names reported by the eBaratron.
const (
	Pressure          = "pressure"
	RunHours          = "run hours"
	PressureUnits     = "pressure units"
	LEDColor          = "led color"
	WaitHours         = "wait hours"
	Drift             = "drift"
	SystemStatus      = "system status"
	FullScalePressure = "full-scale pressure"
)

// PressureUnitLabels is indexed by the value of EVID_105.
var PressureUnitLabels = []string{
	"full-scale ratio",
	"psi",
	"torr",
	"mtorr",
	"cmH2O",
	"inHg",
	"inH2O",
	"bar",
	"mbar",
	"Pa",
	"kPa",
	"atm",
	"g / cm2",
}

// LEDLabels is indexed by bit position of EVID_106.
var LEDLabels = []string{
	"red",
	"green",
	"yellow",
	"",
	"blinking",
}

// StatusLabels is indexed by bit position of EVID_208.
var StatusLabels = []string{
	"",
	"Signal Error (ADC0)",
	"Signal Error (ADC1)",
	"Calibration Checksum1 Failure",
	"Calibration Checksum2 Failure",
	"e-Baratron Outside Zeroing Range",
	"Zero Adjusted",
	"", "", "", "",
	"Diaphragm Shorted",
	"e-Baratron Over 110% of FS",
	"", "", "",
	"Pressure Over Set Limit",
	"Pressure Under Set Limit",
	"", "", "",
	"Illegal Access",
	"", "", "", "",
	"Power Supply Out of Spec",
	"e-Baratron Zeroing Recommended",
	"Cumulative Adjustment Over 20%",
	"Heater Failure",
}

const (
	StatusOK   = "ok"
	LEDUnknown = "unknown"
)

// DefaultFields is the eBaratron poll set, in request order.
func DefaultFields() []model.Field {
	return []model.Field{
		model.Float(Pressure, "EVID_100", model.UnitDynamic),
		model.Duration(RunHours, "EVID_102", model.SecondsPerHour),
		model.Enum(PressureUnits, "EVID_105", PressureUnitLabels...),
		model.Bitmask(LEDColor, "EVID_106", LEDUnknown, LEDLabels...),
		model.Duration(WaitHours, "EVID_107", model.SecondsPerHour),
		model.Float(Drift, "EVID_114", model.UnitDynamic),
		model.Bitmask(SystemStatus, "EVID_208", StatusOK, StatusLabels...),
		model.Float(FullScalePressure, "EVID_1103", model.UnitDynamic),
	}
}
