package output

import (
	"encoding/json"

	"github.com/gatewarden/gatewarden/internal/ratelimit"
)

// JSONFormatter renders output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTiers renders the tier registry as JSON.
func (f *JSONFormatter) FormatTiers(tiers []ratelimit.Tier) (string, error) {
	return f.marshal(tiers)
}

// FormatSimulation renders a simulation trace as JSON.
func (f *JSONFormatter) FormatSimulation(report *SimulationReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
