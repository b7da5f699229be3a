// This file implements output rendering for CLI commands: table, JSON and
// YAML formats.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/metricsd/internal/metrics"
)

func renderSnapshot(w io.Writer, snap metrics.Snapshot) error {
	switch format() {
	case "json":
		return renderJSON(w, snap)
	case "yaml":
		return renderYAML(w, snap)
	default:
		return renderScopesTable(w, snap.Scopes)
	}
}

func renderScopes(w io.Writer, scopes []metrics.ScopeSnapshot) error {
	switch format() {
	case "json":
		return renderJSON(w, scopes)
	case "yaml":
		return renderYAML(w, scopes)
	default:
		return renderScopesTable(w, scopes)
	}
}

func renderInstrumentList(w io.Writer, infos []metrics.InstrumentInfo) error {
	switch format() {
	case "json":
		return renderJSON(w, infos)
	case "yaml":
		return renderYAML(w, infos)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Scope", "Instrument", "Kind", "Enabled")
	for _, info := range infos {
		_ = table.Append([]string{
			info.Scope,
			info.Name,
			string(info.Kind),
			strconv.FormatBool(info.Enabled),
		})
	}
	return table.Render()
}

func renderScopesTable(w io.Writer, scopes []metrics.ScopeSnapshot) error {
	table := tablewriter.NewWriter(w)
	table.Header("Scope", "Instrument", "Kind", "Enabled", "Value")
	for _, scope := range scopes {
		for _, inst := range scope.Instruments {
			_ = table.Append([]string{
				scope.Name,
				inst.Name,
				string(inst.Kind),
				strconv.FormatBool(inst.Enabled),
				formatValue(inst),
			})
		}
	}
	return table.Render()
}

func formatValue(inst metrics.InstrumentSnapshot) string {
	switch {
	case inst.Counter != nil:
		return strconv.FormatInt(*inst.Counter, 10)
	case inst.Gauge != nil:
		return strconv.FormatFloat(*inst.Gauge, 'g', -1, 64)
	case inst.Histogram != nil:
		return fmt.Sprintf("count=%d sum=%g", inst.Histogram.Count, inst.Histogram.Sum)
	default:
		return "-"
	}
}

func renderJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func renderYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}

func format() string {
	return viper.GetString("output")
}
