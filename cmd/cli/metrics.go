// This file implements the client commands that drive a running daemon:
// dump, enable and test.
package cli

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/anstrom/metricsd/internal/metrics"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [scope]",
	Short: "Dump current metric values",
	Long: `Fetch a snapshot of all instruments' current values from a running
daemon. With a scope argument only that scope is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered instruments",
	RunE:  runList,
}

var enableCmd = &cobra.Command{
	Use:   "enable SCOPE INSTRUMENT on|off",
	Short: "Enable or disable an instrument",
	Long: `Toggle whether an instrument accepts recordings. Disabling preserves the
last value; enabling resumes recordings without resetting state.`,
	Args: cobra.ExactArgs(3),
	RunE: runEnable,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the daemon self-test",
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(testCmd)
}

func runDump(_ *cobra.Command, args []string) error {
	client := newAPIClient()

	if len(args) == 1 {
		var scope metrics.ScopeSnapshot
		if err := client.get("/api/v1/metrics/"+url.PathEscape(args[0]), &scope); err != nil {
			return err
		}
		return renderScopes(os.Stdout, []metrics.ScopeSnapshot{scope})
	}

	var snap metrics.Snapshot
	if err := client.get("/api/v1/metrics", &snap); err != nil {
		return err
	}
	return renderSnapshot(os.Stdout, snap)
}

func runList(_ *cobra.Command, _ []string) error {
	client := newAPIClient()

	var resp struct {
		Instruments []metrics.InstrumentInfo `json:"instruments"`
	}
	if err := client.get("/api/v1/metrics/instruments", &resp); err != nil {
		return err
	}
	return renderInstrumentList(os.Stdout, resp.Instruments)
}

func runEnable(_ *cobra.Command, args []string) error {
	var status bool
	switch args[2] {
	case "on", "true":
		status = true
	case "off", "false":
		status = false
	default:
		return fmt.Errorf("invalid status %q, expected on or off", args[2])
	}

	client := newAPIClient()
	payload := map[string]interface{}{
		"scope_name":      args[0],
		"instrument_name": args[1],
		"status":          status,
	}
	if err := client.post("/api/v1/metrics/enable", payload, nil); err != nil {
		return err
	}

	state := "disabled"
	if status {
		state = "enabled"
	}
	fmt.Printf("Instrument %s/%s %s\n", args[0], args[1], state)
	return nil
}

func runTest(_ *cobra.Command, _ []string) error {
	client := newAPIClient()
	if err := client.post("/api/v1/metrics/test", nil, nil); err != nil {
		return err
	}
	fmt.Println("Self-test passed")
	return nil
}
