// Package main is uchet-call, a command line client for the uchet backend.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xotizwf-create/Uchet/pkg/runner"
)

var (
	endpoint string
	token    string
	shim     string
	timeout  time.Duration
	pretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "uchet-call",
	Short: "Command line client for the uchet backend",
	Long: `uchet-call talks to the single /api/appBackend endpoint the way the
front-end shim does: one action per call, the envelope unwrapped, data
on stdout and the failure string on stderr.`,
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <action> [params-json]",
	Short: "Invoke one backend action",
	Example: `  uchet-call invoke warehouse.getStock '{"sku":"X1"}'
  uchet-call -t demo-token invoke pricelist.list`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var params interface{}
		if len(args) > 1 {
			var doc json.RawMessage
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				fmt.Fprintf(os.Stderr, "invalid params JSON: %v\n", err)
				os.Exit(2)
			}
			params = doc
		}
		os.Exit(call(args[0], params))
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the actions registered on the backend",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(call("system.actions", nil))
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print the backend health report",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(call("system.health", nil))
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the configured token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(call("system.whoami", nil))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "http://127.0.0.1:8080/api/appBackend", "backend endpoint URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("UCHET_TOKEN"), "bearer token (default $UCHET_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&shim, "shim", "", "shim version to report to the server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "indent JSON output")

	rootCmd.AddCommand(invokeCmd, actionsCmd, healthCmd, whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// call invokes one action and prints the outcome. The return value is
// the process exit code: 0 when the success handler ran, 1 otherwise.
func call(action string, params interface{}) int {
	opts := []runner.Option{
		runner.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if token != "" {
		opts = append(opts, runner.WithToken(token))
	}
	if shim != "" {
		opts = append(opts, runner.WithShimVersion(shim))
	}
	backend := runner.New(endpoint, opts...)

	exit := 0
	backend.
		WithSuccessHandler(func(data json.RawMessage) {
			fmt.Println(renderData(data))
		}).
		WithFailureHandler(func(message string) {
			fmt.Fprintln(os.Stderr, message)
			exit = 1
		}).
		Invoke(action, params).
		Wait()
	return exit
}

// renderData formats a data document for the terminal.
func renderData(data json.RawMessage) string {
	if !pretty {
		return string(data)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
