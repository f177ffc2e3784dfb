// Package main implements crackstore-cli, a non-interactive substitute
// for an interactive cracking-engine shell: it drives a node or
// coordinator's HTTP API from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var targetAddr string

func main() {
	root := &cobra.Command{
		Use:   "crackstore-cli",
		Short: "Command-line client for crackstore nodes and coordinators",
	}
	root.PersistentFlags().StringVar(&targetAddr, "target", "http://127.0.0.1:8180", "Base URL of the node or coordinator to talk to")

	root.AddCommand(
		newLoadColumnCmd(),
		newRangeQueryCmd(),
		newInsertCmd(),
		newRemoveCmd(),
		newStatsCmd(),
		newResetStatsCmd(),
		newListColumnsCmd(),
		newBulkLoadCmd(),
		newListNodesCmd(),
		newRegisterNodeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLoadColumnCmd() *cobra.Command {
	var data string
	var objectPath string
	var extraCapacity int

	cmd := &cobra.Command{
		Use:   "load-column <name>",
		Short: "Load a column's values, either inline (--data) or from object storage (--object-path)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			body := map[string]any{"extra_capacity": extraCapacity}
			if objectPath != "" {
				body["object_path"] = objectPath
			} else {
				values, err := parseIntList(data)
				if err != nil {
					return err
				}
				body["data"] = values
			}

			return doRequest(http.MethodPut, fmt.Sprintf("/columns/%s", name), body, nil)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Comma-separated int32 values to load")
	cmd.Flags().StringVar(&objectPath, "object-path", "", "Object storage path to a snappy-compressed column payload (node target only)")
	cmd.Flags().IntVar(&extraCapacity, "extra-capacity", -1, "Headroom for pending inserts; negative defers to the target's default")
	return cmd
}

func newRangeQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range-query <name> <low> <high>",
		Short: "Count values in [low, high) for a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			low, high := args[1], args[2]
			path := fmt.Sprintf("/columns/%s/range_query?low=%s&high=%s", name, low, high)

			var result json.RawMessage
			if err := doRequest(http.MethodGet, path, nil, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	return cmd
}

func newInsertCmd() *cobra.Command {
	return mutateCmd("insert", "Insert a value into a column (node target only)")
}

func newRemoveCmd() *cobra.Command {
	return mutateCmd("remove", "Remove a value from a column (node target only)")
}

func mutateCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <name> <value>", verb),
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			value, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			return doRequest(http.MethodPost, fmt.Sprintf("/columns/%s/%s", name, verb), map[string]any{"value": int32(value)}, nil)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "Print a column's query statistics (node target only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := doRequest(http.MethodGet, fmt.Sprintf("/columns/%s/stats", args[0]), nil, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newResetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stats <name>",
		Short: "Reset a column's query statistics (node target only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, fmt.Sprintf("/columns/%s/stats/reset", args[0]), nil, nil)
		},
	}
}

func newListColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-columns",
		Short: "List columns loaded on a node (node target only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := doRequest(http.MethodGet, "/columns", nil, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newBulkLoadCmd() *cobra.Command {
	var extraCapacity int

	cmd := &cobra.Command{
		Use:   "bulk-load <name=object-path> [<name=object-path> ...]",
		Short: "Load several columns from object storage concurrently (node target only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make(map[string]string, len(args))
			for _, pair := range args {
				parts := strings.SplitN(pair, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid pair %q, expected name=object-path", pair)
				}
				paths[parts[0]] = parts[1]
			}

			var result json.RawMessage
			body := map[string]any{"paths": paths, "extra_capacity": extraCapacity}
			if err := doRequest(http.MethodPost, "/columns/bulk_load", body, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVar(&extraCapacity, "extra-capacity", -1, "Headroom for pending inserts; negative defers to the node's default")
	return cmd
}

func newListNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-nodes",
		Short: "List nodes registered with a coordinator (coordinator target only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := doRequest(http.MethodGet, "/nodes", nil, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newRegisterNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register-node <id> <addr>",
		Short: "Register a node with a coordinator (coordinator target only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/nodes", map[string]any{"id": args[0], "addr": args[1]}, nil)
		},
	}
}

func parseIntList(s string) ([]int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("--data must not be empty")
	}
	parts := strings.Split(s, ",")
	values := make([]int32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q in --data: %w", p, err)
		}
		values = append(values, int32(v))
	}
	return values, nil
}

func doRequest(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, strings.TrimRight(targetAddr, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(raw json.RawMessage) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
