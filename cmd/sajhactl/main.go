/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command sajhactl is an admin client for the sajha-server REST surface
// (spec.md §6 /api/admin/*): API-key issuance, tool lifecycle, and
// registry reload.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
)

var rootCmd = &cobra.Command{
	Use:   "sajhactl",
	Short: "Admin CLI for the SAJHA MCP tool server",
	Long:  "sajhactl drives the /api/admin REST surface of a running sajha-server instance.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOrDefault("SAJHACTL_SERVER", "http://localhost:8080"), "sajha-server base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("SAJHACTL_API_KEY"), "admin API key (X-API-Key header)")

	rootCmd.AddCommand(toolsCmd, apikeysCmd, usersCmd)
	toolsCmd.AddCommand(toolsListCmd, toolsEnableCmd, toolsDisableCmd, toolsDeleteCmd, toolsReloadCmd)
	apikeysCmd.AddCommand(apikeysCreateCmd, apikeysGetCmd, apikeysDeleteCmd)
	usersCmd.AddCommand(usersCreateCmd)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage tool registrations",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tools visible to the admin key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().get("/api/tools/list"))
	},
}

var toolsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Enable a tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().post("/api/admin/tools/"+args[0]+"/enable", nil))
	},
}

var toolsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Disable a tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().post("/api/admin/tools/"+args[0]+"/disable", nil))
	},
}

var toolsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Unregister a tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().delete("/api/admin/tools/" + args[0] + "/delete"))
	},
}

var toolsReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rescan the tool configuration directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().post("/api/admin/tools/reload", nil))
	},
}

var apikeysCmd = &cobra.Command{
	Use:   "apikeys",
	Short: "Manage API keys",
}

var (
	akPrincipalID      string
	akRoles            []string
	akAllowedTools     []string
	akAllowedPatterns  []string
	akRequestsPerMin   int
	akRequestsPerHour  int
)

var apikeysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"principal_id":     akPrincipalID,
			"roles":            akRoles,
			"allowed_tools":    akAllowedTools,
			"allowed_patterns": akAllowedPatterns,
		}
		if akRequestsPerMin > 0 || akRequestsPerHour > 0 {
			body["rate_limit"] = map[string]any{
				"requests_per_minute": akRequestsPerMin,
				"requests_per_hour":   akRequestsPerHour,
			}
		}
		return printJSON(client().post("/api/admin/apikeys", body))
	},
}

var apikeysGetCmd = &cobra.Command{
	Use:   "get <partial>",
	Args:  cobra.ExactArgs(1),
	Short: "Look up an API key by its partial identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().get("/api/admin/apikeys/" + args[0]))
	},
}

var apikeysDeleteCmd = &cobra.Command{
	Use:   "delete <partial>",
	Args:  cobra.ExactArgs(1),
	Short: "Revoke an API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(client().delete("/api/admin/apikeys/" + args[0]))
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user credentials",
}

var (
	userIdentifier string
	userPassword   string
	userRoles      []string
)

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or replace a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"identifier": userIdentifier,
			"password":   userPassword,
			"roles":      userRoles,
		}
		return printJSON(client().post("/api/admin/users", body))
	},
}

func init() {
	apikeysCreateCmd.Flags().StringVar(&akPrincipalID, "principal-id", "", "principal ID the key resolves to (required)")
	apikeysCreateCmd.Flags().StringSliceVar(&akRoles, "role", nil, "role granted to the principal (repeatable)")
	apikeysCreateCmd.Flags().StringSliceVar(&akAllowedTools, "allowed-tool", nil, "tool name this key may call (repeatable, \"*\" for all)")
	apikeysCreateCmd.Flags().StringSliceVar(&akAllowedPatterns, "allowed-pattern", nil, "regex a tool name may match (repeatable)")
	apikeysCreateCmd.Flags().IntVar(&akRequestsPerMin, "requests-per-minute", 0, "per-minute quota (0: unlimited)")
	apikeysCreateCmd.Flags().IntVar(&akRequestsPerHour, "requests-per-hour", 0, "per-hour quota (0: unlimited)")
	_ = apikeysCreateCmd.MarkFlagRequired("principal-id")

	usersCreateCmd.Flags().StringVar(&userIdentifier, "identifier", "", "user identifier (required)")
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "user password (required)")
	usersCreateCmd.Flags().StringSliceVar(&userRoles, "role", nil, "role granted to the user (repeatable)")
	_ = usersCreateCmd.MarkFlagRequired("identifier")
	_ = usersCreateCmd.MarkFlagRequired("password")
}

func client() *adminClient {
	return newAdminClient(strings.TrimRight(serverURL, "/"), apiKey)
}
