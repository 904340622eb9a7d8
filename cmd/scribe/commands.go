package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/scribe/internal/config"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Analyze an utterance and store what it contains",
	Long: `Analyze an utterance: route it to calendar or memory, extract events,
and persist anything worth keeping.

Examples:
  scribe analyze "I have a wedding in 2 weeks"
  scribe analyze "My dad's name is Paul"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/analyze", map[string]string{"text": text})
		if err != nil {
			return err
		}

		var result struct {
			Destination string  `json:"destination"`
			Confidence  float64 `json:"confidence"`
			Reasoning   string  `json:"reasoning"`
			Events      []struct {
				Title     string `json:"title"`
				StartDate string `json:"start_date"`
				Color     string `json:"color"`
			} `json:"events"`
			Memory *struct {
				ID       string `json:"id"`
				Category string `json:"category"`
				Content  string `json:"content"`
			} `json:"memory"`
			DuplicateOf string `json:"duplicate_of"`
			Assisted    bool   `json:"assisted"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStatus("Destination", "%s (%.2f)", result.Destination, result.Confidence)
		printStatus("Reasoning", "%s", result.Reasoning)
		for _, e := range result.Events {
			fmt.Printf("  %s %s on %s\n", colorize(colorCyan, "event:"), e.Title, e.StartDate)
		}
		if result.Memory != nil {
			fmt.Printf("  %s [%s] %s\n", colorize(colorCyan, "memory:"), result.Memory.Category, result.Memory.Content)
		}
		if result.DuplicateOf != "" {
			printWarning("Duplicate of existing memory %s, refreshed instead", result.DuplicateOf)
		}
		return nil
	},
}

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair a reply's calendar directives against an utterance",
	RunE: func(cmd *cobra.Command, args []string) error {
		reply, _ := cmd.Flags().GetString("reply")
		utterance, _ := cmd.Flags().GetString("utterance")

		if reply == "" {
			return fmt.Errorf("--reply is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"reply": reply, "utterance": utterance}
		resp, err := client.post(cmd.Context(), "/v1/reconcile", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["reply"])
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("reply", "", "assistant reply to repair")
	reconcileCmd.Flags().String("utterance", "", "user utterance the reply responds to")
}

// --- memories ---

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "List and manage stored memories",
}

var memoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/v1/memories?limit=%d", limit)
		if category != "" {
			path += "&category=" + url.QueryEscape(category)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var memories []struct {
			ID        string `json:"id"`
			Category  string `json:"category"`
			Content   string `json:"content"`
			UpdatedAt string `json:"updated_at"`
		}
		if err := decodeJSON(resp, &memories); err != nil {
			return err
		}

		if len(memories) == 0 {
			fmt.Println("No memories found.")
			return nil
		}

		for _, m := range memories {
			content := m.Content
			if len(content) > 80 {
				content = content[:80] + "..."
			}
			fmt.Printf("%s  %-22s  %s\n",
				colorize(colorCyan, m.ID[:8]),
				m.Category,
				content,
			)
		}
		return nil
	},
}

var memoriesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List memory categories with counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/memories/categories")
		if err != nil {
			return err
		}

		var categories []struct {
			Category string `json:"category"`
			Count    int    `json:"count"`
		}
		if err := decodeJSON(resp, &categories); err != nil {
			return err
		}

		if len(categories) == 0 {
			fmt.Println("No categories found.")
			return nil
		}

		for _, c := range categories {
			fmt.Printf("  %s %d\n", colorize(colorBold, c.Category+":"), c.Count)
		}
		return nil
	},
}

var memoriesForgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Deactivate a stored memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/memories/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Forgot memory %s", args[0])
		return nil
	},
}

func init() {
	memoriesListCmd.Flags().String("category", "", "filter by category")
	memoriesListCmd.Flags().Int("limit", 50, "maximum number of memories to list")
	memoriesCmd.AddCommand(memoriesListCmd)
	memoriesCmd.AddCommand(memoriesCategoriesCmd)
	memoriesCmd.AddCommand(memoriesForgetCmd)
}

// --- events ---

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List upcoming calendar events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/events?limit=%d", limit))
		if err != nil {
			return err
		}

		var events []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			StartDate string `json:"start_date"`
		}
		if err := decodeJSON(resp, &events); err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No upcoming events.")
			return nil
		}

		for _, e := range events {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, e.ID[:8]),
				e.StartDate,
				e.Title,
			)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int("limit", 50, "maximum number of events to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where configuration is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.BackendDescription())
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the platform secret store",
	Long: `Store a secret in the platform secret store.

Valid keys:
  server.token    bearer token for the HTTP API
  gemini.api_key  Gemini API key for assisted extraction`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetSecret(key, value); err != nil {
			return err
		}

		printSuccess("Stored secret %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
