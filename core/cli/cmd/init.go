package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initOutputFile string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Initialize a new configuration document",
	RunE:         runInit,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initOutputFile, "output", "o", defaultConfigFileName, "Output file path for the configuration document")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if file already exists
	if _, err := os.Stat(initOutputFile); err == nil {
		return fmt.Errorf("file '%s' already exists. Use a different filename or remove the existing file", initOutputFile)
	}

	dir := filepath.Dir(initOutputFile)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(initOutputFile, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("✓ Created configuration file: %s\n", initOutputFile)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s with your database connection and query templates\n", initOutputFile)
	fmt.Printf("     (string fields in the database block accept {{ env.VAR }} references)\n")
	fmt.Printf("  2. Run: dbrun validate -f %s\n", initOutputFile)
	fmt.Printf("  3. Run: dbrun serve -f %s\n", initOutputFile)

	return nil
}

const configTemplate = `{
  "database": {
    "driver": "mysql",
    "host": "localhost",
    "port": 3306,
    "username": "root",
    "password": "",
    "database": "test_db"
  },
  "server": {
    "port": 8080,
    "log_level": "info",
    "query_timeout_seconds": 30
  },
  "queries": [
    {
      "name": "orders_by_status",
      "description": "List orders in a given status, newest first",
      "bubble_description": "Check order status",
      "sql": "SELECT id, customer_name, total_amount, status, created_at FROM orders WHERE status = '{{status}}' ORDER BY created_at DESC",
      "input_fields": [
        {
          "label": "status",
          "type": "select",
          "placeholder": "Order status",
          "options": ["pending", "paid", "shipped", "cancelled"]
        }
      ]
    },
    {
      "name": "close_old_orders",
      "description": "Cancel unpaid orders created before a cutoff date and count the rest",
      "sql": [
        "UPDATE orders SET status = 'cancelled' WHERE status = 'pending' AND created_at < '{{cutoff}}'",
        "SELECT COUNT(*) AS open_orders FROM orders WHERE status = 'pending'"
      ],
      "input_fields": [
        {
          "label": "cutoff",
          "type": "date",
          "placeholder": "YYYY-MM-DD"
        }
      ]
    }
  ]
}
`
