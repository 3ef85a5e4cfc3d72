package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/auth"
)

// newKeysCmd manages seller API keys directly in the local database. This is
// how the first key for a seller is issued.
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage seller API keys",
		Long:  "Create, list and revoke seller API keys in the local database.",
	}

	cmd.AddCommand(newKeysCreateCmd(), newKeysListCmd(), newKeysDeleteCmd())
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var seller string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Issue a new API key for a seller",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysCreate(cmd, strings.Join(args, " "), seller)
		},
	}

	cmd.Flags().StringVar(&seller, "seller", "", "seller the key acts for (default: $LISTINGS_SELLER or the logged-in seller)")

	return cmd
}

func runKeysCreate(cmd *cobra.Command, name, seller string) error {
	if !cmd.Flags().Changed("seller") {
		seller = getSeller()
	}
	if strings.TrimSpace(seller) == "" {
		return fmt.Errorf("--seller is required when no seller is configured")
	}

	store, closeStore, err := openKeyStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	raw, key, err := store.Create(name, seller)
	if err != nil {
		return fmt.Errorf("creating api key: %w", err)
	}

	if isJSON() {
		return printJSON(map[string]interface{}{"key": raw, "api_key": key})
	}

	fmt.Printf("Created key #%d %q for seller %s.\n", key.ID, key.Name, key.SellerID)
	fmt.Printf("\n  %s\n\nThis key is shown only once.\n", raw)
	return nil
}

func newKeysListCmd() *cobra.Command {
	var seller string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			keys, err := store.List(seller)
			if err != nil {
				return fmt.Errorf("listing api keys: %w", err)
			}
			if isJSON() {
				return printJSON(keys)
			}
			return printKeyTable(keys)
		},
	}

	cmd.Flags().StringVar(&seller, "seller", "", "only this seller's keys")

	return cmd
}

func newKeysDeleteCmd() *cobra.Command {
	var seller string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key ID: %s", args[0])
			}

			store, closeStore, err := openKeyStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(cmd.Context(), id, seller); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]interface{}{"id": id, "removed": true})
			}
			fmt.Printf("Key #%d revoked.\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&seller, "seller", "", "only delete the key if it belongs to this seller")

	return cmd
}

// openKeyStore opens the local database and, when configured, the redis cache
// so revoked keys are evicted from the session cache.
func openKeyStore(cmd *cobra.Command) (*auth.APIKeyStore, func(), error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, nil, err
	}

	database, _, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	c, err := openCache(cmd.Context(), cfg)
	if err != nil {
		closeDB(database)
		return nil, nil, err
	}
	if c == nil {
		return auth.NewAPIKeyStore(database, nil), func() { closeDB(database) }, nil
	}

	return auth.NewAPIKeyStore(database, c), func() {
		_ = c.Close()
		closeDB(database)
	}, nil
}

func printKeyTable(keys []auth.APIKey) error {
	if len(keys) == 0 {
		fmt.Println("No API keys.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tSELLER\tPREFIX\tCREATED\tLAST USED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.SellerID, k.KeyPrefix, k.CreatedAt.Format("2006-01-02"), lastUsed); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}
