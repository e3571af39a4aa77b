package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/voiceteller/voiceteller/internal/bank"
	"github.com/voiceteller/voiceteller/internal/config"
)

// seedMerchants are the demo merchants created by the seed command.
var seedMerchants = []bank.Merchant{
	{
		Name: "Starbucks", Category: "Coffee Shop",
		Address: bank.Address{StreetNumber: "1", StreetName: "Main St", City: "New York", State: "NY", Zip: "10001"},
		Geocode: bank.Geocode{Lat: 40.7128, Lng: -74.0060},
	},
	{
		Name: "Amazon", Category: "Retail",
		Address: bank.Address{StreetNumber: "410", StreetName: "Terry Ave", City: "Seattle", State: "WA", Zip: "98109"},
		Geocode: bank.Geocode{Lat: 47.6221, Lng: -122.3365},
	},
	{
		Name: "Whole Foods", Category: "Grocery",
		Address: bank.Address{StreetNumber: "270", StreetName: "E 4th St", City: "Austin", State: "TX", Zip: "78701"},
		Geocode: bank.Geocode{Lat: 30.2680, Lng: -97.7417},
	},
	{
		Name: "Uber", Category: "Transportation",
		Address: bank.Address{StreetNumber: "1455", StreetName: "Market St", City: "San Francisco", State: "CA", Zip: "94103"},
		Geocode: bank.Geocode{Lat: 37.7766, Lng: -122.4177},
	},
	{
		Name: "Chipotle", Category: "Restaurant",
		Address: bank.Address{StreetNumber: "201", StreetName: "E 13th St", City: "New York", State: "NY", Zip: "10003"},
		Geocode: bank.Geocode{Lat: 40.7336, Lng: -73.9872},
	},
}

var seedCustomers = []string{"Alice", "Tom", "Sam"}

func newSeedCmd() *cobra.Command {
	var purchases int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo merchants, customers, accounts, and purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Bank.APIKey == "" {
				return fmt.Errorf("bank.apiKey is not configured")
			}

			client := bank.NewClient(cfg.Bank.APIKey, cfg.Bank.BaseURL, log)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			merchantIDs := make(map[string]string, len(seedMerchants))
			merchantNames := make([]string, 0, len(seedMerchants))
			for _, m := range seedMerchants {
				created, err := client.CreateMerchant(ctx, m)
				if err != nil {
					return fmt.Errorf("creating merchant %s: %w", m.Name, err)
				}
				merchantIDs[m.Name] = created.ID
				merchantNames = append(merchantNames, m.Name)
				fmt.Printf("Created merchant %-12s %s\n", m.Name, created.ID)
			}

			for _, name := range seedCustomers {
				customer, err := client.CreateCustomer(ctx, bank.Customer{
					FirstName: name,
					LastName:  "Smith",
					Address: bank.Address{
						StreetNumber: "123", StreetName: "Main St",
						City: "Anytown", State: "VA", Zip: "12345",
					},
				})
				if err != nil {
					return fmt.Errorf("creating customer %s: %w", name, err)
				}

				account, err := client.CreateAccount(ctx, customer.ID, bank.Account{
					Type:     "Checking",
					Nickname: name + "'s Checking",
					Rewards:  1000,
					Balance:  5000,
				})
				if err != nil {
					return fmt.Errorf("creating account for %s: %w", name, err)
				}

				for i := 0; i < purchases; i++ {
					merchantName := merchantNames[rand.Intn(len(merchantNames))]
					date := time.Now().AddDate(0, 0, -(purchases - i)).Format("2006-01-02")
					_, err := client.CreatePurchase(ctx, account.ID, bank.PurchaseRequest{
						MerchantID:   merchantIDs[merchantName],
						Medium:       "balance",
						PurchaseDate: date,
						Amount:       5 + rand.Float64()*145,
						Description:  merchantName + " purchase",
					})
					if err != nil {
						return fmt.Errorf("creating purchase for %s: %w", name, err)
					}
				}

				fmt.Printf("Created customer %-6s account %s with %d purchases\n", name, account.ID, purchases)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&purchases, "purchases", 10, "purchases to create per account")

	return cmd
}
