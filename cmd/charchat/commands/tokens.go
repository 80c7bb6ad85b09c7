package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"charchat-client/internal/models"
)

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token balance and purchases",
	}
	cmd.AddCommand(a.tokensPackagesCmd(), a.tokensBuyCmd(), a.tokensHistoryCmd(), a.tokensBalanceCmd())
	return cmd
}

func (a *app) tokensPackagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List token packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := a.svcs.Payments.Packages(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(pkgs, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tTOKENS\tBONUS\tPRICE\t")
				for _, p := range pkgs {
					popular := ""
					if p.Popular {
						popular = "popular"
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", p.ID, p.Name, p.Tokens, p.BonusTokens,
						money(p.PriceCents, p.Currency), popular)
				}
			})
		},
	}
}

func (a *app) tokensBuyCmd() *cobra.Command {
	var checkoutOnly bool
	cmd := &cobra.Command{
		Use:   "buy <packageId>",
		Short: "Buy a token package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			packageID := ""
			if len(args) == 1 {
				packageID = args[0]
			}
			if packageID != "" {
				if err := a.requireAuth(ctx); err != nil {
					return err
				}
			}
			payment, err := a.svcs.Payments.Checkout(ctx, packageID)
			if err != nil {
				return err
			}
			if checkoutOnly {
				a.printf("Payment %s created: %s for %d tokens\n", payment.ID, money(payment.AmountCents, payment.Currency), payment.Tokens)
				a.printf("Client secret: %s\n", payment.ClientSecret)
				return nil
			}
			confirmed, err := a.svcs.Payments.Confirm(ctx, payment.ID)
			if err != nil {
				return err
			}
			balance, err := a.svcs.Users.TokenBalance(ctx)
			if err != nil {
				return err
			}
			a.printf("Payment %s %s: +%d tokens, balance %d\n", confirmed.ID, confirmed.Status, confirmed.Tokens, balance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkoutOnly, "checkout-only", false, "create the payment without confirming it")
	return cmd
}

func (a *app) tokensHistoryCmd() *cobra.Command {
	var params models.ListParams
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show payment history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			page, err := a.svcs.Payments.History(ctx, params)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tTOKENS\tSTATUS")
				for _, p := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, shortTime(p.CreatedAt),
						money(p.AmountCents, p.Currency), p.Tokens, p.Status)
				}
				pageFooter(w, page.Page, page.Total, page.HasMore)
			})
		},
	}
	listFlags(cmd, &params)
	return cmd
}

func (a *app) tokensBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show token balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			balance, err := a.svcs.Users.TokenBalance(ctx)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.render(models.TokenBalance{Balance: balance}, nil)
			}
			a.printf("%d tokens\n", balance)
			return nil
		},
	}
}

func (a *app) subscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage your subscription",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			sub, err := a.svcs.Payments.Subscription(ctx)
			if err != nil {
				return err
			}
			return a.render(sub, func(w io.Writer) { printSubscription(w, sub) })
		},
	}

	subscribe := &cobra.Command{
		Use:   "subscribe <plan>",
		Short: "Subscribe to a plan (basic, premium)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			sub, err := a.svcs.Payments.Subscribe(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(sub, func(w io.Writer) { printSubscription(w, sub) })
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}
			if err := a.svcs.Payments.CancelSubscription(ctx); err != nil {
				return err
			}
			a.printf("Subscription cancelled\n")
			return nil
		},
	}

	cmd.AddCommand(show, subscribe, cancel)
	return cmd
}

func printSubscription(w io.Writer, sub *models.Subscription) {
	plan := sub.Plan
	if plan == "" {
		plan = "free"
	}
	fmt.Fprintf(w, "Plan:\t%s\n", plan)
	fmt.Fprintf(w, "Status:\t%s\n", sub.Status)
	fmt.Fprintf(w, "Monthly tokens:\t%d\n", sub.MonthlyTokens)
	if sub.RenewsAt != nil {
		fmt.Fprintf(w, "Renews:\t%s\n", shortTime(*sub.RenewsAt))
	}
}
