package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/kyc-jibit/pkg/jibit"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Check identity data against the provider",
	}

	cmd.AddCommand(newMatchMobileCmd())
	cmd.AddCommand(newMatchCardCmd())

	return cmd
}

func newMatchMobileCmd() *cobra.Command {
	var in jibit.MobileMatch

	cmd := &cobra.Command{
		Use:     "mobile",
		Short:   "Check that a mobile number is registered to a national code",
		Example: `  kyc-jibit match mobile --mobile-number 09120000000 --national-code 0012345678`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, "mobile", func(ctx context.Context, p *jibit.Provider) (*jibit.MatchResponse, error) {
				return p.MatchNationalCodeWithMobileNumber(in).Send(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&in.MobileNumber, "mobile-number", "", "mobile number")
	cmd.Flags().StringVar(&in.NationalCode, "national-code", "", "10-digit national code")
	_ = cmd.MarkFlagRequired("mobile-number")
	_ = cmd.MarkFlagRequired("national-code")

	return cmd
}

func newMatchCardCmd() *cobra.Command {
	var in jibit.CardMatch

	cmd := &cobra.Command{
		Use:     "card",
		Short:   "Check that a bank card belongs to a national code",
		Example: `  kyc-jibit match card --card-number 6037991111111111 --national-code 0012345678 --birth-date 13700101`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd, "card", func(ctx context.Context, p *jibit.Provider) (*jibit.MatchResponse, error) {
				return p.MatchCardNumberWithNationalCode(in).Send(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&in.CardNumber, "card-number", "", "16-digit card number")
	cmd.Flags().StringVar(&in.NationalCode, "national-code", "", "10-digit national code")
	cmd.Flags().StringVar(&in.BirthDate, "birth-date", "", "Jalali birth date, yyyyMMdd")
	_ = cmd.MarkFlagRequired("card-number")
	_ = cmd.MarkFlagRequired("national-code")
	_ = cmd.MarkFlagRequired("birth-date")

	return cmd
}

// matchOutput is the JSON schema for `match --json`.
type matchOutput struct {
	Operation  string           `json:"operation"`
	Successful bool             `json:"successful"`
	Matched    bool             `json:"matched"`
	Status     int              `json:"status"`
	Errors     []jibit.APIError `json:"errors"`
}

// runMatch sends one lookup and prints the result. A lookup that does not
// match, or that the provider rejected, returns errNoMatch after printing.
func runMatch(cmd *cobra.Command, op string, send func(context.Context, *jibit.Provider) (*jibit.MatchResponse, error)) error {
	cc := cliContextFrom(cmd.Context())

	s, err := NewSession(cmd.Context(), cc.Cfg, true, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := send(cmd.Context(), s.Provider)
	if err != nil {
		return fmt.Errorf("%s match: %w", op, err)
	}

	out := matchOutput{
		Operation:  op,
		Successful: resp.IsSuccessful(),
		Matched:    resp.IsSuccessful() && resp.Matched(),
		Status:     resp.Code(),
		Errors:     resp.Errors(),
	}

	cc.Logger.Info("match complete",
		"operation", op,
		"status", out.Status,
		"matched", out.Matched,
	)

	if cc.JSON {
		if err := printJSON(cc.Out, out); err != nil {
			return err
		}
	} else {
		printMatchTable(cc, &out)
	}

	if !out.Matched {
		return errNoMatch
	}

	return nil
}

func printMatchTable(cc *CLIContext, out *matchOutput) {
	rows := [][]string{
		{"operation", out.Operation},
		{"matched", yesNo(out.Matched)},
		{"status", strconv.Itoa(out.Status)},
	}

	for _, e := range out.Errors {
		rows = append(rows, []string{"error", fmt.Sprintf("%s: %s", e.Code, e.Message)})
	}

	printTable(cc.Out, []string{"FIELD", "VALUE"}, rows)
}
