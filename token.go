package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage the cached access token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current access token, generating one if none is cached",
		Args:  cobra.NoArgs,
		RunE:  runTokenShow,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Force a new access token",
		Args:  cobra.NoArgs,
		RunE:  runTokenRefresh,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove cached tokens",
		Args:  cobra.NoArgs,
		RunE:  runTokenClear,
	})

	return cmd
}

// tokenOutput is the JSON schema for `token show --json`. Tokens are
// always masked.
type tokenOutput struct {
	Backend      string     `json:"backend"`
	AccessToken  string     `json:"access_token"`
	RefreshToken bool       `json:"refresh_token_cached"`
	Subject      string     `json:"subject,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func runTokenShow(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())

	s, err := NewSession(cmd.Context(), cc.Cfg, true, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	tok, err := s.Provider.TokenSource(cmd.Context()).Token()
	if err != nil {
		return fmt.Errorf("acquiring token: %w", err)
	}

	return printToken(cc, tok)
}

func runTokenRefresh(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())

	s, err := NewSession(cmd.Context(), cc.Cfg, true, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	cred, err := s.Provider.Tokens().Acquire(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}

	cc.Statusf("Token refreshed.\n")

	return printToken(cc, &oauth2.Token{AccessToken: cred.AccessToken, RefreshToken: cred.RefreshToken})
}

func runTokenClear(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())

	s, err := NewSession(cmd.Context(), cc.Cfg, false, cc.Logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Provider.Tokens().Clear(cmd.Context()); err != nil {
		return err
	}

	cc.Statusf("Cached tokens removed from the %s cache.\n", cc.Cfg.CacheBackend)

	return nil
}

func printToken(cc *CLIContext, tok *oauth2.Token) error {
	out := tokenOutput{
		Backend:      cc.Cfg.CacheBackend,
		AccessToken:  maskToken(tok.AccessToken),
		RefreshToken: tok.RefreshToken != "",
	}

	if claims, ok := jwtClaims(tok.AccessToken); ok {
		out.Subject = claims.Subject

		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			out.ExpiresAt = &exp
		}
	} else {
		cc.Logger.Debug("access token is not a JWT, no expiry to show")
	}

	if cc.JSON {
		return printJSON(cc.Out, out)
	}

	rows := [][]string{
		{"backend", out.Backend},
		{"access token", out.AccessToken},
		{"refresh token", yesNo(out.RefreshToken)},
	}

	if out.Subject != "" {
		rows = append(rows, []string{"subject", out.Subject})
	}

	if out.ExpiresAt != nil {
		rows = append(rows, []string{"expires", formatExpiry(*out.ExpiresAt, time.Now())})
	}

	printTable(cc.Out, []string{"FIELD", "VALUE"}, rows)

	return nil
}

// jwtClaims reads the registered claims of a JWT without verifying its
// signature. The provider's signing key is not available to clients; the
// claims are for display only.
func jwtClaims(raw string) (*jwt.RegisteredClaims, bool) {
	claims := &jwt.RegisteredClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, false
	}

	return claims, true
}
