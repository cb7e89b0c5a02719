package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/routing"
	"github.com/hrygo/triage/internal/version"
)

var (
	routeCmd = &cobra.Command{
		Use:   "route [transcript]",
		Short: "Route one transcript locally with an in-memory cache and print the decision",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := newLocalRouter()
			if err != nil {
				return err
			}
			return printJSON(cmd, router.Route(context.Background(), strings.Join(args, " ")))
		},
	}

	classifyCmd = &cobra.Command{
		Use:   "classify [transcript]",
		Short: "Classify one transcript and print the intent and confidence",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(viper.GetString("routing-config"))
			if err != nil {
				return err
			}
			return printJSON(cmd, routing.NewClassifier(table).Classify(strings.Join(args, " ")))
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.StringFull())
		},
	}
)

func newLocalRouter() (*routing.Router, error) {
	table, err := loadTable(viper.GetString("routing-config"))
	if err != nil {
		return nil, err
	}
	rc := routing.NewResponseCache(cache.NewMemoryStore(0), table)
	return routing.NewRouter(table, rc), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
