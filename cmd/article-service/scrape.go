package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape a DMM Eikaiwa Daily News article and print the candidate as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb := newRedis(cmd.Context())
		if rdb != nil {
			defer rdb.Close()
		}

		scraped, err := newScrapeService(rdb).Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(scraped)
	},
}
