package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"ratewatch-backend/lib/render"
	"ratewatch-backend/lib/webpage"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	pageBrowser *bool
	pageHeading *string
	pageNumbers *bool
	pageLinks   *bool
	pageWait    *string
	pageJSON    *bool
	pageTimeout *time.Duration
	pageBypass  *bool
)

func init() {
	pageBrowser = pageCmd.Flags().Bool("browser", false, "Render the page in headless chromium before extracting.")
	pageHeading = pageCmd.Flags().String("heading", "", "Only extract the section under the closest matching heading.")
	pageNumbers = pageCmd.Flags().Bool("numbers", true, "Extract numeric tokens.")
	pageLinks = pageCmd.Flags().Bool("links", false, "Extract links.")
	pageWait = pageCmd.Flags().String("wait", "", "With --browser, a css selector to wait for before reading the page.")
	pageJSON = pageCmd.Flags().Bool("json", false, "Print the extraction as json.")
	pageTimeout = pageCmd.Flags().Duration("timeout", 30*time.Second, "Timeout of the page fetch.")
	pageBypass = pageCmd.Flags().Bool("cloudflare", false, "Use a transport that gets past cloudflare's browser check.")
	rootCmd.AddCommand(pageCmd)
}

var pageCmd = &cobra.Command{
	Use:   "page <url> [--browser] [--heading <text>] [--numbers] [--links] [--wait <selector>]",
	Short: "Extracts the title, paragraphs and numbers of a web page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, closeFetcher := newPageFetcher()
		defer closeFetcher()

		ctx, cancel := context.WithTimeout(cmd.Context(), *pageTimeout)
		defer cancel()
		doc, err := fetcher.Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		page, err := webpage.Extract(ctx, doc, webpage.ExtractOptions{
			Heading: *pageHeading,
			Numbers: *pageNumbers,
			Links:   *pageLinks,
		})
		if err != nil {
			return err
		}

		if *pageJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		}
		printPage(cmd.OutOrStdout(), page)
		return nil
	},
}

func newPageFetcher() (webpage.Fetcher, func()) {
	if *pageBrowser {
		browser := webpage.NewBrowserFetcher(webpage.BrowserOptions{
			Headless:     true,
			Timeout:      *pageTimeout,
			WaitSelector: *pageWait,
		}, nil)
		return browser, func() { browser.Close() }
	}
	return webpage.NewHTTPFetcher(webpage.HTTPOptions{
		Timeout:          *pageTimeout,
		CloudflareBypass: *pageBypass,
		Dump:             dumpOutput("pages"),
	}), func() {}
}

func printPage(w io.Writer, page webpage.Page) {
	title := page.Title
	if title == "" {
		title = "(no title)"
	}
	fmt.Fprintf(w, "%s\n%s\n\n", title, page.URL)

	if page.Section != nil {
		fmt.Fprintf(w, "## %s\n\n", page.Section.Heading)
		for _, block := range page.Section.Blocks {
			fmt.Fprintf(w, "%s\n\n", block)
		}
	} else {
		for _, p := range page.Paragraphs {
			fmt.Fprintf(w, "%s\n\n", p)
		}
	}

	if len(page.Numbers) > 0 {
		t := render.NewTable(w)
		t.SetTitle("Numbers")
		t.AppendHeader(table.Row{"Token", "Value", "Percent", "Path"})
		for _, tok := range page.Numbers {
			t.AppendRow(table.Row{tok.Text, tok.Value.String(), tok.Percent, tok.Path})
		}
		t.Render()
	}
	if len(page.Links) > 0 {
		t := render.NewTable(w)
		t.SetTitle("Links")
		t.AppendHeader(table.Row{"Name", "Href"})
		for _, link := range page.Links {
			t.AppendRow(table.Row{link.Name, link.Href})
		}
		t.Render()
	}
}
