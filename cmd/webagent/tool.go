package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/app"
	"github.com/mohammad-safakhou/webagent/tools"
	"github.com/mohammad-safakhou/webagent/tools/content_analyzer"
	"github.com/mohammad-safakhou/webagent/tools/news"
	"github.com/mohammad-safakhou/webagent/tools/web_scraper"
	"github.com/mohammad-safakhou/webagent/tools/web_search"
	"github.com/spf13/cobra"
)

func toolCMD(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Invoke a single research tool and print its JSON result",
	}

	// invoke resolves name in the configured registry and prints the result.
	invoke := func(c *cobra.Command, name string, input any) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		tb, err := app.NewToolbox(cfg)
		if err != nil {
			return err
		}
		reg, err := app.Registry(tb)
		if err != nil {
			return err
		}
		t, ok := reg.Get(name)
		if !ok {
			return fmt.Errorf("unknown tool %q", name)
		}
		args, err := json.Marshal(input)
		if err != nil {
			return err
		}
		res := tools.Guard(name, func() tools.Result { return t.Invoke(c.Context(), args) })
		fmt.Fprintln(c.OutOrStdout(), res.String())
		if res.Err() != nil {
			return fmt.Errorf("%s failed", name)
		}
		return nil
	}

	var numResults int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return invoke(c, web_search.Name, web_search.Input{Query: strings.Join(args, " "), NumResults: numResults})
		},
	}
	search.Flags().IntVarP(&numResults, "num", "n", web_search.DefaultNumResults, "number of results")

	var extractType string
	scrape := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Extract text, links, tables and metadata from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return invoke(c, web_scraper.Name, web_scraper.Input{URL: args[0], ExtractType: extractType})
		},
	}
	scrape.Flags().StringVarP(&extractType, "type", "t", "text", "text, links, tables, metadata, all or article")

	var analysisType, file string
	analyze := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Summarize, extract key points, entities or sentiment",
		RunE: func(c *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				content = string(raw)
			}
			return invoke(c, content_analyzer.Name, content_analyzer.Input{Content: content, AnalysisType: analysisType})
		},
	}
	analyze.Flags().StringVarP(&analysisType, "type", "t", "all", "summary, key_points, entities, sentiment or all")
	analyze.Flags().StringVarP(&file, "file", "f", "", "read content from file")

	var days, maxResults int
	newsCmd := &cobra.Command{
		Use:   "news <topic>",
		Short: "Find recent news articles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return invoke(c, news.Name, news.Input{Topic: strings.Join(args, " "), Days: &days, MaxResults: &maxResults})
		},
	}
	newsCmd.Flags().IntVarP(&days, "days", "d", news.DefaultDays, "look-back window in days")
	newsCmd.Flags().IntVarP(&maxResults, "max", "m", news.DefaultMaxResults, "maximum articles")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tool definitions",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tb, err := app.NewToolbox(cfg)
			if err != nil {
				return err
			}
			reg, err := app.Registry(tb)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(reg.Definitions(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.AddCommand(search, scrape, analyze, newsCmd, list)
	return cmd
}
