// Package research assembles the fixed research crew: three roles and the
// five-task sequential pipeline that turns a query into a report.
package research

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/webagent/internal/executor"
	"github.com/mohammad-safakhou/webagent/tools"
)

// Task identifiers, in execution order.
const (
	TaskWebSearch       = "web_search"
	TaskWebScraping     = "web_scraping"
	TaskNewsAggregation = "news_aggregation"
	TaskContentAnalysis = "content_analysis"
	TaskReportCreation  = "report_creation"
)

// Look-back window bounds for the news task, in days.
const (
	DefaultDays = 7
	MinDays     = 1
	MaxDays     = 30
)

var (
	ErrEmptyQuery  = errors.New("research query is empty")
	ErrInvalidDays = fmt.Errorf("days must be between %d and %d", MinDays, MaxDays)
)

// Request is one research question.
type Request struct {
	Query string
	// Days is the news look-back window; zero means DefaultDays.
	Days int
}

// Normalize trims the query and applies the default window.
func (r Request) Normalize() (Request, error) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return r, ErrEmptyQuery
	}
	if r.Days == 0 {
		r.Days = DefaultDays
	}
	if r.Days < MinDays || r.Days > MaxDays {
		return r, fmt.Errorf("%w: got %d", ErrInvalidDays, r.Days)
	}
	return r, nil
}

// Toolbox holds the tool instances the roles are bound to.
type Toolbox struct {
	Search   tools.Tool
	Scraper  tools.Tool
	News     tools.Tool
	Analyzer tools.Tool
}

// Crew is the role set shared by every pipeline built from one Toolbox.
type Crew struct {
	Researcher *executor.Role
	Analyst    *executor.Role
	Writer     *executor.Role
}

func NewCrew(tb Toolbox) (*Crew, error) {
	researcher, err := executor.NewRole(executor.WebResearcher,
		"Search the web for relevant information about the given topic",
		"You are an expert web researcher with years of experience in finding accurate and relevant information online.",
		tb.Search, tb.Scraper, tb.News)
	if err != nil {
		return nil, err
	}
	analyst, err := executor.NewRole(executor.ContentAnalyzer,
		"Analyze and extract key information from web content",
		"You are a skilled content analyst who can identify the most important information from various sources.",
		tb.Analyzer)
	if err != nil {
		return nil, err
	}
	writer, err := executor.NewRole(executor.ReportWriter,
		"Compile research findings into a comprehensive report",
		"You are a professional report writer who can synthesize information from multiple sources into a clear, well-structured report.")
	if err != nil {
		return nil, err
	}
	return &Crew{Researcher: researcher, Analyst: analyst, Writer: writer}, nil
}

// Pipeline builds the sequential task list for req. Declaration order is the
// execution order.
func (c *Crew) Pipeline(req Request) (*executor.Pipeline, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	q := req.Query
	return executor.NewPipeline(executor.Sequential,
		executor.Task{
			ID:             TaskWebSearch,
			Description:    "Search the web for information about: " + q,
			ExpectedOutput: "A list of relevant web pages and their content related to the query.",
			Role:           c.Researcher,
		},
		executor.Task{
			ID:             TaskWebScraping,
			Description:    "Extract detailed information from the web pages found about: " + q,
			ExpectedOutput: "Detailed information extracted from the web pages.",
			Role:           c.Researcher,
			DependsOn:      []string{TaskWebSearch},
		},
		executor.Task{
			ID:             TaskNewsAggregation,
			Description:    fmt.Sprintf("Find recent news articles (within the last %d days) about: %s", req.Days, q),
			ExpectedOutput: "A summary of recent news articles related to the query.",
			Role:           c.Researcher,
		},
		executor.Task{
			ID:             TaskContentAnalysis,
			Description:    "Analyze the content gathered about: " + q,
			ExpectedOutput: "Key insights and information extracted from the content.",
			Role:           c.Analyst,
			DependsOn:      []string{TaskWebScraping, TaskNewsAggregation},
		},
		executor.Task{
			ID:             TaskReportCreation,
			Description:    "Create a comprehensive research report about: " + q,
			ExpectedOutput: "A well-structured research report that answers the query.",
			Role:           c.Writer,
			DependsOn:      []string{TaskContentAnalysis},
		},
	)
}
