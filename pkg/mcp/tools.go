package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/jsxusage/pkg/formatter"
)

func formatterParam() mcp.ToolOption {
	return mcp.WithString("formatter",
		mcp.Description("Summary to return. Defaults to "+formatter.Default+"."),
		mcp.Enum(formatter.Names()...),
	)
}

func scanProjectTool() mcp.Tool {
	return mcp.NewTool("scan_project",
		mcp.WithDescription("Scan every JSX/TSX file the tsconfig lists and summarize component usage. "+
			"The result becomes the report queried by component_usage."),
		formatterParam(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func crawlEntryTool() mcp.Tool {
	return mcp.NewTool("crawl_entry",
		mcp.WithDescription("Start at one file and follow its local imports, summarizing component usage "+
			"of every file reached."),
		mcp.WithString("entry",
			mcp.Required(),
			mcp.Description("Entry file, relative to the tsconfig directory"),
		),
		formatterParam(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func componentUsageTool() mcp.Tool {
	return mcp.NewTool("component_usage",
		mcp.WithDescription("List the usage sites of one component key (\"<origin>/<name>\") from the latest scan or crawl."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Report key, for example \"@mui/material/Button\" or \"src/Card.tsx/default\""),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum instances to return (default 50)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listFormattersTool() mcp.Tool {
	return mcp.NewTool("list_formatters",
		mcp.WithDescription("List the summaries scan_project and crawl_entry can return."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
