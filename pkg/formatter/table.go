package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/jsxusage/pkg/report"
)

// topN bounds the entries listed in one table cell.
const topN = 5

// Table is a per-key summary rendered by the table format.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes the table borderless, left aligned.
func (t Table) Render(w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)

	table.Header(t.Headers)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}
	return table.Render()
}

func rawTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Instances", "Origin", "Files"}}
	for _, key := range rankedKeys(r) {
		instances := r.Instances(key)
		files := make(map[string]bool)
		for _, inst := range instances {
			files[inst.Location.File] = true
		}
		t.Rows = append(t.Rows, []string{
			key,
			strconv.Itoa(len(instances)),
			string(instances[0].Origin.Kind),
			strconv.Itoa(len(files)),
		})
	}
	return t
}

func countTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Count"}}
	out := count(r).(*orderedmap.OrderedMap[string, int])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(pair.Value)})
	}
	return t
}

func countPropsTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Count", "Props"}}
	out := countProps(r).(*orderedmap.OrderedMap[string, PropCount])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(pair.Value.Count), topCounts(pair.Value.Props)})
	}
	return t
}

func aliasesTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Aliases"}}
	out := aliases(r).(*orderedmap.OrderedMap[string, []string])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		t.Rows = append(t.Rows, []string{pair.Key, strings.Join(pair.Value, ", ")})
	}
	return t
}

func propValuesTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Count", "Prop", "Values"}}
	out := propValues(r).(*orderedmap.OrderedMap[string, PropValueCount])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Props.Len() == 0 {
			t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(pair.Value.Count), "", ""})
			continue
		}
		for prop := pair.Value.Props.Oldest(); prop != nil; prop = prop.Next() {
			t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(pair.Value.Count), prop.Key, topCounts(prop.Value)})
		}
	}
	return t
}

func propCombinationsTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Count", "Combinations", "Most used"}}
	out := propCombinations(r).(*orderedmap.OrderedMap[string, PropCombinations])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		v := pair.Value
		t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(v.Count), strconv.Itoa(v.CombinationCount), firstCount(v.PropCombinations)})
	}
	return t
}

func propValueCombinationsTable(r *report.Report) Table {
	t := Table{Headers: []string{"Key", "Count", "Combinations", "Most used"}}
	out := propValueCombinations(r).(*orderedmap.OrderedMap[string, PropValueCombinations])
	for pair := out.Oldest(); pair != nil; pair = pair.Next() {
		v := pair.Value
		t.Rows = append(t.Rows, []string{pair.Key, strconv.Itoa(v.Count), strconv.Itoa(v.CombinationCount), firstCount(v.PropValueCombinations)})
	}
	return t
}

// topCounts renders the first topN entries as "name (n)".
func topCounts(c *Counts) string {
	parts := make([]string, 0, topN)
	for pair := c.Oldest(); pair != nil && len(parts) < topN; pair = pair.Next() {
		parts = append(parts, fmt.Sprintf("%s (%d)", pair.Key, pair.Value))
	}
	if c.Len() > topN {
		parts = append(parts, fmt.Sprintf("+%d more", c.Len()-topN))
	}
	return strings.Join(parts, ", ")
}

func firstCount(c *Counts) string {
	pair := c.Oldest()
	if pair == nil {
		return ""
	}
	if pair.Key == "" {
		return fmt.Sprintf("(none) (%d)", pair.Value)
	}
	return fmt.Sprintf("{%s} (%d)", pair.Key, pair.Value)
}
