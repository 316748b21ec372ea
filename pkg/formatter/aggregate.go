package formatter

import (
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/jsxusage/pkg/report"
)

// Pseudo-props counted alongside real ones.
const (
	SpreadProp   = "..."
	ChildrenProp = "children"
)

// Counts is a name to count object ordered by count, then name.
type Counts = orderedmap.OrderedMap[string, int]

// RawOutput has the report's JSON shape with keys in count order.
type RawOutput struct {
	Usage *orderedmap.OrderedMap[string, report.Usage] `json:"usage"`
}

// PropCount is one key of the count-props output.
type PropCount struct {
	Count int     `json:"count"`
	Props *Counts `json:"props"`
}

// PropValueCount is one key of the prop-values output. Props are ordered by
// total usage and each prop's values by count.
type PropValueCount struct {
	Count int                                     `json:"count"`
	Props *orderedmap.OrderedMap[string, *Counts] `json:"props"`
}

// PropCombinations is one key of the prop-combinations output.
type PropCombinations struct {
	Count            int     `json:"count"`
	CombinationCount int     `json:"combinationCount"`
	PropCombinations *Counts `json:"propCombinations"`
}

// PropValueCombinations is one key of the prop-value-combinations output.
type PropValueCombinations struct {
	Count                 int     `json:"count"`
	CombinationCount      int     `json:"combinationCount"`
	PropValueCombinations *Counts `json:"propValueCombinations"`
}

func raw(r *report.Report) any {
	out := orderedmap.New[string, report.Usage]()
	for _, key := range rankedKeys(r) {
		out.Set(key, report.Usage{Instances: r.Instances(key)})
	}
	return RawOutput{Usage: out}
}

func count(r *report.Report) any {
	out := orderedmap.New[string, int]()
	for _, key := range rankedKeys(r) {
		out.Set(key, len(r.Instances(key)))
	}
	return out
}

func countProps(r *report.Report) any {
	out := orderedmap.New[string, PropCount]()
	for _, key := range rankedKeys(r) {
		instances := r.Instances(key)
		props := make(map[string]int)
		for _, inst := range instances {
			for _, name := range propNames(inst) {
				props[name]++
			}
		}
		out.Set(key, PropCount{Count: len(instances), Props: sortCounts(props)})
	}
	return out
}

func aliases(r *report.Report) any {
	out := orderedmap.New[string, []string]()
	for _, key := range rankedKeys(r) {
		seen := make(map[string]bool)
		list := []string{}
		for _, inst := range r.Instances(key) {
			if inst.Alias == "" || seen[inst.Alias] {
				continue
			}
			seen[inst.Alias] = true
			list = append(list, inst.Alias)
		}
		out.Set(key, list)
	}
	return out
}

func propValues(r *report.Report) any {
	out := orderedmap.New[string, PropValueCount]()
	for _, key := range rankedKeys(r) {
		instances := r.Instances(key)
		values := make(map[string]map[string]int)
		add := func(prop, value string) {
			if values[prop] == nil {
				values[prop] = make(map[string]int)
			}
			values[prop][value]++
		}

		for _, inst := range instances {
			for _, p := range inst.Props {
				add(p.Name, p.Value.String())
			}
			if inst.Spread {
				add(SpreadProp, SpreadProp)
			}
			if inst.HasChildren {
				add(ChildrenProp, ChildrenProp)
			}
		}

		totals := make(map[string]int, len(values))
		for prop, hist := range values {
			for _, n := range hist {
				totals[prop] += n
			}
		}

		props := orderedmap.New[string, *Counts]()
		for pair := sortCounts(totals).Oldest(); pair != nil; pair = pair.Next() {
			props.Set(pair.Key, sortCounts(values[pair.Key]))
		}
		out.Set(key, PropValueCount{Count: len(instances), Props: props})
	}
	return out
}

func propCombinations(r *report.Report) any {
	out := orderedmap.New[string, PropCombinations]()
	for _, key := range rankedKeys(r) {
		instances := r.Instances(key)
		combos := combinationCounts(instances, propNames)
		out.Set(key, PropCombinations{
			Count:            len(instances),
			CombinationCount: len(combos),
			PropCombinations: sortCounts(combos),
		})
	}
	return out
}

func propValueCombinations(r *report.Report) any {
	out := orderedmap.New[string, PropValueCombinations]()
	for _, key := range rankedKeys(r) {
		instances := r.Instances(key)
		combos := combinationCounts(instances, propEntries)
		out.Set(key, PropValueCombinations{
			Count:                 len(instances),
			CombinationCount:      len(combos),
			PropValueCombinations: sortCounts(combos),
		})
	}
	return out
}

// propNames lists an instance's prop names plus the spread and children
// pseudo-props.
func propNames(inst report.ComponentInstance) []string {
	names := make([]string, 0, len(inst.Props)+2)
	for _, p := range inst.Props {
		names = append(names, p.Name)
	}
	return withPseudoProps(names, inst)
}

// propEntries is propNames with "name: value" for real props.
func propEntries(inst report.ComponentInstance) []string {
	entries := make([]string, 0, len(inst.Props)+2)
	for _, p := range inst.Props {
		entries = append(entries, fmt.Sprintf("%s: %s", p.Name, p.Value))
	}
	return withPseudoProps(entries, inst)
}

func withPseudoProps(list []string, inst report.ComponentInstance) []string {
	if inst.Spread {
		list = append(list, SpreadProp)
	}
	if inst.HasChildren {
		list = append(list, ChildrenProp)
	}
	return list
}

// combinationCounts buckets instances by the sorted, de-duplicated set of
// entries each one has, joined with ", ".
func combinationCounts(instances []report.ComponentInstance, entries func(report.ComponentInstance) []string) map[string]int {
	combos := make(map[string]int)
	for _, inst := range instances {
		list := entries(inst)
		sort.Strings(list)
		combos[strings.Join(dedupSorted(list), ", ")]++
	}
	return combos
}

func dedupSorted(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

// sortCounts orders counts by value descending, then key ascending.
func sortCounts(counts map[string]int) *Counts {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	out := orderedmap.New[string, int](len(keys))
	for _, k := range keys {
		out.Set(k, counts[k])
	}
	return out
}
