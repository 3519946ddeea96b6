package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/kegdev/hearth/internal/inventory"
	"github.com/kegdev/hearth/internal/model"
	"github.com/kegdev/hearth/internal/offline"
)

func (a *app) printJSON(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printResult prints v as JSON with --json, otherwise the formatted line.
func (a *app) printResult(v any, format string, args ...any) error {
	if a.json {
		return a.printJSON(v)
	}
	fmt.Fprintf(a.out, format, args...)
	return nil
}

func (a *app) printSource(source inventory.Source) {
	if note := sourceNote(source); note != "" {
		fmt.Fprintf(a.out, "(%s)\n", note)
	}
}

func (a *app) printContainers(containers []model.ContainerWithSharing) {
	if len(containers) == 0 {
		fmt.Fprintln(a.out, "no containers")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSHARED")
	for _, c := range containers {
		shared := ""
		if c.IsShared {
			shared = fmt.Sprintf("%s by %s", c.SharePermission, c.SharedByName)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Location, shared)
	}
	_ = tw.Flush()
}

func (a *app) printItems(items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no items")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTAGS\tBRAND\tIMAGE")
	for _, item := range items {
		image := ""
		switch item.ImageURL {
		case "":
		case offline.ImageSentinel:
			image = "not cached"
		default:
			image = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, joinTags(item.Tags), item.Brand, image)
	}
	_ = tw.Flush()
}

func (a *app) printTags(tags []model.Tag) {
	if len(tags) == 0 {
		fmt.Fprintln(a.out, "no tags")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
	for _, tag := range tags {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tag.ID, tag.Name, tag.Color)
	}
	_ = tw.Flush()
}

func (a *app) printCategoryTree(nodes []model.CategoryNode) {
	if len(nodes) == 0 {
		fmt.Fprintln(a.out, "no categories")
		return
	}
	var walk func(nodes []model.CategoryNode, depth int)
	walk = func(nodes []model.CategoryNode, depth int) {
		for _, n := range nodes {
			fmt.Fprintf(a.out, "%s%s  (%s)\n", strings.Repeat("  ", depth), n.Name, n.ID)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}

func (a *app) printSearch(results inventory.SearchResults) {
	if len(results.Containers) == 0 && len(results.Items) == 0 {
		fmt.Fprintln(a.out, "no matches")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tCONTAINER")
	for _, c := range results.Containers {
		fmt.Fprintf(tw, "container\t%s\t%s\t\n", c.ID, c.Name)
	}
	for _, m := range results.Items {
		fmt.Fprintf(tw, "item\t%s\t%s\t%s\n", m.Item.ID, m.Item.Name, m.Container.Name)
	}
	_ = tw.Flush()
}

func (a *app) printEntries(entries []offline.EntryInfo) {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "cache is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tRESOURCE\tOWNER\tAGE\tCOUNT\tBYTES\tTIER")
	for _, e := range entries {
		tier := e.Tier
		if e.Corrupt {
			tier = "corrupt"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			e.Key, e.Resource, e.Owner, e.Age.Truncate(time.Second), e.Count, e.Bytes, tier)
	}
	_ = tw.Flush()
}
