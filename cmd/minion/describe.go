package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/classkit/minion/pkg/classfile"
	"github.com/classkit/minion/pkg/minion"
)

type classSummary struct {
	Name           string         `json:"name"`
	Implementation string         `json:"implementation,omitempty"`
	Roles          []string       `json:"roles,omitempty"`
	Interface      []string       `json:"interface"`
	Params         []paramSummary `json:"params,omitempty"`
}

type paramSummary struct {
	Name      string   `json:"name"`
	Asserts   []string `json:"asserts,omitempty"`
	Attribute string   `json:"attribute,omitempty"`
	Reader    string   `json:"reader,omitempty"`
}

func runDescribe(flags globalFlags, args []string) {
	cmd := flag.NewFlagSet("describe", flag.ContinueOnError)
	classFilter := cmd.String("class", "", "Only describe this class")
	if err := cmd.Parse(args); err != nil {
		fatal(err)
	}
	if cmd.NArg() < 1 {
		fatal(errors.New("usage: minion describe <file|dir> [--class <name>]"))
	}

	specs, err := loadSpecs(cmd.Arg(0))
	if err != nil {
		fatal(err)
	}

	summaries := summarizeSpecs(specs, *classFilter)
	if len(summaries) == 0 {
		fatal(fmt.Errorf("no class %q in %s", *classFilter, cmd.Arg(0)))
	}

	if flags.JSON {
		printJSON(summaries)
		return
	}

	for _, summary := range summaries {
		printClassSummary(summary)
	}
}

func loadSpecs(path string) ([]*minion.Spec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return classfile.LoadDir(path)
	}
	return classfile.Load(path)
}

func summarizeSpecs(specs []*minion.Spec, classFilter string) []classSummary {
	summaries := make([]classSummary, 0, len(specs))
	for _, spec := range specs {
		if classFilter != "" && spec.Name != classFilter {
			continue
		}
		summary := classSummary{
			Name:           spec.Name,
			Implementation: spec.ImplName,
			Roles:          spec.RoleNames,
			Interface:      spec.Interface,
		}
		for _, paramName := range spec.ConstructWith.Names() {
			p, ok := spec.ConstructWith.Get(paramName)
			if !ok {
				continue
			}
			summary.Params = append(summary.Params, paramSummary{
				Name:      paramName,
				Asserts:   p.Assert.Descriptions(),
				Attribute: p.Attribute,
				Reader:    p.Reader,
			})
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func printClassSummary(summary classSummary) {
	fmt.Printf("class %s\n", summary.Name)
	if summary.Implementation != "" {
		fmt.Printf("  implementation: %s\n", summary.Implementation)
	}
	if len(summary.Roles) > 0 {
		fmt.Printf("  roles: %v\n", summary.Roles)
	}
	fmt.Printf("  interface: %v\n", summary.Interface)

	if len(summary.Params) > 0 {
		fmt.Println("  construct_with:")
		writer := newTabWriter()
		writeRow(writer, "    PARAM", "ASSERTS", "ATTRIBUTE", "READER")
		for _, p := range summary.Params {
			writeRow(writer, "    "+p.Name, fmt.Sprintf("%v", p.Asserts), p.Attribute, p.Reader)
		}
		_ = writer.Flush()
	}
	fmt.Println()
}
