package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/classkit/minion/pkg/classfile"
	"github.com/classkit/minion/pkg/config"
)

type validateResult struct {
	Files   []checkResult `json:"files"`
	Overall string        `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "error"
	Message string `json:"message,omitempty"`
}

func runValidate(flags globalFlags, cfg *config.Config, args []string) {
	paths := args
	if len(paths) == 0 && cfg.Classfile.Dir != "" {
		paths = []string{cfg.Classfile.Dir}
	}
	if len(paths) == 0 {
		fatal(fmt.Errorf("no class files given; pass paths or set classfile.dir in config"))
	}

	result := validatePaths(paths)

	if flags.JSON {
		printJSON(result)
		if result.Overall == "error" {
			os.Exit(1)
		}
		return
	}

	printValidateResult(result)
	if result.Overall == "error" {
		os.Exit(1)
	}
}

// validatePaths checks each class file for structural problems:
// malformed YAML, missing fields, unknown predicates. Directories are
// expanded to their .yaml and .yml entries.
func validatePaths(paths []string) validateResult {
	result := validateResult{Files: []checkResult{}, Overall: "ok"}

	for _, path := range paths {
		for _, file := range expandPath(path) {
			result.Files = append(result.Files, checkFile(file))
		}
	}

	for _, file := range result.Files {
		if file.Status == "error" {
			result.Overall = "error"
			break
		}
	}
	return result
}

func expandPath(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return []string{path}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return []string{path}
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	if len(files) == 0 {
		return []string{path}
	}
	return files
}

func checkFile(path string) checkResult {
	specs, err := classfile.Load(path)
	if err != nil {
		return checkResult{Name: path, Status: "error", Message: err.Error()}
	}
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return checkResult{
		Name:    path,
		Status:  "ok",
		Message: fmt.Sprintf("%d class(es): %v", len(specs), names),
	}
}

func printValidateResult(result validateResult) {
	statusIcon := map[string]string{
		"ok":    "✓",
		"error": "✗",
	}

	fmt.Println("Minion Class File Validation")
	fmt.Println("============================")
	fmt.Println()

	for _, file := range result.Files {
		printCheck(statusIcon, file)
	}

	fmt.Println()
	switch result.Overall {
	case "ok":
		fmt.Println("✓ All checks passed")
	case "error":
		fmt.Println("✗ Validation failed")
	}
}

func printCheck(icons map[string]string, r checkResult) {
	icon := icons[r.Status]
	if r.Message != "" {
		fmt.Printf("%s %s: %s\n", icon, r.Name, r.Message)
	} else {
		fmt.Printf("%s %s\n", icon, r.Name)
	}
}
