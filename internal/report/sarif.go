package report

import (
	"encoding/json"
	"io"

	"github.com/leakguard-dev/leakguard/pkg/audit"
)

// SARIF 2.1.0 envelope, minimal subset: one run, one result per risk item.
// CI systems (GitHub code scanning and friends) ingest this directly.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifText         `json:"shortDescription"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifResult struct {
	RuleID     string             `json:"ruleId"`
	Level      string             `json:"level"`
	Message    sarifText          `json:"message"`
	Properties map[string]float64 `json:"properties,omitempty"`
}

type sarifText struct {
	Text string `json:"text"`
}

// sarifLevel maps risk severity onto SARIF levels.
func sarifLevel(s audit.Severity) string {
	switch s {
	case audit.SeverityHigh:
		return "error"
	case audit.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF renders the risk sequence as a SARIF 2.1.0 document.
func WriteSARIF(w io.Writer, res Result, version string) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{Name: "leakguard", Version: version}},
	}
	seen := make(map[string]bool)
	for _, r := range res.Risks {
		id := string(r.Category)
		if !seen[id] {
			seen[id] = true
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
				ID:               id,
				ShortDescription: sarifText{Text: r.Name},
			})
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:     id,
			Level:      sarifLevel(r.Severity),
			Message:    sarifText{Text: r.Message},
			Properties: map[string]float64{"leak_score": r.LeakScore},
		})
	}
	doc := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
