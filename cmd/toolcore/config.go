package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvyn/toolcore/pkg/hook"
	"github.com/corvyn/toolcore/pkg/permission"
)

// rulesConfig is the on-disk shape of a permission rule file:
//
//	allow:
//	  - "Read(file_path:**/*.go)"
//	ask:
//	  - "Bash(command:*npm*)"
//	deny:
//	  - "Bash(command:rm -rf*)"
type rulesConfig struct {
	Allow []string `yaml:"allow"`
	Ask   []string `yaml:"ask"`
	Deny  []string `yaml:"deny"`
}

func loadRuleSet(path string) (permission.RuleSet, error) {
	if path == "" {
		return permission.RuleSet{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return permission.RuleSet{}, err
	}
	var cfg rulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return permission.RuleSet{}, err
	}

	var rules []permission.Rule
	for _, p := range cfg.Deny {
		rules = append(rules, permission.Rule{Pattern: p, Decision: permission.Deny})
	}
	for _, p := range cfg.Allow {
		rules = append(rules, permission.Rule{Pattern: p, Decision: permission.Allow})
	}
	for _, p := range cfg.Ask {
		rules = append(rules, permission.Rule{Pattern: p, Decision: permission.Ask})
	}
	return permission.RuleSet{Rules: rules}, nil
}

// hooksConfig is the on-disk shape of a hook config file, covering
// hook.Config's fields and hook.Entry's except the matcher's ToolNameRegex
// and CommandRegex, which have no YAML field.
type hooksConfig struct {
	MaxConcurrentHooks int             `yaml:"maxConcurrentHooks"`
	DefaultTimeoutMS   int64           `yaml:"defaultTimeoutMs"`
	Entries            []hookEntryYAML `yaml:"entries"`
}

type hookEntryYAML struct {
	Command         string   `yaml:"command"`
	Events          []string `yaml:"events"`
	ToolNames       []string `yaml:"toolNames"`
	PathGlobs       []string `yaml:"pathGlobs"`
	TimeoutMS       int64    `yaml:"timeoutMs"`
	FailureBehavior string   `yaml:"failureBehavior"`
	TimeoutBehavior string   `yaml:"timeoutBehavior"`
}

func loadHookConfig(path string) (hook.Config, error) {
	if path == "" {
		return hook.Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return hook.Config{}, err
	}
	var cfg hooksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return hook.Config{}, err
	}

	out := hook.Config{
		MaxConcurrentHooks: cfg.MaxConcurrentHooks,
		DefaultTimeout:     time.Duration(cfg.DefaultTimeoutMS) * time.Millisecond,
	}
	for _, e := range cfg.Entries {
		entry := hook.Entry{
			Command:         e.Command,
			Matcher:         hook.Matcher{ToolNames: e.ToolNames, PathGlobs: e.PathGlobs},
			Timeout:         time.Duration(e.TimeoutMS) * time.Millisecond,
			FailureBehavior: hook.FailureBehavior(e.FailureBehavior),
			TimeoutBehavior: hook.TimeoutBehavior(e.TimeoutBehavior),
		}
		for _, ev := range e.Events {
			entry.Events = append(entry.Events, hook.Event(ev))
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}
