package core

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sdd-tools/specflow/pkg/models"
)

// ConfigLoader reads engine configuration from a .specflow.yaml file.
type ConfigLoader interface {
	Load() (*models.EngineConfig, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	// basePath is the directory where .specflow.yaml resides.
	basePath string
}

// NewConfigLoader creates a ConfigLoader that reads configuration relative
// to basePath.
func NewConfigLoader(basePath string) ConfigLoader {
	return &viperConfigLoader{basePath: basePath}
}

// DefaultEngineConfig returns an EngineConfig populated with sensible defaults.
func DefaultEngineConfig() *models.EngineConfig {
	return &models.EngineConfig{
		StrictSequencing:      true,
		BranchPattern:         DefaultBranchPattern,
		RequiredApprovalLevel: models.ApprovalPeer,
		KeepBranches:          false,
		MergePolicy:           models.MergePolicyWarn,
		GitTimeout:            30 * time.Second,
		DefaultActor:          "",
	}
}

// Load reads the .specflow.yaml file from the base path. If the file does
// not exist, defaults are returned.
func (l *viperConfigLoader) Load() (*models.EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetConfigName(".specflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.basePath)

	v.SetDefault("sequencing.strict", cfg.StrictSequencing)
	v.SetDefault("branch.pattern", cfg.BranchPattern)
	v.SetDefault("branch.keep_after_merge", cfg.KeepBranches)
	v.SetDefault("branch.merge_policy", string(cfg.MergePolicy))
	v.SetDefault("approval.required_level", string(cfg.RequiredApprovalLevel))
	v.SetDefault("git.timeout", cfg.GitTimeout.String())
	v.SetDefault("defaults.actor", cfg.DefaultActor)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .specflow.yaml: %w", err)
	}

	cfg.StrictSequencing = v.GetBool("sequencing.strict")
	cfg.BranchPattern = v.GetString("branch.pattern")
	cfg.KeepBranches = v.GetBool("branch.keep_after_merge")
	cfg.DefaultActor = v.GetString("defaults.actor")

	policy := models.MergePolicy(v.GetString("branch.merge_policy"))
	switch policy {
	case models.MergePolicyWarn, models.MergePolicyBlock:
		cfg.MergePolicy = policy
	default:
		return nil, fmt.Errorf("invalid branch.merge_policy %q: must be warn or block", policy)
	}

	level := models.ApprovalLevel(v.GetString("approval.required_level"))
	if !level.Valid() {
		return nil, fmt.Errorf("invalid approval.required_level %q", level)
	}
	cfg.RequiredApprovalLevel = level

	timeout, err := time.ParseDuration(v.GetString("git.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid git.timeout: %w", err)
	}
	cfg.GitTimeout = timeout

	return cfg, nil
}
