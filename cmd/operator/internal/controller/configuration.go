// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// OperatorConfig is the YAML-backed configuration surface: everything
// the batch controller needs that isn't discovered from the cluster at
// runtime.
type OperatorConfig struct {
	Namespace               string            `yaml:"namespace"`
	Selector                map[string]string `yaml:"selector"`
	UseFinalizer            bool              `yaml:"useFinalizer"`
	SkipClusterConfigReview bool              `yaml:"skipClusterConfigReview"`
	EnableAdditionalMetrics bool              `yaml:"enableAdditionalMetrics"`
	CruiseControlEnabled    bool              `yaml:"cruiseControlEnabled"`
	AlterableTopicConfig    string            `yaml:"alterableTopicConfig"`
	KafkaBootstrapServers   string            `yaml:"kafkaBootstrapServers"`
	RebalancerURL           string            `yaml:"rebalancerUrl"`
}

func defaultConfig() OperatorConfig {
	return OperatorConfig{
		Namespace:            os.Getenv("TOPIC_OPERATOR_NAMESPACE"),
		UseFinalizer:         true,
		AlterableTopicConfig: "ALL",
	}
}

// LoadConfiguration reads the operator's YAML config file, falling back
// to environment-derived defaults when the file is absent or empty.
func LoadConfiguration(path string) (OperatorConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("operator config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) == 0 {
		slog.Info("empty operator config file, using defaults", "path", path)
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal operator configuration: %w", err)
	}
	if cfg.AlterableTopicConfig == "" {
		cfg.AlterableTopicConfig = "ALL"
	}

	slog.Info("loaded operator configuration",
		"namespace", cfg.Namespace, "useFinalizer", cfg.UseFinalizer, "cruiseControlEnabled", cfg.CruiseControlEnabled)
	return cfg, nil
}
