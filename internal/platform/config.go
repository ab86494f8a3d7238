/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package platform holds the operator-owned tables that the translator consumes:
// the version to image table, default compute resources, and the fixed backup and
// monitoring targets. Developers never set these; operators change them through a
// config file and every PostgresDatabase picks them up on its next reconcile.
package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"
)

const registry = "registry.developers.crunchydata.com/crunchydata/"

// Config is the full set of platform tables.
type Config struct {
	// Images maps a PostgreSQL major version to its container image.
	// The keys are the supported versions.
	Images map[int32]string `yaml:"images"`

	// MaxReplicas is the upper bound for spec.replicas.
	MaxReplicas int32 `yaml:"maxReplicas"`

	// StorageClassName is set on the data volume claim when non-empty.
	StorageClassName string `yaml:"storageClassName,omitempty"`

	// DefaultResources apply to every instance unless overridden per leaf.
	DefaultResources Resources `yaml:"defaultResources"`

	// PgBouncerImage is the connection pooler image used when replicas > 1.
	PgBouncerImage string `yaml:"pgBouncerImage"`

	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// FailureGracePeriod is how long a failing condition on the target
	// must persist before the database is reported as Failed.
	FailureGracePeriod time.Duration `yaml:"failureGracePeriod"`
}

// Resources is a request/limit pair of CPU and memory quantities.
type Resources struct {
	Requests ResourcePair `yaml:"requests"`
	Limits   ResourcePair `yaml:"limits"`
}

// ResourcePair holds CPU and memory quantity strings. An empty string leaves
// that resource unset.
type ResourcePair struct {
	CPU    string `yaml:"cpu"`
	Memory string `yaml:"memory"`
}

// BackupConfig is the fixed pgBackRest target for every database.
type BackupConfig struct {
	Image    string `yaml:"image"`
	RepoName string `yaml:"repoName"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`

	// CredentialsSecret holds the pgBackRest s3 key configuration.
	CredentialsSecret string `yaml:"credentialsSecret"`

	// RetentionFull is the number of full backups (or days, see RetentionFullType) kept.
	RetentionFull int `yaml:"retentionFull"`

	// RetentionFullType is "count" or "time".
	RetentionFullType string `yaml:"retentionFullType"`

	// FullSchedule is a standard 5-field cron expression.
	FullSchedule string `yaml:"fullSchedule"`
}

// MonitoringConfig is the fixed metrics exporter setup.
type MonitoringConfig struct {
	ExporterImage string `yaml:"exporterImage"`

	// EndpointConfigMap names the ConfigMap carrying the exporter configuration
	// that points at the platform monitoring endpoint.
	EndpointConfigMap string `yaml:"endpointConfigMap"`
}

// Default returns the built-in platform tables.
func Default() *Config {
	return &Config{
		Images: map[int32]string{
			15: registry + "crunchy-postgres:ubi9-15.13-2520",
			16: registry + "crunchy-postgres:ubi9-16.9-2520",
			17: registry + "crunchy-postgres:ubi9-17.5-2520",
		},
		MaxReplicas: 7,
		DefaultResources: Resources{
			Requests: ResourcePair{CPU: "500m", Memory: "1Gi"},
			Limits:   ResourcePair{CPU: "2", Memory: "4Gi"},
		},
		PgBouncerImage: registry + "crunchy-pgbouncer:ubi9-1.24-2520",
		Backup: BackupConfig{
			Image:             registry + "crunchy-pgbackrest:ubi9-2.54.2-2520",
			RepoName:          "repo1",
			Bucket:            "pgplatform-backups",
			Endpoint:          "s3.amazonaws.com",
			Region:            "us-east-1",
			CredentialsSecret: "pgplatform-backup-s3",
			RetentionFull:     14,
			RetentionFullType: "time",
			FullSchedule:      "0 1 * * *",
		},
		Monitoring: MonitoringConfig{
			ExporterImage:     registry + "crunchy-postgres-exporter:ubi9-0.17.1-2520",
			EndpointConfigMap: "pgplatform-monitoring",
		},
		FailureGracePeriod: 5 * time.Minute,
	}
}

// LoadFile reads platform tables from a YAML file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open platform config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes platform tables over the built-in defaults. Unknown keys are rejected.
// An images table in the input replaces the default table instead of merging into it.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read platform config: %w", err)
	}

	cfg := Default()
	defaults := cfg.Images
	cfg.Images = nil

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode platform config: %w", err)
		}
	}
	if len(cfg.Images) == 0 {
		cfg.Images = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every table entry is usable by the translator.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Images) == 0 {
		errs = append(errs, errors.New("images: at least one version is required"))
	}
	for _, v := range c.SupportedVersions() {
		if c.Images[v] == "" {
			errs = append(errs, fmt.Errorf("images[%d]: image is empty", v))
		}
	}
	if c.MaxReplicas < 1 {
		errs = append(errs, fmt.Errorf("maxReplicas: must be at least 1, got %d", c.MaxReplicas))
	}

	quantities := map[string]string{
		"defaultResources.requests.cpu":    c.DefaultResources.Requests.CPU,
		"defaultResources.requests.memory": c.DefaultResources.Requests.Memory,
		"defaultResources.limits.cpu":      c.DefaultResources.Limits.CPU,
		"defaultResources.limits.memory":   c.DefaultResources.Limits.Memory,
	}
	for _, field := range sortedKeys(quantities) {
		if quantities[field] == "" {
			continue
		}
		if _, err := resource.ParseQuantity(quantities[field]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a valid quantity", field, quantities[field]))
		}
	}

	if c.PgBouncerImage == "" {
		errs = append(errs, errors.New("pgBouncerImage: must be set"))
	}
	if c.Backup.Image == "" {
		errs = append(errs, errors.New("backup.image: must be set"))
	}
	if c.Backup.RepoName == "" {
		errs = append(errs, errors.New("backup.repoName: must be set"))
	}
	if c.Backup.RetentionFull < 1 {
		errs = append(errs, fmt.Errorf("backup.retentionFull: must be at least 1, got %d", c.Backup.RetentionFull))
	}
	if c.Backup.RetentionFullType != "count" && c.Backup.RetentionFullType != "time" {
		errs = append(errs, fmt.Errorf("backup.retentionFullType: must be count or time, got %q", c.Backup.RetentionFullType))
	}
	if _, err := cron.ParseStandard(c.Backup.FullSchedule); err != nil {
		errs = append(errs, fmt.Errorf("backup.fullSchedule: %w", err))
	}
	if c.Monitoring.ExporterImage == "" {
		errs = append(errs, errors.New("monitoring.exporterImage: must be set"))
	}
	if c.FailureGracePeriod < 0 {
		errs = append(errs, fmt.Errorf("failureGracePeriod: must not be negative, got %s", c.FailureGracePeriod))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid platform config: %w", errors.Join(errs...))
	}
	return nil
}

// SupportedVersions returns the versions of the image table in ascending order.
func (c *Config) SupportedVersions() []int32 {
	versions := make([]int32, 0, len(c.Images))
	for v := range c.Images {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions
}

// ImageFor returns the image for a version and whether the version is supported.
func (c *Config) ImageFor(version int32) (string, bool) {
	image, ok := c.Images[version]
	return image, ok && image != ""
}

// RetentionOptions returns the pgBackRest global options for the configured repo.
func (c *Config) RetentionOptions() map[string]string {
	prefix := c.Backup.RepoName + "-"
	return map[string]string{
		prefix + "retention-full":      strconv.Itoa(c.Backup.RetentionFull),
		prefix + "retention-full-type": c.Backup.RetentionFullType,
	}
}

// NextFullBackup returns the first scheduled full backup after from.
func (c *Config) NextFullBackup(from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(c.Backup.FullSchedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse backup schedule: %w", err)
	}
	return schedule.Next(from), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
