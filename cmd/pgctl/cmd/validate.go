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

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/types"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/cmd/pgctl/internal"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service/validation"
)

// errInvalid is returned when at least one manifest fails validation. The
// per-manifest reasons have already been printed.
var errInvalid = errors.New("one or more manifests are invalid")

func newValidateCmd(opts *options) *cobra.Command {
	var file, previous string

	cmd := &cobra.Command{
		Use:   "validate -f FILE [--previous FILE]",
		Short: "Validate PostgresDatabase manifests",
		Long: `Validate checks each PostgresDatabase in FILE against the platform tables.

With --previous, each manifest is also checked as an update of the matching
manifest (same namespace and name) in the previous file, which catches
immutable-field changes such as a major version upgrade or a storage shrink.
A previous manifest carrying status.acceptedSpec is compared against that
instead, exactly as the operator does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := opts.loadPlatform()
			if err != nil {
				return err
			}
			databases, err := internal.LoadFile(file)
			if err != nil {
				return err
			}
			var before map[types.NamespacedName]*dbv1alpha1.PostgresDatabase
			if previous != "" {
				prev, err := internal.LoadFile(previous)
				if err != nil {
					return fmt.Errorf("previous: %w", err)
				}
				before = internal.Index(prev)
			}

			printer, err := opts.printer(cmd.OutOrStdout(), internal.FormatTable)
			if err != nil {
				return err
			}

			rows, failed := validateAll(opts, cmd, tables, databases, before)
			headers := []string{"NAMESPACE", "NAME", "RESULT", "NEXT FULL BACKUP", "MESSAGE"}
			if err := printer.PrintTable(headers, rows); err != nil {
				return err
			}
			if failed {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Manifest file to validate")
	cmd.Flags().StringVar(&previous, "previous", "", "Manifest file holding the current objects")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func validateAll(
	opts *options,
	cmd *cobra.Command,
	tables *platform.Config,
	databases []*dbv1alpha1.PostgresDatabase,
	before map[types.NamespacedName]*dbv1alpha1.PostgresDatabase,
) ([][]string, bool) {
	validator := validation.New(tables)
	failed := false

	rows := make([][]string, 0, len(databases))
	for _, db := range databases {
		key := types.NamespacedName{Namespace: db.Namespace, Name: db.Name}
		accepted := acceptedFor(before[key])
		if accepted != nil {
			opts.printVerbose(cmd.ErrOrStderr(), "%s: checking as update of version %d, storage %s",
				key, accepted.Version, accepted.StorageSize)
		}

		spec, err := validator.Check(&db.Spec, accepted, db.Annotations)
		if err != nil {
			failed = true
			rows = append(rows, []string{db.Namespace, db.Name, "invalid", "", flatten(err)})
			continue
		}

		next := "-"
		if spec.IsBackupEnabled() {
			at, err := tables.NextFullBackup(opts.now())
			if err != nil {
				failed = true
				rows = append(rows, []string{db.Namespace, db.Name, "invalid", "", err.Error()})
				continue
			}
			next = at.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{db.Namespace, db.Name, "valid", next, strings.Join(validation.Warnings(spec), "; ")})
	}
	return rows, failed
}

// acceptedFor returns the immutable baseline for an update of prev, or nil for a create.
func acceptedFor(prev *dbv1alpha1.PostgresDatabase) *dbv1alpha1.AcceptedSpec {
	switch {
	case prev == nil:
		return nil
	case prev.Status.AcceptedSpec != nil:
		return prev.Status.AcceptedSpec
	default:
		return validation.Accept(&prev.Spec)
	}
}

// flatten joins the lines of an errors.Join result so it fits a table cell.
func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
