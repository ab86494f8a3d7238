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
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
	"github.com/pgplatform-operator/cmd/pgctl/internal"
	"github.com/pgplatform-operator/internal/platform"
	"github.com/pgplatform-operator/internal/service/apply"
	"github.com/pgplatform-operator/internal/service/translate"
	"github.com/pgplatform-operator/internal/service/validation"
	"github.com/pgplatform-operator/internal/target"
)

func newRenderCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "render -f FILE",
		Short: "Print the PostgresCluster generated for each manifest",
		Long: `Render validates each PostgresDatabase in FILE and prints the PostgresCluster
the operator would create for it. Owner references are omitted because they
need the UID of the live object.`,
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
			printer, err := opts.printer(cmd.OutOrStdout(), internal.FormatYAML)
			if err != nil {
				return err
			}

			docs := make([]interface{}, 0, len(databases))
			for _, db := range databases {
				cluster, err := render(db, tables)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", db.Namespace, db.Name, err)
				}
				opts.printVerbose(cmd.ErrOrStderr(), "%s/%s: endpoint %s", db.Namespace, db.Name,
					translate.Endpoint(db.Name, db.Namespace, db.Spec.Replicas))
				docs = append(docs, cluster.Object)
			}
			return printer.PrintDocuments(docs)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Manifest file to render")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// render builds the PostgresCluster object for db as the operator would create it.
func render(db *dbv1alpha1.PostgresDatabase, tables *platform.Config) (*unstructured.Unstructured, error) {
	spec, err := validation.New(tables).Check(&db.Spec, nil, db.Annotations)
	if err != nil {
		return nil, err
	}
	desired, err := translate.Translate(translate.Input{
		Name:      db.Name,
		Namespace: db.Namespace,
		Spec:      *spec,
	}, tables)
	if err != nil {
		return nil, err
	}
	content, err := desired.ToUnstructured()
	if err != nil {
		return nil, err
	}

	cluster := target.New()
	cluster.SetName(db.Name)
	cluster.SetNamespace(db.Namespace)
	cluster.SetLabels(apply.MarkerLabels(db))
	if err := unstructured.SetNestedMap(cluster.Object, content, "spec"); err != nil {
		return nil, fmt.Errorf("set spec: %w", err)
	}
	return cluster, nil
}
