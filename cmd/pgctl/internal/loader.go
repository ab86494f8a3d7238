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

package internal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/yaml"

	dbv1alpha1 "github.com/pgplatform-operator/api/v1alpha1"
)

const kindPostgresDatabase = "PostgresDatabase"

// typeMeta is used for initial parsing to determine the kind
type typeMeta struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
}

// LoadFile loads PostgresDatabase manifests from a YAML file.
// Supports multi-document YAML files separated by "---"
func LoadFile(path string) ([]*dbv1alpha1.PostgresDatabase, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return LoadReader(file)
}

// LoadReader loads PostgresDatabase manifests from a reader. Documents without
// a namespace are placed in "default", as kubectl would.
func LoadReader(r io.Reader) ([]*dbv1alpha1.PostgresDatabase, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var databases []*dbv1alpha1.PostgresDatabase
	seen := make(map[types.NamespacedName]bool)
	for i, doc := range splitYAMLDocuments(content) {
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}

		db, err := parseDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document %d: %w", i+1, err)
		}
		key := types.NamespacedName{Namespace: db.Namespace, Name: db.Name}
		if seen[key] {
			return nil, fmt.Errorf("document %d: duplicate PostgresDatabase %s", i+1, key)
		}
		seen[key] = true
		databases = append(databases, db)
	}

	if len(databases) == 0 {
		return nil, fmt.Errorf("no valid resources found in file")
	}
	return databases, nil
}

// Index maps databases by namespaced name.
func Index(databases []*dbv1alpha1.PostgresDatabase) map[types.NamespacedName]*dbv1alpha1.PostgresDatabase {
	index := make(map[types.NamespacedName]*dbv1alpha1.PostgresDatabase, len(databases))
	for _, db := range databases {
		index[types.NamespacedName{Namespace: db.Namespace, Name: db.Name}] = db
	}
	return index
}

// splitYAMLDocuments splits YAML content by "---" separator
func splitYAMLDocuments(content []byte) [][]byte {
	var documents [][]byte
	var current bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(content))

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			if current.Len() > 0 {
				documents = append(documents, bytes.Clone(current.Bytes()))
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		documents = append(documents, current.Bytes())
	}
	return documents
}

func parseDocument(doc []byte) (*dbv1alpha1.PostgresDatabase, error) {
	var meta typeMeta
	if err := yaml.Unmarshal(doc, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	expected := dbv1alpha1.GroupVersion.String()
	if meta.APIVersion != expected {
		return nil, fmt.Errorf("unexpected apiVersion: %s (expected %s)", meta.APIVersion, expected)
	}
	if meta.Kind != kindPostgresDatabase {
		return nil, fmt.Errorf("unsupported kind: %s", meta.Kind)
	}

	// Strict decoding surfaces misspelled spec fields, which the API server
	// would otherwise prune silently.
	db := &dbv1alpha1.PostgresDatabase{}
	if err := yaml.UnmarshalStrict(doc, db); err != nil {
		return nil, fmt.Errorf("failed to parse PostgresDatabase: %w", err)
	}
	if db.Name == "" {
		return nil, fmt.Errorf("metadata.name is required")
	}
	if db.Namespace == "" {
		db.Namespace = "default"
	}
	return db, nil
}
