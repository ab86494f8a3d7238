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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/types"
)

const ordersManifest = `apiVersion: db.pgplatform.io/v1alpha1
kind: PostgresDatabase
metadata:
  name: orders
  namespace: team-a
spec:
  version: 17
  replicas: 3
  storageSize: 100Gi
`

func TestLoadReader(t *testing.T) {
	content := ordersManifest + `---
apiVersion: db.pgplatform.io/v1alpha1
kind: PostgresDatabase
metadata:
  name: billing
spec:
  version: 16
  replicas: 1
  storageSize: 10Gi
  backupEnabled: false
`
	databases, err := LoadReader(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, databases, 2)

	assert.Equal(t, "orders", databases[0].Name)
	assert.Equal(t, "team-a", databases[0].Namespace)
	assert.Equal(t, int32(3), databases[0].Spec.Replicas)
	assert.Nil(t, databases[0].Spec.BackupEnabled)

	assert.Equal(t, "default", databases[1].Namespace)
	require.NotNil(t, databases[1].Spec.BackupEnabled)
	assert.False(t, *databases[1].Spec.BackupEnabled)

	index := Index(databases)
	assert.Same(t, databases[1], index[types.NamespacedName{Namespace: "default", Name: "billing"}])
}

func TestLoadReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "empty", content: "---\n", wantErr: "no valid resources"},
		{
			name:    "wrong api version",
			content: strings.Replace(ordersManifest, "db.pgplatform.io/v1alpha1", "v1", 1),
			wantErr: "unexpected apiVersion",
		},
		{
			name:    "wrong kind",
			content: strings.Replace(ordersManifest, "PostgresDatabase", "ConfigMap", 1),
			wantErr: "unsupported kind",
		},
		{
			name:    "unknown field",
			content: strings.Replace(ordersManifest, "replicas: 3", "replica: 3", 1),
			wantErr: "document 1",
		},
		{
			name:    "missing name",
			content: strings.Replace(ordersManifest, "  name: orders\n", "", 1),
			wantErr: "metadata.name is required",
		},
		{
			name:    "duplicate",
			content: ordersManifest + "---\n" + ordersManifest,
			wantErr: "duplicate PostgresDatabase team-a/orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersManifest), 0o600))

	databases, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, databases, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open file")
}
