/*
Copyright 2026 The runfix Authors.

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

package fix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"sigs.k8s.io/yaml"
)

const multiTargetYAML = `apiVersion: serving.knative.dev/v1
kind: Service
metadata:
  name: prop-management
  namespace: "123456789"
  annotations:
    run.googleapis.com/ingress: all
spec:
  template:
    metadata:
      name: prop-management-00042-abc
    spec:
      containerConcurrency: 80
      containers:
      - image: gcr.io/rentalspot-fzwom/prop-management:latest
        ports:
        - containerPort: 8080
  traffic:
  - revisionName: prop-management-00017-xyz
    percent: 60
  - revisionName: prop-management-00042-abc
    percent: 40
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func parseConfig(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	return doc
}

func TestPatchTrafficReplacesAssignment(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	if err := patchTraffic(path, "prop-management-00042-abc"); err != nil {
		t.Fatalf("patchTraffic returned unexpected error: %v", err)
	}

	want := []trafficEntry{{RevisionName: "prop-management-00042-abc", Percent: 100}}
	if diff := cmp.Diff(want, readTraffic(t, path)); diff != "" {
		t.Errorf("traffic after patch differs (-want +got):\n%s", diff)
	}
}

func TestPatchTrafficPreservesOtherFields(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)
	original := parseConfig(t, path)

	if err := patchTraffic(path, "prop-management-00042-abc"); err != nil {
		t.Fatalf("patchTraffic returned unexpected error: %v", err)
	}

	patched := parseConfig(t, path)
	delete(original["spec"].(map[string]interface{}), "traffic")
	delete(patched["spec"].(map[string]interface{}), "traffic")
	if diff := cmp.Diff(original, patched); diff != "" {
		t.Errorf("non-traffic fields changed across the round trip (-original +patched):\n%s", diff)
	}
}

func TestPatchTrafficIsIdempotent(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	if err := patchTraffic(path, "rev-a"); err != nil {
		t.Fatalf("first patch failed: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}

	if err := patchTraffic(path, "rev-a"); err != nil {
		t.Fatalf("second patch failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("patching twice with the same revision changed the document:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestPatchTrafficReplacesPriorSingleEntry(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	if err := patchTraffic(path, "rev-a"); err != nil {
		t.Fatalf("first patch failed: %v", err)
	}
	if err := patchTraffic(path, "rev-b"); err != nil {
		t.Fatalf("second patch failed: %v", err)
	}

	// A new revision fully replaces the prior assignment, it is not
	// appended to it.
	want := []trafficEntry{{RevisionName: "rev-b", Percent: 100}}
	if diff := cmp.Diff(want, readTraffic(t, path)); diff != "" {
		t.Errorf("traffic after repatch differs (-want +got):\n%s", diff)
	}
}

func TestPatchTrafficRejectsMissingSpec(t *testing.T) {
	path := writeConfig(t, "apiVersion: serving.knative.dev/v1\nkind: Service\n")

	err := patchTraffic(path, "rev-a")
	if err == nil {
		t.Fatal("patchTraffic accepted a document with no spec")
	}
	if !strings.Contains(err.Error(), "has no spec") {
		t.Errorf("error %q does not name the missing spec", err)
	}
}

func TestPatchTrafficRejectsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if err := patchTraffic(path, "rev-a"); err == nil {
		t.Fatal("patchTraffic accepted a missing file")
	}
}
