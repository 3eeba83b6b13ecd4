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

	"github.com/pkg/errors"
	run "google.golang.org/api/run/v1"
	"sigs.k8s.io/yaml"
)

// patchTraffic rewrites the exported configuration at path so that
// spec.traffic routes 100% of traffic to revision. The document is
// treated as opaque: every field other than spec.traffic passes through
// the parse/serialize round trip untouched.
func patchTraffic(path, revision string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading exported config %s", path)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(err, "parsing exported config %s", path)
	}
	spec, ok := doc["spec"].(map[string]interface{})
	if !ok {
		return errors.Errorf("exported config %s has no spec", path)
	}
	spec["traffic"] = []*run.TrafficTarget{{
		RevisionName: revision,
		Percent:      100,
	}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "serializing patched config")
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o600), "writing patched config %s", path)
}
