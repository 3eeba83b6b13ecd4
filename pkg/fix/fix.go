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

// Package fix rewrites a Cloud Run service's traffic assignment so that
// the newest revision receives 100% of traffic.
package fix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	run "google.golang.org/api/run/v1"

	"github.com/rentalspot/runfix/pkg/gcloud"
)

// Options identifies the service to fix and how to reach it.
type Options struct {
	Service string
	Region  string
	Project string
	// ExportFile is where the exported configuration is written before
	// being replayed. Empty means a unique path under the OS temp dir.
	ExportFile string
	// Timeout bounds each gcloud call. Zero means no timeout.
	Timeout time.Duration
}

// client is the subset of gcloud operations the workflow needs. Tests
// substitute canned responses; gcloud.CLI is the real thing.
type client interface {
	DescribeService(format string) ([]byte, error)
	ListRevisions() ([]byte, error)
	ReplaceService(path string) error
}

// Run performs the remediation once: describe the service, find its
// newest revision, export the configuration, point spec.traffic at that
// revision, and replace the live service with the patched document.
// Each step gates the next; the first failure aborts the whole run.
func Run(o *Options) error {
	c := &gcloud.CLI{
		Service: o.Service,
		Region:  o.Region,
		Project: o.Project,
		Timeout: o.Timeout,
	}
	return fixTraffic(o, c)
}

func fixTraffic(o *Options, c client) error {
	log := logrus.WithFields(logrus.Fields{
		"service": o.Service,
		"region":  o.Region,
	})
	log.Info("Fixing traffic")

	raw, err := c.DescribeService(gcloud.FormatJSON)
	if err != nil {
		return errors.Wrap(err, "describing service")
	}
	var svc run.Service
	if err := json.Unmarshal(raw, &svc); err != nil {
		return errors.Wrap(err, "decoding service")
	}
	logCurrentTraffic(log, &svc)

	raw, err = c.ListRevisions()
	if err != nil {
		return errors.Wrap(err, "listing revisions")
	}
	var revisions []*run.Revision
	if err := json.Unmarshal(raw, &revisions); err != nil {
		return errors.Wrap(err, "decoding revisions")
	}
	latest, err := latestRevision(revisions)
	if err != nil {
		return err
	}
	log.WithField("revision", latest).Info("Latest revision")
	log.Infof("Existing revisions: %v", revisionNames(revisions))

	// The export format differs from the JSON describe and is the only
	// representation `services replace` accepts, so this is a second,
	// independent describe call rather than a reuse of the first.
	exported, err := c.DescribeService(gcloud.FormatExport)
	if err != nil {
		return errors.Wrap(err, "exporting service")
	}
	path := o.ExportFile
	if path == "" {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("service-%s.yaml", uuid.NewString()))
	}
	if err := os.WriteFile(path, exported, 0o600); err != nil {
		return errors.Wrapf(err, "writing exported config to %s", path)
	}
	if err := patchTraffic(path, latest); err != nil {
		return err
	}

	log.Info("Applying new traffic configuration")
	if err := c.ReplaceService(path); err != nil {
		return errors.Wrap(err, "replacing service")
	}
	log.WithField("revision", latest).Info("Traffic updated, all traffic now routes to the latest revision")
	return nil
}

// latestRevision returns the name of the newest revision. gcloud lists
// revisions newest first, so the head of the list is the latest; no
// timestamp comparison is needed.
func latestRevision(revisions []*run.Revision) (string, error) {
	if len(revisions) == 0 {
		return "", errors.New("service has no revisions")
	}
	r := revisions[0]
	if r == nil || r.Metadata == nil || r.Metadata.Name == "" {
		return "", errors.New("latest revision has no name")
	}
	return r.Metadata.Name, nil
}

// revisionNames is informational only, no routing decision depends on it.
func revisionNames(revisions []*run.Revision) []string {
	names := make([]string, 0, len(revisions))
	for _, r := range revisions {
		if r != nil && r.Metadata != nil {
			names = append(names, r.Metadata.Name)
		}
	}
	return names
}

func logCurrentTraffic(log *logrus.Entry, svc *run.Service) {
	if svc.Spec == nil {
		return
	}
	for _, t := range svc.Spec.Traffic {
		name := t.RevisionName
		if t.LatestRevision {
			name = "LATEST"
		}
		log.Infof("Current traffic: %s=%d%%", name, t.Percent)
	}
}
