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

// Package gcloud shells out to the gcloud CLI for Cloud Run operations.
package gcloud

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Output formats accepted by DescribeService.
const (
	// FormatJSON is the API representation of the service.
	FormatJSON = "json"
	// FormatExport is a round-trip-editable document that can be
	// replayed through ReplaceService.
	FormatExport = "export"
)

// CLI invokes gcloud run subcommands scoped to a single service.
type CLI struct {
	Service string
	Region  string
	Project string
	// Timeout bounds each gcloud call. Zero means no timeout, matching
	// gcloud's own behavior.
	Timeout time.Duration
}

// gcloud run services describe prop-management --region europe-west4 --project rentalspot-fzwom --format json
func (c *CLI) DescribeService(format string) ([]byte, error) {
	return c.output(c.describeArgs(format)...)
}

// ListRevisions returns the service's revisions as a JSON array, in
// gcloud's own ordering (newest first), which callers rely on.
//
// gcloud run revisions list --service prop-management --region europe-west4 --project rentalspot-fzwom --format json
func (c *CLI) ListRevisions() ([]byte, error) {
	return c.output(c.listArgs()...)
}

// ReplaceService replays the configuration document at path through the
// declarative replace operation. The service name comes from the
// document itself, only region and project scope the call.
//
// gcloud run services replace /tmp/service.yaml --region europe-west4 --project rentalspot-fzwom
func (c *CLI) ReplaceService(path string) error {
	_, err := c.output(c.replaceArgs(path)...)
	return err
}

func (c *CLI) describeArgs(format string) []string {
	return []string{
		"run", "services", "describe", c.Service,
		"--region", c.Region,
		"--project", c.Project,
		"--format", format,
	}
}

func (c *CLI) listArgs() []string {
	return []string{
		"run", "revisions", "list",
		"--service", c.Service,
		"--region", c.Region,
		"--project", c.Project,
		"--format", FormatJSON,
	}
}

func (c *CLI) replaceArgs(path string) []string {
	return []string{
		"run", "services", "replace", path,
		"--region", c.Region,
		"--project", c.Project,
	}
}

// output runs gcloud with args and returns its stdout. On a non-zero
// exit the returned error carries gcloud's stderr so the operator sees
// the platform's own message.
func (c *CLI) output(args ...string) ([]byte, error) {
	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := exec.CommandContext(ctx, "gcloud", args...).Output()
	if err != nil {
		return nil, errors.Errorf("gcloud %s: %s", strings.Join(args, " "), execError(err))
	}
	return out, nil
}

// execError returns a string format of err including stderr if the err
// is an ExitError, useful for errors from exec.Cmd.Output().
func execError(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return fmt.Sprintf("%v: %s", err, strings.TrimSpace(string(ee.Stderr)))
	}
	return err.Error()
}
