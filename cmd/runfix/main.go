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

// runfix routes 100% of a Cloud Run service's traffic to its most
// recently created revision, repairing a drifted or misconfigured
// traffic assignment.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rentalspot/runfix/pkg/fix"
)

// Defaults match the deployment this tool was written to repair.
const (
	defaultService = "prop-management"
	defaultRegion  = "europe-west4"
	defaultProject = "rentalspot-fzwom"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.WithError(err).Error("Failed to fix traffic")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var opts fix.Options
	cmd := &cobra.Command{
		Use:           "runfix",
		Short:         "Route all of a Cloud Run service's traffic to its newest revision",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fix.Run(&opts)
		},
	}
	cmd.Flags().AddFlagSet(bindFlags(&opts))
	return cmd
}

func bindFlags(o *fix.Options) *pflag.FlagSet {
	flags := pflag.NewFlagSet("runfix", pflag.ContinueOnError)
	flags.StringVar(&o.Service, "service", defaultService, "Cloud Run service to fix")
	flags.StringVar(&o.Region, "region", defaultRegion, "Region the service runs in")
	flags.StringVar(&o.Project, "project", defaultProject, "GCP project that owns the service")
	flags.StringVar(&o.ExportFile, "export-file", "", "Path for the exported service config, defaulting to a unique file under the OS temp dir")
	flags.DurationVar(&o.Timeout, "timeout", 0, "Timeout for each gcloud call, 0 for none")
	return flags
}
