/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/compute/metadata"
	"github.com/chainguard-dev/clog"
)

// ErrNoProject is returned when no Vertex AI project is configured and the
// process is not running on Google Cloud.
var ErrNoProject = errors.New("no Google Cloud project configured")

// ResolveVertex fills in the project and region for Vertex AI. Explicit values
// win; otherwise they are read from the GCE metadata server.
func ResolveVertex(ctx context.Context, project, region string) (string, string, error) {
	if project != "" && region != "" {
		return project, region, nil
	}
	if !metadata.OnGCE() {
		if project == "" {
			return "", "", ErrNoProject
		}
		return project, "us-central1", nil
	}

	log := clog.FromContext(ctx)
	if project == "" {
		p, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detecting project ID: %w", err)
		}
		project = p
		log.With("project_id", project).Info("Detected Google Cloud project")
	}
	if region == "" {
		zone, err := metadata.ZoneWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detecting zone: %w", err)
		}
		region = RegionFromZone(zone)
		log.With("region", region).Info("Detected Google Cloud region")
	}
	return project, region, nil
}

// RegionFromZone strips the zone suffix, so us-central1-a becomes us-central1.
func RegionFromZone(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}
