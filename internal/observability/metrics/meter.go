// Copyright 2026 The GameTaverns Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps the OpenTelemetry meter and the platform instruments
type Meter struct {
	meter metric.Meter

	ResolutionsTotal  metric.Int64Counter
	ResolutionErrors  metric.Int64Counter
	PolicyDenials     metric.Int64Counter
	TenantsProvisions metric.Int64Counter
}

// New creates a meter and the platform instruments. When disabled, the
// noop meter makes every instrument a no-op.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	var meter metric.Meter
	if cfg.Enabled {
		meter = otel.Meter(serviceName)
	} else {
		meter = otel.Meter("noop")
	}

	m := &Meter{meter: meter}

	var err error
	if m.ResolutionsTotal, err = meter.Int64Counter("tenant_resolutions_total",
		metric.WithDescription("Hostname resolutions attempted")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.ResolutionErrors, err = meter.Int64Counter("tenant_resolution_errors_total",
		metric.WithDescription("Hostname resolutions that failed at the directory")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.PolicyDenials, err = meter.Int64Counter("policy_denials_total",
		metric.WithDescription("Operations denied by the isolation policy engine")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if m.TenantsProvisions, err = meter.Int64Counter("tenants_provisioned_total",
		metric.WithDescription("Tenants provisioned")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return m, nil
}

// Meter returns the underlying meter
func (m *Meter) Meter() metric.Meter {
	return m.meter
}
