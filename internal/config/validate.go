// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared across Validate calls; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against the struct tags plus a few
// cross-field rules the tags cannot express. All violations are reported in
// one error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %s", formatFieldErrors(verrs))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Cross-field rules.
	if c.Warmer.Interval <= c.Cache.ComputeTimeout {
		return fmt.Errorf("invalid configuration: warmer.interval (%s) must exceed cache.compute_timeout (%s)",
			c.Warmer.Interval, c.Cache.ComputeTimeout)
	}
	if c.Coordinator.SweepInterval > c.Coordinator.RetentionWindow {
		return fmt.Errorf("invalid configuration: coordinator.sweep_interval (%s) must not exceed coordinator.retention_window (%s)",
			c.Coordinator.SweepInterval, c.Coordinator.RetentionWindow)
	}

	return nil
}

func formatFieldErrors(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return msg
}
