package credential

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// EnvironmentName is the reserved name of the credential seeded from the
// process environment at startup.
const EnvironmentName = "environment"

// SeedEnvironment creates the environment-seeded credential once per process
// lifecycle: only when a payload is configured, parseable, and no credential
// with the reserved name exists yet. Idempotent across restarts.
func SeedEnvironment(ctx context.Context, store Store, payload []byte, logger *slog.Logger) error {
	if len(payload) == 0 {
		return nil
	}
	if !json.Valid(payload) {
		logger.Warn("ignoring environment credential: payload is not valid JSON")
		return nil
	}

	_, err := store.GetByName(ctx, EnvironmentName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	if _, err := store.Create(ctx, EnvironmentName, payload, true); err != nil {
		// Lost a race with a concurrent seeder; the credential exists.
		if errors.Is(err, ErrNameTaken) {
			return nil
		}
		return err
	}

	logger.InfoContext(ctx, "environment credential seeded", slog.String("name", EnvironmentName))
	return nil
}
