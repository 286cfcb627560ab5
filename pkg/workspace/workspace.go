// Package workspace keeps a multi-file editing workspace: an ordered list of
// files, the file currently being edited, and the editor preferences that
// go with them. Every change is written through to a kvstore.Store before
// the call returns, so storage never lags behind memory.
//
// Example usage:
//
//	store, err := kvstore.Open(kvstore.Config{Backend: kvstore.BackendBadger, Path: dir}, logger)
//	if err != nil {
//		log.Fatal().Err(err).Msg("Failed to open store")
//	}
//	defer store.Close()
//
//	manager, err := workspace.Open(workspace.Config{Store: store, Logger: logger})
//	if err != nil {
//		log.Fatal().Err(err).Msg("Failed to open workspace")
//	}
//
//	// Listen for theme changes
//	unsubscribe := manager.On(workspace.EventThemeChanged, func(p workspace.EventPayload) {
//		log.Info().Interface("theme", p.Data).Msg("Theme changed")
//	})
//	defer unsubscribe()
//
//	file, err := manager.Create("helper.ts", "", "")
//	// file.Language == "typescript", and helper.ts is now active
package workspace
