// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads scene files for ensemble.
//
// A scene file holds everything one conversation needs: the title,
// the opening scene, the narrator's guide, the cast, and the settings
// for the model backend, history budget, voice, transcript, and
// presentation. It is loaded from a single path given by either the
// ENSEMBLE_CONFIG environment variable (via [Load]) or the --config
// flag (via [LoadFile]). There is no discovery and no layering.
//
// YAML files (.yaml, .yml) and JSON-with-comments files (.json,
// .jsonc) are both accepted. Every field is optional in the file;
// [Default] supplies the base values.
//
// After decoding, ${VAR} and ${VAR:-default} patterns are expanded in
// paths, URLs, and API keys, with ${CONFIG_DIR} bound to the file's
// directory. persona_file and guide_file are read relative to that
// directory. Empty API keys fall back to ANTHROPIC_API_KEY,
// OPENAI_API_KEY, and ELEVENLABS_API_KEY. No other environment
// variable overrides a value in the file.
//
// This package depends on no other ensemble packages.
package config
