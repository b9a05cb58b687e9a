// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package voice speaks a conversation aloud through ElevenLabs.
//
// [ElevenLabs] is the HTTP client: [ElevenLabs.Synthesize] turns text
// into MP3 audio for a voice and [ElevenLabs.FindVoice] searches the
// voice library by description.
//
// [Player] is what the conversation talks to. Its Speak method never
// blocks: it queues the line and returns. A single worker goroutine
// takes lines in order, reduces Markdown to plain prose ([SpeechText]),
// synthesizes audio (through an in-memory LRU keyed by a BLAKE3 hash of
// voice and text), and hands it to an [AudioPlayer], normally a
// [CommandPlayer] running ffplay, mpv, or afplay. Failures are logged
// and the line is skipped; speech never stops the story.
//
// Speakers with no voice ID are silent. The narrator uses its own
// voice ID.
package voice
