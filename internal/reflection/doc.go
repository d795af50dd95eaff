// Package reflection generates and stores per-session reflection
// documents.
//
// A reflection is a markdown summary of one chat session: what was
// attempted, what came out of it, and what it reveals about the user.
// Reflections are the raw input of the analysis pipeline; the
// repository here persists them keyed by user and session for later
// retrieval.
package reflection
