// Package instructions composes personalized agent instructions from a
// user's profile and classifies their best-fitting agent role.
//
// Composition starts from the base instruction text of the resolved
// role and appends guidance keyed off detected pattern categories,
// either from static clause tables or from the LLM. Every LLM failure
// degrades to the base text; composition never fails because the model
// did.
package instructions
