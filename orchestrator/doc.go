// Package orchestrator turns a user utterance into a response bundle.
//
// A turn walks a fixed state machine: the query is embedded, the published
// chunk store is searched, results below the similarity threshold are
// dropped, and the model is asked for an answer with the surviving context and
// the enabled action schemas. A model may request at most one action per turn;
// its result is fed back for exactly one regeneration. Transport failures never
// escape Respond; they become apologetic answers and are logged.
package orchestrator
