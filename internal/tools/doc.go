// Package tools resolves declarative tool server selections into live,
// namespaced tool lists for agent turns.
//
// An agent turn declares which tool servers it wants by identifier. The
// Resolver connects to each of them concurrently, injects the user's
// bearer tokens into the transport headers where configured, lists the
// available tools, and joins the results into one flat list. Tool names
// are prefixed with their server identifier ("github__search_issues") so
// tools from different servers never collide.
//
// # Failure isolation
//
// Resolution never fails as a whole. An unknown identifier is skipped, an
// unreachable or unauthorized server is dropped from the result, and the
// worst case outcome is an empty list. Agents always get whatever subset
// of their requested tools is currently available.
//
// # Caching
//
// Resolved tool sets, together with the live client connections that
// produced them, are memoized per (sorted server set, user) in the Cache.
// A cache hit makes no remote calls; concurrent cold-cache requests for
// the same key are collapsed into a single fan-out. Revoking a user's
// credential invalidates all of that user's entries so cached tool sets
// never outlive the authorization that produced them.
package tools
