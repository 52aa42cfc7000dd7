// Package portal provides the session plumbing of a server rendered
// content portal that talks to a separate JSON api.
//
// Session tokens:
//   - TokenValidator decodes the exp claim of a JWT without verifying its
//     signature. A token is usable while exp lies in the future; tokens
//     without an exp claim never expire.
//   - TokenStore keeps the token of one visitor. MemoryTokenStore serves
//     tests and MemorySessions the in process backend. The repository
//     package adds sqlite and redis stores and guardware keeps the token
//     in an HTTP only cookie.
//
// Navigation:
//   - RouteTable names every page and carries its metadata. A route
//     requires a session when it or any of its ancestors does.
//   - Guard evaluates a navigation in a fixed order: maintenance, session
//     required, then the login page for visitors already signed in.
//     Rejections clear stale tokens and emit an ActivityEvent. After
//     navigation hooks receive the resolved page title.
//
// Activity sinks:
//   - ActivitySink receives navigation and session events. Sinks run best
//     effort so a failing sink never blocks a page.
package portal
