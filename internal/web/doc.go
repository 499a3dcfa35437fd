// Package web serves the PEAI dashboard: server-rendered pages over html/template with a
// little inline script for the player and history sync.
//
// # Routes
//
//	GET  /                                 → landing page
//	GET  /health                           → liveness probe
//	GET  /login                            → sign-in page (signed-in users go to /dashboard)
//	GET  /auth/login, /auth/callback       → authorization code flow
//	POST /auth/logout                      → end the session
//	GET  /dashboard                        → overview (requires auth)
//	GET  /chat                             → chat placeholder (requires auth)
//	GET  /chat/qa, POST /chat/qa           → Q&A conversation (requires auth)
//	POST /chat/qa/regenerate               → regenerate one reply (requires auth)
//	GET  /videos/{course}                  → lesson list with search (requires auth)
//	GET  /videos/{course}/{videoId}        → lesson page with embedded player (requires auth)
//	POST /videos/{course}/{videoId}/player → player load events (requires auth)
//
// # Player events
//
// The lesson page starts its player in Loading. The page script reports the frame's load and
// error events to the player endpoint, which drives the session's [player.Machine]. Requests
// sent with the X-Player-Fragment header get the re-rendered player body back; plain form
// posts are redirected to the lesson page.
//
// # Forms
//
// Chat posts follow post/redirect/get on success. A failed send re-renders the page with the
// user's input restored and a retry button.
package web
